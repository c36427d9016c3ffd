// Package custhdl - Handler HTTP cho việc tự động đăng ký customer.
package custhdl

import (
	"github.com/gofiber/fiber/v3"

	basehdl "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/base/handler"
	custdto "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/customer/dto"
	custmodels "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/customer/models"
	custsvc "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/customer/service"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/common"
)

// CustomerHandler xử lý các route /customers
type CustomerHandler struct {
	Coordinator *custsvc.DedupCoordinator
}

// NewCustomerHandler tạo CustomerHandler mới
func NewCustomerHandler(coord *custsvc.DedupCoordinator) *CustomerHandler {
	return &CustomerHandler{Coordinator: coord}
}

// HandleEnsure xử lý POST /customers/ensure.
// Trả về customer có phone trùng, tạo mới nếu chưa có; cả hai trường hợp đều 200.
func (h *CustomerHandler) HandleEnsure(c fiber.Ctx) error {
	return basehdl.SafeHandlerWrapper(c, func() error {
		var input custdto.CustomerEnsureInput
		if err := c.Bind().Body(&input); err != nil {
			return basehdl.HandleResponse(c, nil, common.NewError(
				common.ErrCodeValidationFormat,
				"Dữ liệu gửi lên không đúng định dạng JSON",
				common.StatusBadRequest,
				err.Error(),
			))
		}

		customer, err := h.Coordinator.CreateIfAbsent(c.Context(), input.CustomerData, custmodels.Provenance(input.RegisteredVia))
		return basehdl.HandleResponse(c, customer, err)
	})
}
