// Package custsvc - Tạo customer không trùng khi nhiều workflow cùng gửi một số điện thoại.
//
// Ticket của mỗi phone là một lần gọi trong singleflight.Group: kiểm tra và đăng ký ticket là
// một bước nguyên tử theo key, mọi caller tới trong lúc ticket chưa xong nhận chung kết quả,
// và ticket bị xoá ngay khi có kết quả (thành công hay lỗi) nên lần gọi sau luôn chạy lại.
// Bảo đảm chỉ trong phạm vi một tiến trình.
package custsvc

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	custdto "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/customer/dto"
	custmodels "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/customer/models"
	gwmodels "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/gateway/models"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/common"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/global"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/logger"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/metrics"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/registry"
)

// CustomerGateway là phần của store gateway mà coordinator cần
type CustomerGateway interface {
	GetAll(ctx context.Context, logical string) ([]gwmodels.StoredRecord, error)
	Create(ctx context.Context, logical string, record gwmodels.Record) (string, error)
}

// DedupCoordinator điều phối CreateIfAbsent theo phone
type DedupCoordinator struct {
	gateway  CustomerGateway
	validate *validator.Validate
	tickets  singleflight.Group
	inFlight atomic.Int64
}

// NewDedupCoordinator tạo coordinator mới. Dùng global.Validate nếu đã khởi tạo.
func NewDedupCoordinator(gw CustomerGateway) *DedupCoordinator {
	v := global.Validate
	if v == nil {
		v = global.NewValidator()
	}
	return &DedupCoordinator{gateway: gw, validate: v}
}

// InFlight trả về số ticket đang chạy (0 ở trạng thái nghỉ)
func (d *DedupCoordinator) InFlight() int64 {
	return d.inFlight.Load()
}

// NormalizePhone trả về khoá dedup: phone bỏ khoảng trắng hai đầu, không chuẩn hoá gì thêm
func NormalizePhone(phone string) string {
	return strings.TrimSpace(phone)
}

type ticketResult struct {
	customer custmodels.Customer
	created  bool
}

// CreateIfAbsent trả về customer có phone trùng khoá, tạo mới nếu chưa có.
//
// Với cùng một khoá, các lần gọi đồng thời dùng chung một ticket: store nhận tối đa một lần
// create và mọi caller nhận customer cùng id. Caller huỷ ctx chỉ bỏ chờ, không huỷ ticket của
// những caller khác. Lỗi được trả cho mọi caller đang chờ và ticket vẫn bị xoá.
func (d *DedupCoordinator) CreateIfAbsent(ctx context.Context, data custdto.CustomerData, provenance custmodels.Provenance) (*custmodels.Customer, error) {
	if err := d.validateInput(data, provenance); err != nil {
		metrics.CustomerDedup.WithLabelValues(metrics.DedupFailed).Inc()
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := NormalizePhone(data.Phone)
	log := logger.WithModule("customer").WithFields(logrus.Fields{"phone": key, "provenance": provenance})

	executed := false
	ch := d.tickets.DoChan(key, func() (interface{}, error) {
		executed = true
		// Ticket không thuộc riêng caller nào: tách khỏi việc huỷ ctx của caller đầu tiên
		return d.resolveTicket(context.WithoutCancel(ctx), key, data, provenance)
	})

	select {
	case <-ctx.Done():
		log.Debug("Caller abandoned dedup ticket")
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			metrics.CustomerDedup.WithLabelValues(metrics.DedupFailed).Inc()
			log.WithError(res.Err).Warn("Dedup ticket failed")
			return nil, res.Err
		}

		result := res.Val.(ticketResult)
		outcome := metrics.DedupExisting
		switch {
		case !executed:
			outcome = metrics.DedupShared
		case result.created:
			outcome = metrics.DedupCreated
		}
		metrics.CustomerDedup.WithLabelValues(outcome).Inc()
		log.WithFields(logrus.Fields{"id": result.customer.ID, "outcome": outcome}).Debug("Dedup ticket resolved")

		customer := result.customer
		return &customer, nil
	}
}

// validateInput kiểm tra đầu vào trước khi chạm vào ticket hay store
func (d *DedupCoordinator) validateInput(data custdto.CustomerData, provenance custmodels.Provenance) error {
	details := map[string]string{}
	if err := d.validate.Struct(data); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				details[strings.ToLower(fe.Field())] = fe.Tag()
			}
		} else {
			return common.InvalidInput(err.Error())
		}
	}
	if !provenance.Valid() {
		details["registeredVia"] = fmt.Sprintf("oneof=%s %s", custmodels.ProvenanceServiceOrder, custmodels.ProvenanceSaleOrder)
	}
	if len(details) > 0 {
		return common.InvalidInput(details)
	}
	return nil
}

// resolveTicket chạy đúng một lần cho mỗi ticket: quét customers, không thấy thì tạo mới
func (d *DedupCoordinator) resolveTicket(ctx context.Context, key string, data custdto.CustomerData, provenance custmodels.Provenance) (_ interface{}, err error) {
	d.inFlight.Add(1)
	metrics.CustomerDedupInFlight.Inc()
	defer func() {
		d.inFlight.Add(-1)
		metrics.CustomerDedupInFlight.Dec()
		if r := recover(); r != nil {
			err = fmt.Errorf("dedup ticket panic: %v", r)
		}
	}()

	collection := string(registry.Customers)

	all, err := d.gateway.GetAll(ctx, collection)
	if err != nil {
		return nil, err
	}
	for _, rec := range all {
		if NormalizePhone(rec.Data.String("phone")) == key {
			return ticketResult{customer: custmodels.CustomerFromRecord(rec)}, nil
		}
	}

	customer := custmodels.Customer{
		Name:          strings.TrimSpace(data.Name),
		Phone:         key,
		Email:         data.Email,
		Address:       data.Address,
		RegisteredVia: provenance,
		Notes:         custmodels.AutoRegisteredNote(provenance),
	}
	id, err := d.gateway.Create(ctx, collection, customer.ToRecord())
	if err != nil {
		return nil, err
	}
	customer.ID = id

	logger.WithModuleAndCollection("customer", collection).WithFields(logrus.Fields{
		"id":         id,
		"provenance": provenance,
	}).Info("Customer auto-registered")
	return ticketResult{customer: customer, created: true}, nil
}
