// Package dto - DTO cho domain customer.
package dto

// CustomerData là dữ liệu khách hàng do workflow đơn hàng gửi lên.
// Name và Phone bắt buộc (không được chỉ có khoảng trắng).
type CustomerData struct {
	Name    string `json:"name" validate:"notblank"`
	Phone   string `json:"phone" validate:"notblank"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

// CustomerEnsureInput là body của POST /customers/ensure
type CustomerEnsureInput struct {
	CustomerData
	RegisteredVia string `json:"registeredVia"` // serviceOrder | saleOrder
}
