// Package models - Customer thuộc collection logic "customers".
// Customer được tự động tạo khi một đơn dịch vụ hoặc đơn bán nhập khách chưa có (khoá theo phone).
package models

import (
	"fmt"

	gwmodels "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/gateway/models"
)

// Provenance là workflow đã kích hoạt việc tự động tạo customer
type Provenance string

const (
	ProvenanceServiceOrder Provenance = "serviceOrder"
	ProvenanceSaleOrder    Provenance = "saleOrder"
)

// Valid cho biết provenance có thuộc tập đã biết không
func (p Provenance) Valid() bool {
	return p == ProvenanceServiceOrder || p == ProvenanceSaleOrder
}

// AutoRegisteredNote là ghi chú gắn vào customer tự động tạo
func AutoRegisteredNote(p Provenance) string {
	return fmt.Sprintf("auto-registered via %s", p)
}

// Customer là khách hàng lưu trong collection customers
type Customer struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Phone         string     `json:"phone"`
	Email         string     `json:"email"`
	Address       string     `json:"address"`
	RegisteredVia Provenance `json:"registeredVia,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	CreatedAt     string     `json:"createdAt,omitempty"`
	UpdatedAt     string     `json:"updatedAt,omitempty"`
}

// ToRecord chuyển customer thành Record để ghi qua gateway (không có id, timestamps do gateway đặt)
func (c Customer) ToRecord() gwmodels.Record {
	rec := gwmodels.Record{
		"name":          c.Name,
		"phone":         c.Phone,
		"email":         c.Email,
		"address":       c.Address,
		"registeredVia": string(c.RegisteredVia),
		"notes":         c.Notes,
	}
	if c.CreatedAt != "" {
		rec[gwmodels.FieldCreatedAt] = c.CreatedAt
	}
	if c.UpdatedAt != "" {
		rec[gwmodels.FieldUpdatedAt] = c.UpdatedAt
	}
	return rec
}

// CustomerFromRecord đọc customer từ bản ghi đã lưu; field thiếu hoặc khác kiểu thành ""
func CustomerFromRecord(rec gwmodels.StoredRecord) Customer {
	return Customer{
		ID:            rec.ID,
		Name:          rec.Data.String("name"),
		Phone:         rec.Data.String("phone"),
		Email:         rec.Data.String("email"),
		Address:       rec.Data.String("address"),
		RegisteredVia: Provenance(rec.Data.String("registeredVia")),
		Notes:         rec.Data.String("notes"),
		CreatedAt:     rec.Data.String(gwmodels.FieldCreatedAt),
		UpdatedAt:     rec.Data.String(gwmodels.FieldUpdatedAt),
	}
}
