package global

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// InitValidator khởi tạo validator toàn cục và đăng ký các custom validator
func InitValidator() {
	Validate = NewValidator()
}

// NewValidator tạo validator mới đã đăng ký notblank.
// Test dùng hàm này để không phụ thuộc vào biến toàn cục.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("notblank", validateNotBlank)
	return v
}

// validateNotBlank: chuỗi phải còn ký tự sau khi bỏ khoảng trắng hai đầu
func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
