package common

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// HTTP Status Code Constants
const (
	// Success Codes (2xx)
	StatusOK        = 200 // Thành công
	StatusCreated   = 201 // Tạo mới thành công
	StatusNoContent = 204 // Thành công nhưng không có nội dung trả về

	// Client Error Codes (4xx)
	StatusBadRequest      = 400 // Yêu cầu không hợp lệ
	StatusNotFound        = 404 // Không tìm thấy tài nguyên
	StatusConflict        = 409 // Xung đột dữ liệu
	StatusTooManyRequests = 429 // Quá nhiều yêu cầu

	// Server Error Codes (5xx)
	StatusInternalServerError = 500 // Lỗi server
	StatusBadGateway          = 502 // Store trả về lỗi
	StatusServiceUnavailable  = 503 // Dịch vụ không khả dụng
	StatusGatewayTimeout      = 504 // Gateway timeout
)

// Response Messages
const (
	MsgSuccess = "Thao tác thành công"
	MsgCreated = "Tạo mới thành công"

	MsgBadRequest         = "Yêu cầu không hợp lệ"
	MsgNotFound           = "Không tìm thấy dữ liệu"
	MsgInternalError      = "Lỗi hệ thống"
	MsgServiceUnavailable = "Dịch vụ không khả dụng"
	MsgGatewayTimeout     = "Gateway timeout"

	MsgValidationError     = "Dữ liệu không hợp lệ"
	MsgUnknownCollection   = "Collection không được đăng ký"
	MsgStoreUnavailable    = "Không thể kết nối tới kho dữ liệu"
	MsgWriteFailed         = "Ghi dữ liệu thất bại"
	MsgReadTimeout         = "Đọc dữ liệu quá thời gian cho phép"
	MsgReadFailed          = "Đọc dữ liệu thất bại"
	MsgSubscriptionFailed  = "Theo dõi thay đổi thất bại"
	MsgDatabaseError       = "Lỗi tương tác với cơ sở dữ liệu"
	MsgDatabaseConnection  = "Lỗi kết nối cơ sở dữ liệu"
	MsgOrderedQueryRefused = "Truy vấn có sắp xếp bị từ chối"
)

// ErrorCode định nghĩa mã lỗi chi tiết
type ErrorCode struct {
	Code        string // Mã lỗi (ví dụ: GW_001)
	Category    string // Phân loại lỗi (ví dụ: Gateway)
	SubCategory string // Phân loại con (ví dụ: Collection)
	Description string // Mô tả chi tiết
}

// Định nghĩa các mã lỗi theo hệ thống phân cấp
var (
	// System Errors (SYS_xxx)
	ErrCodeInternalServer = ErrorCode{
		Code:        "SYS_001",
		Category:    "System",
		SubCategory: "Internal",
		Description: "Lỗi hệ thống nội bộ",
	}

	ErrCodeRateLimited = ErrorCode{
		Code:        "SYS_002",
		Category:    "System",
		SubCategory: "RateLimit",
		Description: "Vượt giới hạn số request",
	}

	// Validation Errors (VAL_xxx)
	ErrCodeValidationInput = ErrorCode{
		Code:        "VAL_001",
		Category:    "Validation",
		SubCategory: "Input",
		Description: "Lỗi dữ liệu đầu vào",
	}

	ErrCodeValidationFormat = ErrorCode{
		Code:        "VAL_002",
		Category:    "Validation",
		SubCategory: "Format",
		Description: "Lỗi định dạng dữ liệu",
	}

	// Database Errors (DB_xxx)
	ErrCodeDatabaseConnection = ErrorCode{
		Code:        "DB_001",
		Category:    "Database",
		SubCategory: "Connection",
		Description: "Lỗi kết nối cơ sở dữ liệu",
	}

	ErrCodeDatabaseQuery = ErrorCode{
		Code:        "DB_002",
		Category:    "Database",
		SubCategory: "Query",
		Description: "Lỗi truy vấn dữ liệu",
	}

	ErrCodeDatabaseNotFound = ErrorCode{
		Code:        "DB_003",
		Category:    "Database",
		SubCategory: "NotFound",
		Description: "Document không tồn tại",
	}

	ErrCodeDatabaseOrdering = ErrorCode{
		Code:        "DB_004",
		Category:    "Database",
		SubCategory: "Ordering",
		Description: "Store từ chối truy vấn có sắp xếp (thiếu index, quyền...)",
	}

	// Gateway Errors (GW_xxx)
	ErrCodeUnknownCollection = ErrorCode{
		Code:        "GW_001",
		Category:    "Gateway",
		SubCategory: "Collection",
		Description: "Tên collection logic không có trong registry",
	}

	ErrCodeStoreUnavailable = ErrorCode{
		Code:        "GW_002",
		Category:    "Gateway",
		SubCategory: "Availability",
		Description: "Probe khởi động thất bại, gateway ở trạng thái Unavailable",
	}

	ErrCodeWriteFailed = ErrorCode{
		Code:        "GW_003",
		Category:    "Gateway",
		SubCategory: "Write",
		Description: "Store từ chối thao tác ghi",
	}

	ErrCodeReadTimeout = ErrorCode{
		Code:        "GW_004",
		Category:    "Gateway",
		SubCategory: "Read",
		Description: "Đọc danh sách vượt quá read timeout",
	}

	ErrCodeReadFailed = ErrorCode{
		Code:        "GW_005",
		Category:    "Gateway",
		SubCategory: "Read",
		Description: "Cả truy vấn có sắp xếp và không sắp xếp đều thất bại",
	}

	ErrCodeSubscriptionFailed = ErrorCode{
		Code:        "GW_006",
		Category:    "Gateway",
		SubCategory: "Subscription",
		Description: "Subscription không sắp xếp cũng thất bại",
	}
)

// Error định nghĩa cấu trúc lỗi chi tiết
type Error struct {
	Code       ErrorCode // Mã lỗi chi tiết
	Message    string    // Thông báo lỗi
	StatusCode int       // HTTP status code
	Details    any       // Thông tin chi tiết thêm về lỗi
	Cause      error     // Lỗi gốc từ store (nếu có)
}

// Error trả về message của lỗi, kèm lỗi gốc nếu có
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap trả về lỗi gốc để errors.Is / errors.As đi xuống chuỗi lỗi
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is so sánh theo mã lỗi: mọi WriteFailed(cause) đều khớp với ErrWriteFailed
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	var targetErr *Error
	if !errors.As(target, &targetErr) {
		return false
	}
	return e.Code.Code == targetErr.Code.Code
}

// NewError tạo một error mới với đầy đủ thông tin
func NewError(code ErrorCode, message string, statusCode int, details any) error {
	return &Error{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    details,
	}
}

// wrap tạo bản sao của sentinel kèm lỗi gốc
func wrap(sentinel error, cause error, details any) error {
	base := sentinel.(*Error)
	return &Error{
		Code:       base.Code,
		Message:    base.Message,
		StatusCode: base.StatusCode,
		Details:    details,
		Cause:      cause,
	}
}

// Custom errors
var (
	// Validation Errors
	ErrInvalidInput  = NewError(ErrCodeValidationInput, "Dữ liệu đầu vào không hợp lệ", StatusBadRequest, nil)
	ErrInvalidFormat = NewError(ErrCodeValidationFormat, "Định dạng dữ liệu không hợp lệ", StatusBadRequest, nil)

	// Database Errors
	ErrNotFound       = NewError(ErrCodeDatabaseNotFound, MsgNotFound, StatusNotFound, nil)
	ErrConnection     = NewError(ErrCodeDatabaseConnection, MsgDatabaseConnection, StatusServiceUnavailable, nil)
	ErrDatabaseQuery  = NewError(ErrCodeDatabaseQuery, MsgDatabaseError, StatusInternalServerError, nil)
	ErrOrderedRefused = NewError(ErrCodeDatabaseOrdering, MsgOrderedQueryRefused, StatusBadGateway, nil)

	// Gateway Errors
	ErrUnknownCollection  = NewError(ErrCodeUnknownCollection, MsgUnknownCollection, StatusBadRequest, nil)
	ErrStoreUnavailable   = NewError(ErrCodeStoreUnavailable, MsgStoreUnavailable, StatusServiceUnavailable, nil)
	ErrWriteFailed        = NewError(ErrCodeWriteFailed, MsgWriteFailed, StatusBadGateway, nil)
	ErrReadTimeout        = NewError(ErrCodeReadTimeout, MsgReadTimeout, StatusGatewayTimeout, nil)
	ErrReadFailed         = NewError(ErrCodeReadFailed, MsgReadFailed, StatusBadGateway, nil)
	ErrSubscriptionFailed = NewError(ErrCodeSubscriptionFailed, MsgSubscriptionFailed, StatusBadGateway, nil)
)

// UnknownCollection trả về lỗi collection không đăng ký, kèm tên được yêu cầu
func UnknownCollection(name string) error {
	return wrap(ErrUnknownCollection, nil, map[string]string{"collection": name})
}

// StoreUnavailable trả về lỗi gateway không khả dụng kèm nguyên nhân probe thất bại
func StoreUnavailable(cause error) error {
	return wrap(ErrStoreUnavailable, cause, nil)
}

// WriteFailed bọc lỗi ghi từ store
func WriteFailed(cause error) error {
	return wrap(ErrWriteFailed, cause, nil)
}

// ReadFailed bọc lỗi của lần đọc fallback
func ReadFailed(cause error) error {
	return wrap(ErrReadFailed, cause, nil)
}

// ReadTimeout trả về lỗi timeout đọc kèm thời lượng đã chờ
func ReadTimeout(details any) error {
	return wrap(ErrReadTimeout, nil, details)
}

// SubscriptionFailed bọc lỗi của subscription fallback
func SubscriptionFailed(cause error) error {
	return wrap(ErrSubscriptionFailed, cause, nil)
}

// InvalidInput trả về lỗi dữ liệu đầu vào kèm chi tiết từng field
func InvalidInput(details any) error {
	return wrap(ErrInvalidInput, nil, details)
}

// OrderedRefused bọc lỗi store từ chối truy vấn có sắp xếp
func OrderedRefused(cause error) error {
	return wrap(ErrOrderedRefused, cause, nil)
}

// StatusCodeOf trả về HTTP status tương ứng với lỗi, mặc định 500
func StatusCodeOf(err error) int {
	var e *Error
	if errors.As(err, &e) && e.StatusCode != 0 {
		return e.StatusCode
	}
	return StatusInternalServerError
}

// ConvertMongoError chuyển đổi lỗi MongoDB sang lỗi hệ thống
func ConvertMongoError(err error) error {
	if err == nil {
		return nil
	}

	// Lỗi đã thuộc hệ thống thì giữ nguyên
	var e *Error
	if errors.As(err, &e) {
		return err
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) || errors.Is(err, mongo.ErrClientDisconnected) {
		return wrap(ErrConnection, err, nil)
	}

	return wrap(ErrDatabaseQuery, err, nil)
}
