package basehdl

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v3"

	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/common"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/logger"
)

// JSONResponse trả về JSON response với Content-Type: application/json; charset=utf-8
func JSONResponse(c fiber.Ctx, statusCode int, data interface{}) error {
	c.Set("Content-Type", "application/json; charset=utf-8")
	return c.Status(statusCode).JSON(data)
}

// SafeHandlerWrapper bọc handler với recover, panic được trả về client như lỗi hệ thống
func SafeHandlerWrapper(c fiber.Ctx, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithRequest(c).WithField("panic", r).Error("Handler panic")
			err = HandleResponse(c, nil, common.NewError(
				common.ErrCodeInternalServer,
				fmt.Sprintf("Lỗi hệ thống không mong muốn: %v", r),
				common.StatusInternalServerError,
				nil,
			))
		}
	}()
	return fn()
}

// HandleResponse chuẩn hoá response trả về cho client.
//
// Lỗi *common.Error trả về {code, message, details, status:"error"} với status code của lỗi;
// lỗi khác trả về 500. Thành công trả về {code:200, message, data, status:"success"}.
func HandleResponse(c fiber.Ctx, data interface{}, err error) error {
	return HandleResponseStatus(c, common.StatusOK, data, err)
}

// HandleResponseStatus giống HandleResponse nhưng cho phép chọn status khi thành công (201, ...)
func HandleResponseStatus(c fiber.Ctx, statusCode int, data interface{}, err error) error {
	if err != nil {
		var customErr *common.Error
		if errors.As(err, &customErr) {
			if customErr.StatusCode >= common.StatusInternalServerError {
				logger.WithRequest(c).WithError(err).Warn("Request failed")
			}
			return JSONResponse(c, customErr.StatusCode, fiber.Map{
				"code":    customErr.Code.Code,
				"message": customErr.Message,
				"details": customErr.Details,
				"status":  "error",
			})
		}
		logger.WithRequest(c).WithError(err).Error("Unhandled error")
		return JSONResponse(c, common.StatusInternalServerError, fiber.Map{
			"code":    common.ErrCodeInternalServer.Code,
			"message": err.Error(),
			"status":  "error",
		})
	}

	message := common.MsgSuccess
	if statusCode == common.StatusCreated {
		message = common.MsgCreated
	}
	return JSONResponse(c, statusCode, fiber.Map{
		"code":    statusCode,
		"message": message,
		"data":    data,
		"status":  "success",
	})
}
