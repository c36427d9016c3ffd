package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/common"
)

// HandleErrorResponse trả về error response cho client.
// Dùng làm ErrorHandler của fiber để lỗi route (404, 405) có cùng format với handler.
func HandleErrorResponse(c fiber.Ctx, err error) error {
	c.Set("Content-Type", "application/json; charset=utf-8")

	var customErr *common.Error
	if errors.As(err, &customErr) {
		return c.Status(customErr.StatusCode).JSON(fiber.Map{
			"code":    customErr.Code.Code,
			"message": customErr.Message,
			"details": customErr.Details,
			"status":  "error",
		})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"code":    fiberErr.Code,
			"message": fiberErr.Message,
			"status":  "error",
		})
	}

	return c.Status(common.StatusInternalServerError).JSON(fiber.Map{
		"code":    common.ErrCodeInternalServer.Code,
		"message": err.Error(),
		"status":  "error",
	})
}
