// Package gwhdl - Handler HTTP cho store gateway: CRUD theo collection logic và luồng SSE.
package gwhdl

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	basehdl "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/base/handler"
	gwmodels "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/gateway/models"
	gwsvc "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/gateway/service"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/common"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/logger"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/registry"
)

// streamKeepAlive: khoảng gửi comment SSE để phát hiện client đã ngắt
const streamKeepAlive = 15 * time.Second

// GatewayHandler xử lý các route /collections và /system/health
type GatewayHandler struct {
	Gateway *gwsvc.Gateway
}

// NewGatewayHandler tạo GatewayHandler mới
func NewGatewayHandler(gw *gwsvc.Gateway) *GatewayHandler {
	return &GatewayHandler{Gateway: gw}
}

// parseRecord đọc body JSON object thành Record
func parseRecord(c fiber.Ctx) (gwmodels.Record, error) {
	var record gwmodels.Record
	if err := c.App().Config().JSONDecoder(c.Body(), &record); err != nil || record == nil {
		return nil, common.NewError(
			common.ErrCodeValidationFormat,
			"Dữ liệu gửi lên phải là JSON object",
			common.StatusBadRequest,
			nil,
		)
	}
	return record, nil
}

// HandleHealth xử lý GET /system/health: trạng thái probe của store
func (h *GatewayHandler) HandleHealth(c fiber.Ctx) error {
	return basehdl.SafeHandlerWrapper(c, func() error {
		health := h.Gateway.Health(c.Context())
		data := fiber.Map{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
			"store":     health,
		}
		if !health.Available {
			data["status"] = "degraded"
			return basehdl.JSONResponse(c, common.StatusServiceUnavailable, fiber.Map{
				"code":    common.StatusServiceUnavailable,
				"message": common.MsgServiceUnavailable,
				"data":    data,
				"status":  "error",
			})
		}
		return basehdl.HandleResponse(c, data, nil)
	})
}

// HandleListCollections xử lý GET /collections: danh sách collection logic
func (h *GatewayHandler) HandleListCollections(c fiber.Ctx) error {
	return basehdl.SafeHandlerWrapper(c, func() error {
		return basehdl.HandleResponse(c, registry.AllCollections(), nil)
	})
}

// HandleGetAll xử lý GET /collections/:collection
func (h *GatewayHandler) HandleGetAll(c fiber.Ctx) error {
	return basehdl.SafeHandlerWrapper(c, func() error {
		records, err := h.Gateway.GetAll(c.Context(), c.Params("collection"))
		return basehdl.HandleResponse(c, records, err)
	})
}

// HandleGetOne xử lý GET /collections/:collection/:id, 404 nếu không tồn tại
func (h *GatewayHandler) HandleGetOne(c fiber.Ctx) error {
	return basehdl.SafeHandlerWrapper(c, func() error {
		rec, found, err := h.Gateway.GetOne(c.Context(), c.Params("collection"), c.Params("id"))
		if err == nil && !found {
			err = common.ErrNotFound
		}
		return basehdl.HandleResponse(c, rec, err)
	})
}

// HandleCreate xử lý POST /collections/:collection, trả về {id}
func (h *GatewayHandler) HandleCreate(c fiber.Ctx) error {
	return basehdl.SafeHandlerWrapper(c, func() error {
		record, err := parseRecord(c)
		if err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		id, err := h.Gateway.Create(c.Context(), c.Params("collection"), record)
		if err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		return basehdl.HandleResponseStatus(c, common.StatusCreated, fiber.Map{"id": id}, nil)
	})
}

// HandleUpdate xử lý PUT /collections/:collection/:id
func (h *GatewayHandler) HandleUpdate(c fiber.Ctx) error {
	return basehdl.SafeHandlerWrapper(c, func() error {
		record, err := parseRecord(c)
		if err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		id, err := h.Gateway.Update(c.Context(), c.Params("collection"), c.Params("id"), record)
		if err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		return basehdl.HandleResponse(c, fiber.Map{"id": id}, nil)
	})
}

// HandleDelete xử lý DELETE /collections/:collection/:id (idempotent)
func (h *GatewayHandler) HandleDelete(c fiber.Ctx) error {
	return basehdl.SafeHandlerWrapper(c, func() error {
		id := c.Params("id")
		if err := h.Gateway.Delete(c.Context(), c.Params("collection"), id); err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		return basehdl.HandleResponse(c, fiber.Map{"id": id}, nil)
	})
}

// HandleStream xử lý GET /collections/:collection/stream.
//
// Mỗi snapshot là một event SSE "snapshot" chứa toàn bộ danh sách.
// Subscription lỗi gửi event "error" rồi đóng stream; client ngắt thì subscription bị huỷ.
func (h *GatewayHandler) HandleStream(c fiber.Ctx) error {
	collection := c.Params("collection")

	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Context()))
	sub, err := h.Gateway.Subscribe(ctx, collection)
	if err != nil {
		cancel()
		return basehdl.HandleResponse(c, nil, err)
	}

	log := logger.WithRequest(c).WithField("collection", collection)

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	return c.SendStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer sub.Unsubscribe()

		ticker := time.NewTicker(streamKeepAlive)
		defer ticker.Stop()

		for {
			select {
			case snapshot, ok := <-sub.Updates():
				if !ok {
					if err := sub.Err(); err != nil {
						_ = writeEvent(w, "error", errorPayload(err))
					}
					return
				}
				if err := writeEvent(w, "snapshot", snapshot); err != nil {
					log.WithError(err).Debug("Stream client disconnected")
					return
				}
			case <-ticker.C:
				if _, err := w.WriteString(": keep-alive\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})
}

// writeEvent ghi một event theo định dạng SSE (id, event, data) và flush ngay
func writeEvent(w *bufio.Writer, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := w.WriteString("id: " + uuid.NewString() + "\nevent: " + event + "\ndata: "); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if _, err := w.WriteString("\n\n"); err != nil {
		return err
	}
	return w.Flush()
}

func errorPayload(err error) fiber.Map {
	payload := fiber.Map{"message": err.Error()}
	var e *common.Error
	if errors.As(err, &e) {
		payload["code"] = e.Code.Code
	}
	return payload
}
