package gwsvc

import (
	"context"

	gwmodels "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/gateway/models"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/registry"
)

// GetSettings đọc một document cấu hình qua cache TTL (read-through, ghi sau thắng, chỉ hết hạn theo TTL).
// Document không tồn tại không được cache.
func (g *Gateway) GetSettings(ctx context.Context, id string) (*gwmodels.StoredRecord, bool, error) {
	if cached, ok := g.settings.Get(id); ok {
		rec := cached.(gwmodels.StoredRecord)
		return &gwmodels.StoredRecord{ID: rec.ID, Data: rec.Data.Clone()}, true, nil
	}

	rec, found, err := g.GetOne(ctx, string(registry.ConfigVariants), id)
	if err != nil || !found {
		return nil, found, err
	}
	g.settings.Set(id, gwmodels.StoredRecord{ID: rec.ID, Data: rec.Data.Clone()})
	return rec, true, nil
}
