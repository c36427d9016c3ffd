package custsvc

import (
	"context"
	"sort"

	custmodels "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/customer/models"
	gwmodels "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/gateway/models"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/registry"
)

// DuplicateGroup là các customer có cùng khoá phone
type DuplicateGroup struct {
	Phone     string                `json:"phone" yaml:"phone"`
	Customers []custmodels.Customer `json:"customers" yaml:"customers"`
}

// GroupDuplicates gom các bản ghi theo khoá phone, chỉ giữ nhóm có từ hai customer.
// Bản ghi phone rỗng hoặc không phải chuỗi bị bỏ qua. Nhóm sắp theo phone, thứ tự trong nhóm giữ nguyên.
func GroupDuplicates(records []gwmodels.StoredRecord) []DuplicateGroup {
	byPhone := map[string][]custmodels.Customer{}
	for _, rec := range records {
		key := NormalizePhone(rec.Data.String("phone"))
		if key == "" {
			continue
		}
		byPhone[key] = append(byPhone[key], custmodels.CustomerFromRecord(rec))
	}

	var groups []DuplicateGroup
	for phone, customers := range byPhone {
		if len(customers) > 1 {
			groups = append(groups, DuplicateGroup{Phone: phone, Customers: customers})
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Phone < groups[j].Phone })
	return groups
}

// FindDuplicates đọc collection customers và trả về các nhóm trùng phone
// (dữ liệu cũ tạo trước khi có dedup, hoặc do nhiều tiến trình cùng ghi).
func FindDuplicates(ctx context.Context, gw CustomerGateway) ([]DuplicateGroup, error) {
	records, err := gw.GetAll(ctx, string(registry.Customers))
	if err != nil {
		return nil, err
	}
	return GroupDuplicates(records), nil
}
