package registry

import (
	"fmt"

	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/common"
)

// LogicalCollection là tên collection mà caller dùng, độc lập với tên vật lý
type LogicalCollection string

// Tập đóng các collection logic
const (
	Customers        LogicalCollection = "customers"
	ServiceOrders    LogicalCollection = "serviceOrders"
	SaleOrders       LogicalCollection = "saleOrders"
	Products         LogicalCollection = "products"
	Categories       LogicalCollection = "categories"
	StockMoves       LogicalCollection = "stockMoves"
	FinancialEntries LogicalCollection = "financialEntries"
	Users            LogicalCollection = "users"
	ConfigVariants   LogicalCollection = "configVariants"
	CashSessions     LogicalCollection = "cashSessions"
	OptionGroups     LogicalCollection = "optionGroups"
	Options          LogicalCollection = "options"
)

// physicalNames: tên collection vật lý đang tồn tại trong store của console
var physicalNames = map[LogicalCollection]string{
	Customers:        "clientes",
	ServiceOrders:    "ordensServico",
	SaleOrders:       "vendas",
	Products:         "produtos",
	Categories:       "categorias",
	StockMoves:       "movimentacoesEstoque",
	FinancialEntries: "lancamentosFinanceiros",
	Users:            "usuarios",
	ConfigVariants:   "configuracoes",
	CashSessions:     "caixas",
	OptionGroups:     "gruposOpcionais",
	Options:          "opcionais",
}

// Collections chứa ánh xạ logic -> vật lý, được nạp một lần khi khởi động
var Collections = mustBuildCollections(physicalNames)

func mustBuildCollections(names map[LogicalCollection]string) *Registry[string] {
	r, err := buildCollections(names)
	if err != nil {
		panic(err)
	}
	return r
}

// buildCollections nạp bảng ánh xạ và kiểm tra tính đơn ánh
func buildCollections(names map[LogicalCollection]string) (*Registry[string], error) {
	r := NewRegistry[string]()
	seen := make(map[string]LogicalCollection, len(names))
	for logical, physical := range names {
		if physical != "" {
			if other, dup := seen[physical]; dup {
				return nil, fmt.Errorf("physical collection %q mapped by both %q and %q", physical, other, logical)
			}
			seen[physical] = logical
		}
		if _, err := r.Register(string(logical), physical); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ResolveCollection trả về tên collection vật lý cho tên logic.
// Không I/O; tên lạ hoặc ánh xạ rỗng trả về UnknownCollection.
func ResolveCollection(name LogicalCollection) (string, error) {
	return resolveIn(Collections, name)
}

func resolveIn(r *Registry[string], name LogicalCollection) (string, error) {
	physical, ok := r.Get(string(name))
	if !ok || physical == "" {
		return "", common.UnknownCollection(string(name))
	}
	return physical, nil
}

// AllCollections trả về toàn bộ collection logic đã đăng ký, sắp xếp theo tên
func AllCollections() []LogicalCollection {
	keys := Collections.Keys()
	out := make([]LogicalCollection, len(keys))
	for i, k := range keys {
		out[i] = LogicalCollection(k)
	}
	return out
}
