package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/logger"
)

// CreatedAtIndexName là tên index phục vụ truy vấn sắp xếp theo createdAt giảm dần
const CreatedAtIndexName = "createdAt_-1"

// EnsureCreatedAtIndexes tạo index createdAt giảm dần cho từng collection.
// Index đã tồn tại với cấu hình khác sẽ bị xoá và tạo lại.
func EnsureCreatedAtIndexes(ctx context.Context, db *mongo.Database, collections []string) error {
	keys := bson.D{{Key: "createdAt", Value: -1}}
	for _, name := range collections {
		coll := db.Collection(name)
		existing, err := listIndexes(ctx, coll)
		if err != nil {
			return err
		}
		if err := checkAndReplaceIndex(ctx, coll, existing, CreatedAtIndexName, keys, options.Index().SetName(CreatedAtIndexName)); err != nil {
			return err
		}
	}
	return nil
}

func listIndexes(ctx context.Context, coll *mongo.Collection) (map[string]bson.M, error) {
	cursor, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("không thể lấy danh sách index của %s: %w", coll.Name(), err)
	}
	defer cursor.Close(ctx)

	existing := map[string]bson.M{}
	for cursor.Next(ctx) {
		var info bson.M
		if err := cursor.Decode(&info); err != nil {
			return nil, fmt.Errorf("không thể giải mã thông tin index: %w", err)
		}
		if name, ok := info["name"].(string); ok {
			existing[name] = info
		}
	}
	return existing, cursor.Err()
}

// checkAndReplaceIndex bỏ qua index đúng cấu hình, tạo lại index sai cấu hình
func checkAndReplaceIndex(
	ctx context.Context,
	collection *mongo.Collection,
	existingIndexes map[string]bson.M,
	indexName string,
	keys bson.D,
	opts *options.IndexOptions,
) error {
	log := logger.WithModuleAndCollection("database", collection.Name())

	if existingIndex, exists := existingIndexes[indexName]; exists {
		if compareIndexKeys(existingIndex, keys) {
			log.Debugf("Index %s đã tồn tại và đúng cấu hình, bỏ qua", indexName)
			return nil
		}
		if _, err := collection.Indexes().DropOne(ctx, indexName); err != nil {
			return fmt.Errorf("không thể xóa index %s: %w", indexName, err)
		}
		log.Infof("Đã xóa index cũ: %s", indexName)
	}

	if _, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys, Options: opts}); err != nil {
		return fmt.Errorf("không thể tạo index %s: %w", indexName, err)
	}
	log.Infof("Đã tạo index: %s", indexName)
	return nil
}

// compareIndexKeys so sánh khoá của index hiện có với khoá mong muốn (1 / -1)
func compareIndexKeys(existingIndex bson.M, keys bson.D) bool {
	existingKeys := map[string]interface{}{}
	switch k := existingIndex["key"].(type) {
	case bson.M:
		existingKeys = k
	case bson.D:
		for _, e := range k {
			existingKeys[e.Key] = e.Value
		}
	default:
		return false
	}
	if len(existingKeys) != len(keys) {
		return false
	}

	for _, key := range keys {
		existingValue, exists := existingKeys[key.Key]
		if !exists {
			return false
		}
		want, ok := key.Value.(int)
		if !ok {
			if existingValue != key.Value {
				return false
			}
			continue
		}
		switch ev := existingValue.(type) {
		case int32:
			if int(ev) != want {
				return false
			}
		case int64:
			if int(ev) != want {
				return false
			}
		case float64:
			if int(ev) != want {
				return false
			}
		default:
			return false
		}
	}
	return true
}
