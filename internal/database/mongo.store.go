package database

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/common"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/logger"
)

// MongoStore là DocumentStore trên MongoDB. Id của document là hex của ObjectID.
type MongoStore struct {
	client     *mongo.Client
	db         *mongo.Database
	ownsClient bool
}

// NewMongoStore tạo store trên database dbName.
// ownsClient = true thì Close sẽ ngắt kết nối client.
func NewMongoStore(client *mongo.Client, dbName string, ownsClient bool) *MongoStore {
	return &MongoStore{
		client:     client,
		db:         client.Database(dbName),
		ownsClient: ownsClient,
	}
}

// Name trả về "mongodb"
func (s *MongoStore) Name() string { return "mongodb" }

// Database trả về database đang dùng (cho việc tạo index)
func (s *MongoStore) Database() *mongo.Database { return s.db }

// Insert thêm document, id là ObjectID do driver sinh
func (s *MongoStore) Insert(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	doc := bson.M{}
	for k, v := range data {
		doc[k] = v
	}
	oid := primitive.NewObjectID()
	doc["_id"] = oid

	if _, err := s.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		return "", common.ConvertMongoError(err)
	}
	return oid.Hex(), nil
}

// Update dùng $set cho các field cấp một
func (s *MongoStore) Update(ctx context.Context, collection, id string, data map[string]interface{}) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return common.ErrNotFound
	}

	if len(data) == 0 {
		// $set rỗng bị MongoDB từ chối, chỉ cần kiểm tra tồn tại
		_, err := s.Get(ctx, collection, id)
		return err
	}

	set := bson.M{}
	for k, v := range data {
		set[k] = v
	}
	result, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return common.ConvertMongoError(err)
	}
	if result.MatchedCount == 0 {
		return common.ErrNotFound
	}
	return nil
}

// Get đọc document theo id
func (s *MongoStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, common.ErrNotFound
	}

	var raw bson.M
	if err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": oid}).Decode(&raw); err != nil {
		return nil, common.ConvertMongoError(err)
	}
	doc := documentFromBSON(raw)
	return &doc, nil
}

// Delete xoá document; id sai định dạng hoặc không tồn tại đều không lỗi
func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	if _, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return common.ConvertMongoError(err)
	}
	return nil
}

// List đọc toàn bộ collection, sắp xếp phía server nếu có OrderBy
func (s *MongoStore) List(ctx context.Context, collection string, opts ListOptions) ([]Document, error) {
	findOptions := options.Find()
	if opts.Ordered() {
		direction := 1
		if opts.Descending {
			direction = -1
		}
		findOptions.SetSort(bson.D{{Key: opts.OrderBy, Value: direction}})
	}

	cursor, err := s.db.Collection(collection).Find(ctx, bson.D{}, findOptions)
	if err != nil {
		return nil, classifyListError(err, opts)
	}
	defer cursor.Close(ctx)

	var raws []bson.M
	if err := cursor.All(ctx, &raws); err != nil {
		return nil, classifyListError(err, opts)
	}

	docs := make([]Document, 0, len(raws))
	for _, raw := range raws {
		docs = append(docs, documentFromBSON(raw))
	}
	return docs, nil
}

// Watch mở change stream trước rồi mới đọc snapshot ban đầu để không bỏ sót thay đổi.
// Change stream cần replica set; standalone server trả lỗi ngay.
func (s *MongoStore) Watch(ctx context.Context, collection string, opts ListOptions, onSnapshot SnapshotFunc) error {
	stream, err := s.db.Collection(collection).Watch(ctx, mongo.Pipeline{})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("open change stream on %s: %w", collection, common.ConvertMongoError(err))
	}
	defer stream.Close(context.Background())

	docs, err := s.List(ctx, collection, opts)
	if err != nil {
		return err
	}
	onSnapshot(docs)

	for stream.Next(ctx) {
		// Gộp các event đã có sẵn thành một snapshot
		for stream.RemainingBatchLength() > 0 {
			if !stream.Next(ctx) {
				break
			}
		}
		docs, err := s.List(ctx, collection, opts)
		if err != nil {
			return err
		}
		logger.WithModuleAndCollection("database", collection).Debug("Change stream event, snapshot refreshed")
		onSnapshot(docs)
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return common.ConvertMongoError(stream.Err())
}

// Close ngắt kết nối nếu store sở hữu client
func (s *MongoStore) Close(ctx context.Context) error {
	if !s.ownsClient {
		return nil
	}
	return CloseInstance(ctx, s.client)
}

// classifyListError: lỗi của truy vấn có sắp xếp được đánh dấu để gateway fallback
func classifyListError(err error, opts ListOptions) error {
	converted := common.ConvertMongoError(err)
	if errors.Is(converted, context.Canceled) || errors.Is(converted, context.DeadlineExceeded) {
		return converted
	}
	if opts.Ordered() {
		return common.OrderedRefused(converted)
	}
	return converted
}

// documentFromBSON tách _id và chuẩn hoá kiểu BSON về kiểu Go thuần
func documentFromBSON(raw bson.M) Document {
	doc := Document{Data: make(map[string]interface{}, len(raw))}
	for k, v := range raw {
		if k == "_id" {
			doc.ID = idString(v)
			continue
		}
		doc.Data[k] = fromBSON(v)
	}
	return doc
}

func idString(v interface{}) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	default:
		return fmt.Sprint(id)
	}
}

// fromBSON chuyển bson.M / bson.D / bson.A / ObjectID / DateTime về map, slice, string, time.Time
func fromBSON(v interface{}) interface{} {
	switch val := v.(type) {
	case bson.M:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = fromBSON(item)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = fromBSON(item)
		}
		return out
	case bson.D:
		out := make(map[string]interface{}, len(val))
		for _, e := range val {
			out[e.Key] = fromBSON(e.Value)
		}
		return out
	case bson.A:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = fromBSON(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = fromBSON(item)
		}
		return out
	case primitive.ObjectID:
		return val.Hex()
	case primitive.DateTime:
		return val.Time().UTC()
	case primitive.Decimal128:
		return val.String()
	case int32:
		return int64(val)
	default:
		return v
	}
}
