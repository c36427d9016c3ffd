package database

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joao-augusto-1103/fireflynexus-sub002/config"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/common"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/logger"
)

// NewFirestoreClient khởi tạo Firebase Admin SDK rồi lấy Firestore client.
// Không có FIREBASE_CREDENTIALS_PATH thì dùng Application Default Credentials.
func NewFirestoreClient(ctx context.Context, cfg *config.Configuration) (*firestore.Client, error) {
	var opts []option.ClientOption
	if cfg.FirebaseCredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentialsPath))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	logger.GetAppLogger().WithField("project_id", cfg.FirebaseProjectID).Info("Firestore client initialized")
	return client, nil
}

// FirestoreStore là DocumentStore trên Cloud Firestore
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore bọc một Firestore client
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

// Name trả về "firestore"
func (s *FirestoreStore) Name() string { return "firestore" }

// Insert thêm document với id tự sinh
func (s *FirestoreStore) Insert(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	ref, _, err := s.client.Collection(collection).Add(ctx, data)
	if err != nil {
		return "", mapFirestoreError(err)
	}
	return ref.ID, nil
}

// Update merge các field cấp một; document không tồn tại trả về ErrNotFound
func (s *FirestoreStore) Update(ctx context.Context, collection, id string, data map[string]interface{}) error {
	if len(data) == 0 {
		_, err := s.Get(ctx, collection, id)
		return err
	}

	updates := make([]firestore.Update, 0, len(data))
	for k, v := range data {
		// FieldPath để key chứa dấu chấm không bị hiểu là field lồng
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{k}, Value: v})
	}
	if _, err := s.client.Collection(collection).Doc(id).Update(ctx, updates); err != nil {
		return mapFirestoreError(err)
	}
	return nil
}

// Get đọc một document
func (s *FirestoreStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return nil, mapFirestoreError(err)
	}
	doc := documentFromSnapshot(snap)
	return &doc, nil
}

// Delete xoá document; Firestore không báo lỗi khi document không tồn tại
func (s *FirestoreStore) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return mapFirestoreError(err)
	}
	return nil
}

// List đọc toàn bộ collection. Truy vấn OrderBy cần index; thiếu index
// thì Firestore trả FailedPrecondition và lỗi được đánh dấu OrderedRefused.
func (s *FirestoreStore) List(ctx context.Context, collection string, opts ListOptions) ([]Document, error) {
	snaps, err := s.query(collection, opts).Documents(ctx).GetAll()
	if err != nil {
		return nil, classifyFirestoreQueryError(err, opts)
	}
	return documentsFromSnapshots(snaps), nil
}

// Watch dùng Snapshots: lần Next đầu tiên là snapshot ban đầu
func (s *FirestoreStore) Watch(ctx context.Context, collection string, opts ListOptions, onSnapshot SnapshotFunc) error {
	it := s.query(collection, opts).Snapshots(ctx)
	defer it.Stop()

	for {
		qs, err := it.Next()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return classifyFirestoreQueryError(err, opts)
		}
		snaps, err := qs.Documents.GetAll()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return mapFirestoreError(err)
		}
		onSnapshot(documentsFromSnapshots(snaps))
	}
}

// Close đóng Firestore client
func (s *FirestoreStore) Close(ctx context.Context) error {
	return s.client.Close()
}

func (s *FirestoreStore) query(collection string, opts ListOptions) firestore.Query {
	coll := s.client.Collection(collection)
	if !opts.Ordered() {
		return coll.Query
	}
	direction := firestore.Asc
	if opts.Descending {
		direction = firestore.Desc
	}
	return coll.OrderBy(opts.OrderBy, direction)
}

// mapFirestoreError chuyển mã gRPC sang lỗi hệ thống
func mapFirestoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	switch status.Code(err) {
	case codes.NotFound:
		return common.ErrNotFound
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	case codes.Unavailable:
		return fmt.Errorf("%w: %v", common.ErrConnection, err)
	}
	return err
}

// classifyFirestoreQueryError: lỗi truy vấn có sắp xếp (thiếu index, quyền...) được đánh dấu OrderedRefused
func classifyFirestoreQueryError(err error, opts ListOptions) error {
	mapped := mapFirestoreError(err)
	if errors.Is(mapped, context.Canceled) || errors.Is(mapped, context.DeadlineExceeded) {
		return mapped
	}
	if opts.Ordered() {
		return common.OrderedRefused(mapped)
	}
	return mapped
}

func documentsFromSnapshots(snaps []*firestore.DocumentSnapshot) []Document {
	docs := make([]Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, documentFromSnapshot(snap))
	}
	return docs
}

func documentFromSnapshot(snap *firestore.DocumentSnapshot) Document {
	data := snap.Data()
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = fromFirestore(v)
	}
	return Document{ID: snap.Ref.ID, Data: out}
}

// fromFirestore đổi DocumentRef thành id, giữ nguyên các kiểu còn lại
func fromFirestore(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = fromFirestore(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = fromFirestore(item)
		}
		return out
	case *firestore.DocumentRef:
		if val == nil {
			return nil
		}
		return val.ID
	default:
		return v
	}
}
