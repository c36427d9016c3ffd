// Package models - kiểu dữ liệu đi qua store gateway.
// Record không có schema: caller quyết định shape, gateway chỉ đụng tới id và timestamps.
package models

import (
	"encoding/json"
)

// Các field do gateway quản lý
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// Record là bản ghi dạng map lồng nhau, giá trị JSON được
type Record map[string]interface{}

// Clone trả về bản sao nông của record (map cấp một)
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String trả về giá trị string của field, "" nếu thiếu hoặc khác kiểu
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// StoredRecord là Record đã lưu kèm id do store cấp
type StoredRecord struct {
	ID   string
	Data Record
}

// MarshalJSON trả về object phẳng {id, ...data}; id luôn lấy từ store
func (s StoredRecord) MarshalJSON() ([]byte, error) {
	flat := make(map[string]interface{}, len(s.Data)+1)
	for k, v := range s.Data {
		flat[k] = v
	}
	flat[FieldID] = s.ID
	return json.Marshal(flat)
}

// UnmarshalJSON đọc object phẳng, tách id ra khỏi data
func (s *StoredRecord) UnmarshalJSON(b []byte) error {
	var flat map[string]interface{}
	if err := json.Unmarshal(b, &flat); err != nil {
		return err
	}
	s.ID, _ = flat[FieldID].(string)
	delete(flat, FieldID)
	s.Data = Record(flat)
	return nil
}

// CreatedAt trả về timestamp tạo dạng chuỗi ISO, "" nếu thiếu
func (s StoredRecord) CreatedAt() string {
	return s.Data.String(FieldCreatedAt)
}
