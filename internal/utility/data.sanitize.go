package utility

import (
	"reflect"
)

// absentValue đánh dấu field "không có giá trị", khác với null
type absentValue struct{}

// Absent là giá trị caller đặt vào field để báo field đó không tồn tại.
// Sanitize xoá mọi key mang giá trị này trước khi ghi xuống store.
var Absent interface{} = absentValue{}

// IsAbsent cho biết v có bị coi là "không có giá trị" hay không:
// sentinel Absent, con trỏ/interface/map/slice nil có kiểu, func, chan,
// số phức và unsafe pointer (không biểu diễn được trong JSON).
// nil không kiểu là JSON null và được giữ lại.
func IsAbsent(v interface{}) bool {
	if v == nil {
		return false
	}
	if _, ok := v.(absentValue); ok {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// SanitizeRecord trả về bản sao của record đã loại bỏ các giá trị absent ở mọi cấp.
// Record đầu vào không bị thay đổi.
func SanitizeRecord(record map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(record))
	for k, v := range record {
		if IsAbsent(v) {
			continue
		}
		out[k] = Sanitize(v)
	}
	return out
}

// Sanitize làm sạch một giá trị bất kỳ:
//   - map với key string được làm sạch đệ quy và chuyển về map[string]interface{}
//   - slice (trừ []byte) bỏ phần tử absent, chuyển về []interface{}
//   - con trỏ khác nil được thay bằng giá trị nó trỏ tới
//   - map/slice nil trở thành null
//
// Sanitize là idempotent: Sanitize(Sanitize(v)) == Sanitize(v).
func Sanitize(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case map[string]interface{}:
		if val == nil {
			return nil
		}
		return SanitizeRecord(val)
	case []interface{}:
		if val == nil {
			return nil
		}
		return sanitizeList(val)
	case string, bool, float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, []byte:
		return v
	}

	if IsAbsent(v) {
		return nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr:
		return Sanitize(rv.Elem().Interface())
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		if rv.IsNil() {
			return nil
		}
		out := make(map[string]interface{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			item := iter.Value().Interface()
			if IsAbsent(item) {
				continue
			}
			out[iter.Key().String()] = Sanitize(item)
		}
		return out
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v
		}
		items := make([]interface{}, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			items[i] = rv.Index(i).Interface()
		}
		return sanitizeList(items)
	}

	return v
}

func sanitizeList(items []interface{}) []interface{} {
	out := make([]interface{}, 0, len(items))
	for _, item := range items {
		if IsAbsent(item) {
			continue
		}
		out = append(out, Sanitize(item))
	}
	return out
}
