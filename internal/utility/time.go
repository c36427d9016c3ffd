package utility

import "time"

// TimestampLayout: ISO-8601, mili giây, UTC, độ dài cố định để so sánh chuỗi đúng thứ tự thời gian
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp định dạng t theo TimestampLayout
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
