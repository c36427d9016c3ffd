package logger

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// filteredKey đánh dấu entry bị FilterHook loại bỏ
const filteredKey = "_filtered"

// AsyncHook ghi log bất đồng bộ vào nhiều writers trong một goroutine riêng.
// Khi buffer đầy, entry mới bị bỏ qua thay vì block caller.
type AsyncHook struct {
	writers []io.Writer
	entries chan *logrus.Entry
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
}

// NewAsyncHookWithWriters tạo async hook với nhiều writers.
// bufferSize <= 0 dùng mặc định 1000 entries.
func NewAsyncHookWithWriters(writers []io.Writer, bufferSize int) *AsyncHook {
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	hook := &AsyncHook{
		writers: writers,
		entries: make(chan *logrus.Entry, bufferSize),
	}

	hook.wg.Add(1)
	go hook.processEntries()

	return hook
}

// Levels trả về các log levels mà hook này xử lý
func (h *AsyncHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire không block, chỉ đưa entry vào channel
func (h *AsyncHook) Fire(entry *logrus.Entry) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		// Hook đã đóng: ghi trực tiếp
		h.write(entry)
		return nil
	}

	select {
	case h.entries <- snapshot(entry):
	default:
		// Channel đầy, bỏ qua để không block request
	}
	return nil
}

// snapshot sao chép entry: logrus tái sử dụng Buffer sau khi các hook chạy xong
func snapshot(entry *logrus.Entry) *logrus.Entry {
	data := make(logrus.Fields, len(entry.Data))
	for k, v := range entry.Data {
		data[k] = v
	}
	return &logrus.Entry{
		Logger:  entry.Logger,
		Data:    data,
		Time:    entry.Time,
		Level:   entry.Level,
		Caller:  entry.Caller,
		Message: entry.Message,
		Context: entry.Context,
	}
}

// processEntries xử lý entries, có recover để goroutine logger không làm sập server
func (h *AsyncHook) processEntries() {
	defer h.wg.Done()

	for entry := range h.entries {
		func() {
			defer func() {
				if r := recover(); r != nil {
					fmt.Fprintf(os.Stderr, "[LOGGER PANIC] Logger goroutine panic recovered: %v\n", r)
					debug.PrintStack()
				}
			}()
			h.write(entry)
		}()
	}
}

// write format entry và ghi vào tất cả writers
func (h *AsyncHook) write(entry *logrus.Entry) {
	if filtered, ok := entry.Data[filteredKey].(bool); ok && filtered {
		return
	}

	var data []byte
	var err error
	if entry.Logger != nil && entry.Logger.Formatter != nil {
		data, err = entry.Logger.Formatter.Format(entry)
	} else {
		var line string
		line, err = entry.String()
		data = []byte(line)
	}
	if err != nil {
		return
	}

	for _, writer := range h.writers {
		// Một writer lỗi không ảnh hưởng writer khác
		_, _ = writer.Write(data)
	}
}

// Close đóng hook và đợi tất cả entries được ghi xong
func (h *AsyncHook) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	close(h.entries)
	h.mu.Unlock()

	h.wg.Wait()
	return nil
}

// FilterHook lọc log entries theo module, collection và log level.
// Entry bị lọc được đánh dấu bằng field "_filtered" để AsyncHook bỏ qua.
type FilterHook struct {
	allowedModules     map[string]bool
	allowedCollections map[string]bool
	allowedLogTypes    map[string]bool
}

// NewFilterHook tạo filter hook từ cấu hình
func NewFilterHook(cfg *LogConfig) *FilterHook {
	return &FilterHook{
		allowedModules:     parseFilter(cfg.FilterModules),
		allowedCollections: parseFilter(cfg.FilterCollections),
		allowedLogTypes:    parseFilter(cfg.FilterLogTypes),
	}
}

// parseFilter parse "a,b,c" thành set; rỗng hoặc "*" trả về nil (cho phép tất cả)
func parseFilter(filterStr string) map[string]bool {
	filterStr = strings.TrimSpace(filterStr)
	if filterStr == "" || filterStr == "*" {
		return nil
	}

	result := make(map[string]bool)
	for _, v := range strings.Split(filterStr, ",") {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			result[v] = true
		}
	}
	return result
}

// Levels trả về các log levels mà hook này xử lý
func (h *FilterHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire đánh dấu entry không khớp filter
func (h *FilterHook) Fire(entry *logrus.Entry) error {
	if h.allowedLogTypes != nil && !h.allowedLogTypes[strings.ToLower(entry.Level.String())] {
		entry.Data[filteredKey] = true
		return nil
	}
	if !allowedField(h.allowedModules, entry.Data["module"]) ||
		!allowedField(h.allowedCollections, entry.Data["collection"]) {
		entry.Data[filteredKey] = true
	}
	return nil
}

// allowedField: entry không có field thì không bị lọc
func allowedField(allowed map[string]bool, value interface{}) bool {
	if allowed == nil {
		return true
	}
	s, ok := value.(string)
	if !ok || s == "" {
		return true
	}
	return allowed[strings.ToLower(s)]
}
