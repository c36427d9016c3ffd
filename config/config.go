package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

// Các backend lưu trữ được hỗ trợ
const (
	BackendMongoDB   = "mongodb"
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
)

// Configuration chứa thông tin tĩnh cần thiết để chạy gateway
type Configuration struct {
	Address      string `env:"ADDRESS" envDefault:"8080"`           // Cổng server
	StoreBackend string `env:"STORE_BACKEND" envDefault:"mongodb"` // mongodb | firestore | memory

	MongoDB_ConnectionURI string `env:"MONGODB_CONNECTION_URI"`                    // URL kết nối MongoDB
	MongoDB_DBName        string `env:"MONGODB_DBNAME" envDefault:"fireflynexus"` // Tên database chứa các collection nghiệp vụ

	// Firebase / Firestore
	FirebaseProjectID       string `env:"FIREBASE_PROJECT_ID"`       // Firebase Project ID
	FirebaseCredentialsPath string `env:"FIREBASE_CREDENTIALS_PATH"` // Đường dẫn đến service account JSON

	// Store gateway
	Store_ProbeCollection   string `env:"STORE_PROBE_COLLECTION" envDefault:"_healthcheck"` // Collection dùng để probe, nằm ngoài registry
	Store_ReadTimeoutMs     int    `env:"STORE_READ_TIMEOUT_MS" envDefault:"2000"`          // Timeout cho mỗi lần đọc danh sách
	Settings_CacheTTLSecond int    `env:"SETTINGS_CACHE_TTL_SECONDS" envDefault:"300"`      // TTL cache cấu hình

	CORS_Origins          string `env:"CORS_ORIGINS" envDefault:"*"`               // Các origins được phép (phân cách bởi dấu phẩy, * = tất cả)
	CORS_AllowCredentials bool   `env:"CORS_ALLOW_CREDENTIALS" envDefault:"false"` // Cho phép gửi credentials
	RateLimit_Max         int    `env:"RATE_LIMIT_MAX" envDefault:"100"`           // Số request tối đa trong window
	RateLimit_Window      int    `env:"RATE_LIMIT_WINDOW" envDefault:"60"`         // Thời gian window (giây)
	RateLimit_Enabled     bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"`      // Bật/tắt rate limiting
}

// ReadTimeout trả về timeout đọc dưới dạng time.Duration
func (c *Configuration) ReadTimeout() time.Duration {
	return time.Duration(c.Store_ReadTimeoutMs) * time.Millisecond
}

// SettingsTTL trả về TTL cache cấu hình
func (c *Configuration) SettingsTTL() time.Duration {
	return time.Duration(c.Settings_CacheTTLSecond) * time.Second
}

// Validate kiểm tra các giá trị phụ thuộc vào backend đã chọn
func (c *Configuration) Validate() error {
	c.StoreBackend = strings.ToLower(strings.TrimSpace(c.StoreBackend))
	switch c.StoreBackend {
	case BackendMongoDB:
		if c.MongoDB_ConnectionURI == "" {
			return fmt.Errorf("MONGODB_CONNECTION_URI is required for backend %q", c.StoreBackend)
		}
	case BackendFirestore:
		if c.FirebaseProjectID == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required for backend %q", c.StoreBackend)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unsupported STORE_BACKEND %q", c.StoreBackend)
	}
	if c.Store_ReadTimeoutMs <= 0 {
		return fmt.Errorf("STORE_READ_TIMEOUT_MS must be positive, got %d", c.Store_ReadTimeoutMs)
	}
	if c.Store_ProbeCollection == "" {
		return fmt.Errorf("STORE_PROBE_COLLECTION must not be empty")
	}
	return nil
}

// getEnvPath trả về đường dẫn đến file env dựa trên môi trường
func getEnvPath() string {
	// Mặc định sử dụng môi trường development
	goEnv := os.Getenv("GO_ENV")
	if goEnv == "" {
		goEnv = "development"
	}

	currentDir, err := os.Getwd()
	if err != nil {
		return ""
	}

	// Tìm thư mục config/env bằng cách đi lên
	for {
		envDir := filepath.Join(currentDir, "config", "env")
		if _, err := os.Stat(envDir); err == nil {
			return filepath.Join(envDir, fmt.Sprintf("%s.env", goEnv))
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return ""
		}
		currentDir = parentDir
	}
}

// NewConfig đọc cấu hình từ file env (nếu có) rồi từ biến môi trường.
// files cho phép chỉ định file env cụ thể thay cho config/env/<GO_ENV>.env.
func NewConfig(files ...string) (*Configuration, error) {
	if len(files) == 0 {
		if envPath := getEnvPath(); envPath != "" {
			files = []string{envPath}
		}
	}

	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			// Sử dụng fmt.Printf vì logger có thể chưa được init ở đây
			fmt.Printf("Bỏ qua file env %s: %v\n", f, err)
			continue
		}
		// godotenv.Load không ghi đè biến đã có trong môi trường
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", f, err)
		}
	}

	cfg := Configuration{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
