package global

import (
	"github.com/go-playground/validator/v10"

	"github.com/joao-augusto-1103/fireflynexus-sub002/config"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/database"
)

// Các biến toàn cục
var Validate *validator.Validate       // Biến để xác thực dữ liệu
var ServerConfig *config.Configuration // Cấu hình của server
var Store database.DocumentStore       // Kho dữ liệu đang dùng (mongodb, firestore, memory)
