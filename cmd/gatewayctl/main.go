// Command gatewayctl là công cụ vận hành cho store gateway: probe store, xem bảng collection,
// đọc một collection và tự đăng ký customer mà không cần chạy server.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
