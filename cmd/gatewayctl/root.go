package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joao-augusto-1103/fireflynexus-sub002/config"
	gwsvc "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/gateway/service"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/database"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/global"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/logger"
)

// RootOptions chứa các flag dùng chung cho mọi lệnh
type RootOptions struct {
	EnvFile string // file env thay cho config/env/<GO_ENV>.env
	Backend string // ghi đè STORE_BACKEND
	Verbose bool

	// openStore mở store theo cấu hình; test thay bằng store trong bộ nhớ
	openStore func(ctx context.Context, cfg *config.Configuration) (database.DocumentStore, error)
}

// NewRootCommand tạo lệnh gốc gatewayctl
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{openStore: database.OpenStore})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "gatewayctl",
		Short:         "Operator CLI for the FireflyNexus store gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := logger.DefaultConfig()
			cfg.Output = "stderr"
			cfg.Level = "warn"
			if opts.Verbose {
				cfg.Level = "debug"
			}
			return logger.Init(cfg)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "env file to load instead of config/env/<GO_ENV>.env")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "override STORE_BACKEND (mongodb|firestore|memory)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log debug output to stderr")

	cmd.AddCommand(newProbeCommand(opts))
	cmd.AddCommand(newCollectionsCommand())
	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newEnsureCustomerCommand(opts))
	cmd.AddCommand(newDuplicatesCommand(opts))

	return cmd
}

// loadConfig đọc cấu hình, áp dụng --backend trước khi validate
func (o *RootOptions) loadConfig() (*config.Configuration, error) {
	if o.Backend != "" {
		if err := os.Setenv("STORE_BACKEND", o.Backend); err != nil {
			return nil, err
		}
	}
	var files []string
	if o.EnvFile != "" {
		files = append(files, o.EnvFile)
	}
	return config.NewConfig(files...)
}

// openGateway mở store và tạo gateway; caller gọi hàm close trả về khi xong
func (o *RootOptions) openGateway(ctx context.Context) (*gwsvc.Gateway, func(), error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	global.ServerConfig = cfg

	store, err := o.openStore(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}

	gw := gwsvc.NewGateway(store, gwsvc.Options{
		ReadTimeout:     cfg.ReadTimeout(),
		ProbeCollection: cfg.Store_ProbeCollection,
		SettingsTTL:     cfg.SettingsTTL(),
	})
	closeFn := func() {
		gw.Close()
		if err := store.Close(context.WithoutCancel(ctx)); err != nil {
			logger.GetAppLogger().WithError(err).Warn("Failed to close store")
		}
	}
	return gw, closeFn, nil
}
