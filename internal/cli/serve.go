package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/evaltrans/internal/auth"
	"github.com/nerdneilsfield/evaltrans/internal/server"
)

func newServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer func() {
				_ = log.Sync()
			}()
			if addr != "" {
				cfg.Server.Addr = addr
			}

			authenticator, err := auth.New(cfg.Auth)
			if err != nil {
				return err
			}
			if cfg.Auth.TrustHeaders {
				log.Warn("trusting identity headers, do not expose this server publicly")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			if cfg.Translation.StatsPath != "" {
				go a.stats.AutoSaveRoutine(ctx, time.Minute)
			}

			srv, err := server.New(cfg.Server, server.Deps{
				Service:    a.service,
				Content:    a.content,
				Stats:      a.stats,
				Auth:       authenticator,
				Thresholds: a.thresholds(),
				Logger:     log,
			})
			if err != nil {
				return err
			}

			log.Info("evaltrans starting",
				zap.String("store", cfg.Store.Driver),
				zap.Strings("languages", a.service.Languages()),
				zap.Strings("backends", a.service.Backends()))
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "监听地址，覆盖 server.addr")
	return cmd
}

// commandContext 命令的 context，未设置时使用 Background
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
