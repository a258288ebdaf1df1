package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/evaltrans/internal/auth"
	"github.com/nerdneilsfield/evaltrans/internal/config"
	"github.com/nerdneilsfield/evaltrans/internal/docstore/postgres"
	"github.com/nerdneilsfield/evaltrans/pkg/report"
)

func newImproveCommand() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "improve CACHE_KEY TEXT",
		Short: "人工修正一条译文",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			entry, err := a.service.ImproveTranslation(ctx, tenantID, args[0], args[1], user)
			if err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✅ %s: %s\n", entry.CacheKey, entry.TranslatedText)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", os.Getenv("USER"), "修正人")
	return cmd
}

func newExportCommand() *cobra.Command {
	var (
		format string
		output string
		filter report.Filter
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "导出租户的译文快照",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := filter.Validate(); err != nil {
				return err
			}
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.service.Entries(ctx, tenantID)
			if err != nil {
				return err
			}
			entries = report.Apply(entries, filter, a.thresholds())

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				w = f
			}
			if err := report.Write(w, format, entries, a.thresholds()); err != nil {
				return err
			}
			log.Info("translations exported", zap.Int("count", len(entries)), zap.String("format", format))
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", report.FormatJSON, "导出格式 (json, csv)")
	cmd.Flags().StringVar(&output, "output", "", "输出文件 (默认标准输出)")
	cmd.Flags().StringVar(&filter.Bucket, "bucket", "", "质量分档 (verified, high, medium, low, unverified)")
	cmd.Flags().StringVar(&filter.SourceLanguage, "source", "", "源语言")
	cmd.Flags().StringVar(&filter.TargetLanguage, "target", "", "目标语言")
	cmd.Flags().StringVar(&filter.Service, "service", "", "来源 (automatic, fallback, manual)")
	cmd.Flags().StringVarP(&filter.Query, "query", "q", "", "模糊匹配原文或译文")
	return cmd
}

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "译文缓存维护",
	}

	gc := &cobra.Command{
		Use:   "gc",
		Short: "删除过期的自动译文，人工确认的译文不会被删除",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.service.CollectGarbage(ctx, tenantID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired translations\n", n)
			return nil
		},
	}

	cmd.AddCommand(gc)
	return cmd
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "执行 PostgreSQL 数据库迁移",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Store.Driver != config.DriverPostgres {
				return fmt.Errorf("migrate requires store.driver=postgres, got %q", cfg.Store.Driver)
			}

			store, err := postgres.New(commandContext(cmd), postgres.Config{
				DSN:      cfg.Store.DSN,
				MaxConns: cfg.Store.MaxConns,
			}, log)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newTokenCommand() *cobra.Command {
	var (
		user  string
		email string
		ttl   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "签发开发用的访问令牌",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			authenticator, err := auth.New(cfg.Auth)
			if err != nil {
				return err
			}
			token, err := authenticator.IssueToken(auth.Identity{UserID: user, Email: email, TenantID: tenantID}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "用户 ID")
	cmd.Flags().StringVar(&email, "email", "", "邮箱")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "有效期")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
