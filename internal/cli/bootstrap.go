package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/evaltrans/internal/config"
	"github.com/nerdneilsfield/evaltrans/internal/docstore"
	"github.com/nerdneilsfield/evaltrans/internal/docstore/postgres"
	"github.com/nerdneilsfield/evaltrans/internal/docstore/redisstore"
	"github.com/nerdneilsfield/evaltrans/pkg/content"
	"github.com/nerdneilsfield/evaltrans/pkg/glossary"
	"github.com/nerdneilsfield/evaltrans/pkg/providers/factory"
	"github.com/nerdneilsfield/evaltrans/pkg/providers/stats"
	"github.com/nerdneilsfield/evaltrans/pkg/quality"
	"github.com/nerdneilsfield/evaltrans/pkg/report"
	"github.com/nerdneilsfield/evaltrans/pkg/translation"
)

// app 按配置组装的运行时组件
type app struct {
	cfg     *config.RuntimeConfig
	log     *zap.Logger
	store   docstore.Store
	stats   *stats.Manager
	service translation.Service
	content *content.Translator
}

// newApp 根据配置创建存储、词典、评分器、后端和服务
func newApp(ctx context.Context, cfg *config.RuntimeConfig, log *zap.Logger) (*app, error) {
	store, err := openStore(ctx, cfg.Store, log)
	if err != nil {
		return nil, err
	}

	dict := glossary.NewBuiltin()
	if cfg.Translation.GlossaryPath != "" {
		if err := dict.LoadFile(cfg.Translation.GlossaryPath); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to load glossary: %w", err)
		}
		log.Info("glossary loaded",
			zap.String("path", cfg.Translation.GlossaryPath),
			zap.Int("pairs", len(dict.Pairs())),
			zap.Int("terms", dict.Len()))
	}

	manager := stats.NewManager(cfg.Translation.StatsPath, log)
	if cfg.Translation.StatsPath != "" {
		if err := manager.Load(); err != nil {
			log.Warn("failed to load backend stats", zap.Error(err))
		}
	}

	registry, err := factory.New(log, manager, cfg.Translation.BackendTimeout).BuildRegistry(cfg.Backends)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	svcConfig := translation.DefaultConfig()
	svcConfig.SupportedLanguages = cfg.Languages.Supported
	svcConfig.BackendTimeout = cfg.Translation.BackendTimeout
	svcConfig.BatchSize = cfg.Translation.BatchSize
	svcConfig.BatchDelay = cfg.Translation.BatchDelay
	svcConfig.DisableBackends = cfg.Translation.DisableBackends
	svcConfig.MaxTextLength = cfg.Translation.MaxTextLength

	cache := translation.NewDocumentCache(store,
		translation.WithTTL(cfg.Translation.CacheTTL),
		translation.WithQualityThresholds(cfg.Quality.HighThreshold, cfg.Quality.MediumThreshold))

	service, err := translation.New(svcConfig,
		translation.WithRegistry(registry),
		translation.WithCache(cache),
		translation.WithDictionary(dict),
		translation.WithScorer(quality.NewScorer(scorerConfig(cfg.Quality))),
		translation.WithLogger(log.Named("translation")))
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &app{
		cfg:     cfg,
		log:     log,
		store:   store,
		stats:   manager,
		service: service,
		content: content.NewTranslator(service, store, content.WithLogger(log.Named("content"))),
	}, nil
}

// Close 保存统计并关闭存储
func (a *app) Close() {
	if a.cfg.Translation.StatsPath != "" {
		if err := a.stats.Save(); err != nil {
			a.log.Warn("failed to save backend stats", zap.Error(err))
		}
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("failed to close store", zap.Error(err))
	}
}

// thresholds 报告使用的分档阈值
func (a *app) thresholds() report.Thresholds {
	return report.Thresholds{High: a.cfg.Quality.HighThreshold, Medium: a.cfg.Quality.MediumThreshold}
}

// openStore 按驱动创建文档存储
func openStore(ctx context.Context, cfg config.StoreConfig, log *zap.Logger) (docstore.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory, "":
		return docstore.NewMemoryStore(), nil
	case config.DriverPostgres:
		store, err := postgres.New(ctx, postgres.Config{DSN: cfg.DSN, MaxConns: cfg.MaxConns}, log.Named("postgres"))
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil
	case config.DriverRedis:
		return redisstore.New(ctx, redisstore.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		}, log.Named("redis"))
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

func scorerConfig(q config.QualityConfig) quality.Config {
	return quality.Config{
		BaseScore:       q.BaseScore,
		LengthBonus:     q.LengthBonus,
		MinLengthRatio:  q.MinLengthRatio,
		MaxLengthRatio:  q.MaxLengthRatio,
		TermWeight:      q.TermWeight,
		HighThreshold:   q.HighThreshold,
		MediumThreshold: q.MediumThreshold,
		Terms:           q.Terms,
	}
}
