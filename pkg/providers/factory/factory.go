package factory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/evaltrans/internal/config"
	"github.com/nerdneilsfield/evaltrans/pkg/providers"
	"github.com/nerdneilsfield/evaltrans/pkg/providers/deepl"
	"github.com/nerdneilsfield/evaltrans/pkg/providers/deeplx"
	"github.com/nerdneilsfield/evaltrans/pkg/providers/google"
	"github.com/nerdneilsfield/evaltrans/pkg/providers/libretranslate"
	"github.com/nerdneilsfield/evaltrans/pkg/providers/ollama"
	"github.com/nerdneilsfield/evaltrans/pkg/providers/openai"
	"github.com/nerdneilsfield/evaltrans/pkg/providers/rest"
	"github.com/nerdneilsfield/evaltrans/pkg/providers/retry"
	"github.com/nerdneilsfield/evaltrans/pkg/providers/stats"
)

// ProviderFactory 提供商工厂
type ProviderFactory struct {
	stats          *stats.Manager
	logger         *zap.Logger
	defaultTimeout time.Duration
}

// New 创建新的提供商工厂；manager 为空时不做统计
func New(logger *zap.Logger, manager *stats.Manager, defaultTimeout time.Duration) *ProviderFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultTimeout <= 0 {
		defaultTimeout = providers.DefaultConfig().Timeout
	}
	return &ProviderFactory{
		stats:          manager,
		logger:         logger,
		defaultTimeout: defaultTimeout,
	}
}

// BuildRegistry 按配置顺序构建后端注册表，缺少凭证或已禁用的后端被跳过
func (f *ProviderFactory) BuildRegistry(backends []config.BackendConfig) (*providers.Registry, error) {
	registry := providers.NewRegistry()

	for _, b := range backends {
		name := b.DisplayName()
		if b.Disabled {
			f.logger.Info("backend disabled", zap.String("backend", name))
			continue
		}

		provider, err := f.CreateProvider(b)
		if errors.Is(err, providers.ErrMissingCredential) {
			f.logger.Warn("backend skipped: credential not configured", zap.String("backend", name))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create backend %s: %w", name, err)
		}

		if err := registry.Register(name, provider); err != nil {
			return nil, err
		}
		f.logger.Info("backend registered",
			zap.String("backend", name),
			zap.String("type", b.Type),
			zap.Int("requests_per_minute", b.RequestsPerMinute))
	}

	return registry, nil
}

// CreateProvider 根据配置创建提供商，按需包装统计、限速与重试
func (f *ProviderFactory) CreateProvider(b config.BackendConfig) (providers.TranslationProvider, error) {
	base := f.baseConfig(b)

	var (
		provider providers.TranslationProvider
		err      error
	)
	switch b.Type {
	case "deepl":
		provider, err = deepl.New(deepl.Config{BaseConfig: base, UseFreeAPI: b.UseFreeAPI})
	case "deeplx":
		provider, err = deeplx.New(deeplx.Config{BaseConfig: base})
	case "google":
		provider, err = google.New(google.Config{BaseConfig: base, ProjectID: b.ProjectID})
	case "libretranslate":
		provider, err = libretranslate.New(libretranslate.Config{
			BaseConfig:     base,
			RequiresAPIKey: requiresKey(b, false),
		})
	case "ollama":
		cfg := ollama.DefaultConfig()
		cfg.BaseConfig = base
		if b.Model != "" {
			cfg.Model = b.Model
		}
		if b.Temperature > 0 {
			cfg.Temperature = b.Temperature
		}
		if b.MaxTokens > 0 {
			cfg.MaxTokens = b.MaxTokens
		}
		provider, err = ollama.New(cfg)
	case "openai":
		cfg := openai.DefaultConfig()
		cfg.BaseConfig = base
		cfg.OrgID = b.OrgID
		if b.Model != "" {
			cfg.Model = b.Model
		}
		if b.Temperature > 0 {
			cfg.Temperature = b.Temperature
		}
		if b.MaxTokens > 0 {
			cfg.MaxTokens = b.MaxTokens
		}
		provider, err = openai.New(cfg)
	case "rest":
		provider, err = rest.New(rest.Config{
			BaseConfig:     base,
			Name:           b.DisplayName(),
			RequiresAPIKey: requiresKey(b, true),
		})
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", b.Type)
	}
	if err != nil {
		return nil, err
	}

	if name := b.DisplayName(); provider.GetName() != name {
		provider = &renamed{TranslationProvider: provider, name: name}
	}
	if f.stats != nil {
		provider = stats.NewMiddleware(provider, f.stats)
	}
	provider = providers.NewRateLimited(provider, b.RequestsPerMinute)
	return retry.New(provider, f.retryConfig(b), f.logger), nil
}

// retryConfig 每次重试都重新经过限速与统计
func (f *ProviderFactory) retryConfig(b config.BackendConfig) retry.Config {
	cfg := retry.DefaultConfig()
	cfg.MaxRetries = b.MaxRetries
	if b.RetryDelay > 0 {
		cfg.InitialDelay = b.RetryDelay
	}
	return cfg
}

func (f *ProviderFactory) baseConfig(b config.BackendConfig) providers.BaseConfig {
	base := providers.DefaultConfig()
	base.APIKey = b.Key()
	base.APIEndpoint = b.Endpoint
	base.RequestsPerMinute = b.RequestsPerMinute
	base.Timeout = f.defaultTimeout
	if b.Timeout > 0 {
		base.Timeout = b.Timeout
	}
	for k, v := range b.Headers {
		base.Headers[k] = v
	}
	return base
}

func requiresKey(b config.BackendConfig, def bool) bool {
	if b.RequiresAPIKey == nil {
		return def
	}
	return *b.RequiresAPIKey
}

// renamed 使用配置中的名称替换后端默认名称
type renamed struct {
	providers.TranslationProvider
	name string
}

func (r *renamed) GetName() string {
	return r.name
}

func (r *renamed) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	resp, err := r.TranslationProvider.Translate(ctx, req)
	var backendErr *providers.BackendError
	if errors.As(err, &backendErr) {
		backendErr.Backend = r.name
	}
	return resp, err
}
