package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/evaltrans/pkg/providers"
)

// Config 重试配置
type Config struct {
	MaxRetries    int           `json:"max_retries"`
	InitialDelay  time.Duration `json:"initial_delay"`
	MaxDelay      time.Duration `json:"max_delay"`
	BackoffFactor float64       `json:"backoff_factor"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		MaxRetries:    2,
		InitialDelay:  200 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
	}
}

// Provider 对瞬时错误做指数退避重试的后端包装
type Provider struct {
	next   providers.TranslationProvider
	config Config
	logger *zap.Logger
}

var _ providers.TranslationProvider = (*Provider)(nil)

// New 包装后端；MaxRetries <= 0 时原样返回
func New(next providers.TranslationProvider, config Config, logger *zap.Logger) providers.TranslationProvider {
	if config.MaxRetries <= 0 {
		return next
	}
	if config.BackoffFactor < 1 {
		config.BackoffFactor = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{next: next, config: config, logger: logger}
}

// Translate 调用下游，只有可重试的后端错误才会重试，ctx 结束时立即返回
func (p *Provider) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	delay := p.config.InitialDelay
	var lastErr error

	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Debug("retrying backend",
				zap.String("backend", p.next.GetName()),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr))

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, lastErr
			case <-timer.C:
			}
			delay = p.nextDelay(delay)
		}

		resp, err := p.next.Translate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !isRetryable(err) || ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// GetName 获取下游名称
func (p *Provider) GetName() string {
	return p.next.GetName()
}

func (p *Provider) nextDelay(current time.Duration) time.Duration {
	next := time.Duration(float64(current) * p.config.BackoffFactor)
	if p.config.MaxDelay > 0 && next > p.config.MaxDelay {
		return p.config.MaxDelay
	}
	return next
}

func isRetryable(err error) bool {
	var backendErr *providers.BackendError
	return errors.As(err, &backendErr) && backendErr.IsRetryable()
}
