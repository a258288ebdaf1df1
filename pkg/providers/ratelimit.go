package providers

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimited 为后端增加每分钟请求数限制
type RateLimited struct {
	next    TranslationProvider
	limiter *rate.Limiter
}

var _ TranslationProvider = (*RateLimited)(nil)

// NewRateLimited 包装后端；requestsPerMinute <= 0 时原样返回
func NewRateLimited(next TranslationProvider, requestsPerMinute int) TranslationProvider {
	if requestsPerMinute <= 0 {
		return next
	}
	interval := time.Minute / time.Duration(requestsPerMinute)
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Translate 等待令牌后调用下游；等待超出 ctx 期限视为后端失败
func (r *RateLimited) Translate(ctx context.Context, req *ProviderRequest) (*ProviderResponse, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, &BackendError{Backend: r.next.GetName(), Message: "rate limit wait", Err: err}
	}
	return r.next.Translate(ctx, req)
}

// GetName 获取下游名称
func (r *RateLimited) GetName() string {
	return r.next.GetName()
}

// Unwrap 返回被包装的后端
func (r *RateLimited) Unwrap() TranslationProvider {
	return r.next
}
