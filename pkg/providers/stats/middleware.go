package stats

import (
	"context"
	"time"

	"github.com/nerdneilsfield/evaltrans/pkg/providers"
)

// Middleware 统计中间件
type Middleware struct {
	next    providers.TranslationProvider
	manager *Manager
}

var _ providers.TranslationProvider = (*Middleware)(nil)

// NewMiddleware 创建统计中间件
func NewMiddleware(next providers.TranslationProvider, manager *Manager) *Middleware {
	return &Middleware{next: next, manager: manager}
}

// Translate 带统计的翻译方法
func (m *Middleware) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	start := time.Now()
	resp, err := m.next.Translate(ctx, req)
	m.manager.Record(m.next.GetName(), RequestResult{
		Success: err == nil,
		Latency: time.Since(start),
		Err:     err,
	})
	return resp, err
}

// GetName 获取下游名称
func (m *Middleware) GetName() string {
	return m.next.GetName()
}
