package translation

import (
	"go.uber.org/zap"

	"github.com/nerdneilsfield/evaltrans/pkg/providers"
)

// Option 服务配置选项函数
type Option func(*serviceOptions)

// serviceOptions 服务内部选项
type serviceOptions struct {
	backends   []providers.TranslationProvider
	registry   *providers.Registry
	cache      CacheStore
	dictionary Dictionary
	scorer     Scorer
	logger     *zap.Logger
}

// WithBackends 按优先级设置后端
func WithBackends(backends ...providers.TranslationProvider) Option {
	return func(o *serviceOptions) {
		o.backends = append(o.backends, backends...)
	}
}

// WithRegistry 使用注册表中的后端，顺序即优先级
func WithRegistry(registry *providers.Registry) Option {
	return func(o *serviceOptions) {
		o.registry = registry
	}
}

// WithCache 设置缓存
func WithCache(cache CacheStore) Option {
	return func(o *serviceOptions) {
		o.cache = cache
	}
}

// WithDictionary 设置回退词典
func WithDictionary(dictionary Dictionary) Option {
	return func(o *serviceOptions) {
		o.dictionary = dictionary
	}
}

// WithScorer 设置质量评分器
func WithScorer(scorer Scorer) Option {
	return func(o *serviceOptions) {
		o.scorer = scorer
	}
}

// WithLogger 设置logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}
