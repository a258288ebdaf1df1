package translation

import (
	"context"
)

// Service 翻译服务接口
type Service interface {
	// Translate 翻译文本；只有输入无效时返回错误
	Translate(ctx context.Context, req *Request) (*Result, error)

	// TranslateText 只返回译文
	TranslateText(ctx context.Context, tenantID, text, sourceLang, targetLang string) (string, error)

	// TranslateBatch 分组批量翻译，结果与输入等长同序
	TranslateBatch(ctx context.Context, req *BatchRequest) ([]string, error)

	// ImproveTranslation 人工修正译文
	ImproveTranslation(ctx context.Context, tenantID, cacheKey, improvedText, userID string) (*CacheEntry, error)

	// Statistics 租户缓存统计
	Statistics(ctx context.Context, tenantID string) (*Statistics, error)

	// Entries 租户缓存快照
	Entries(ctx context.Context, tenantID string) ([]CacheEntry, error)

	// CollectGarbage 删除过期条目
	CollectGarbage(ctx context.Context, tenantID string) (int, error)

	// NormalizeLanguage 校验并规范化语言代码
	NormalizeLanguage(code string) (string, error)

	// Languages 支持的语言
	Languages() []string

	// Backends 按优先级列出后端名称
	Backends() []string

	// Stats 服务计数
	Stats() ServiceStats
}

// CacheStore 译文缓存存储，所有操作按租户隔离
type CacheStore interface {
	// Get 按原文和语言对读取，过期条目视为未命中（ErrNotFound）
	Get(ctx context.Context, tenantID, text, sourceLang, targetLang string) (*CacheEntry, error)

	// GetByKey 按缓存键读取，不检查过期
	GetByKey(ctx context.Context, tenantID, cacheKey string) (*CacheEntry, error)

	// Put 写入条目；覆盖已人工确认的条目时返回 ErrVerifiedEntry
	Put(ctx context.Context, entry *CacheEntry) error

	// MarkVerified 人工确认并替换译文，条目不存在时返回 ErrNotFound
	MarkVerified(ctx context.Context, tenantID, cacheKey, improvedText, verifierID string) (*CacheEntry, error)

	// Statistics 统计租户的缓存条目
	Statistics(ctx context.Context, tenantID string) (*Statistics, error)

	// List 列出租户的缓存条目
	List(ctx context.Context, tenantID string) ([]CacheEntry, error)

	// Delete 删除条目
	Delete(ctx context.Context, tenantID, cacheKey string) error

	// DeleteExpired 删除过期条目并返回数量
	DeleteExpired(ctx context.Context, tenantID string) (int, error)
}

// Dictionary 回退词典
type Dictionary interface {
	Lookup(text, sourceLang, targetLang string) (string, bool)
}

// Scorer 质量评分
type Scorer interface {
	Score(source, translated string) float64
}
