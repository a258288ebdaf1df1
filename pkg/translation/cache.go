package translation

import (
	"context"
	"errors"
	"time"

	"github.com/nerdneilsfield/evaltrans/internal/docstore"
)

// CacheCollection 缓存集合名
const CacheCollection = "translation_cache"

// DefaultCacheTTL 自动译文的有效期
const DefaultCacheTTL = 30 * 24 * time.Hour

// DocumentCache 基于文档存储的缓存实现
type DocumentCache struct {
	store  docstore.Store
	ttl    time.Duration
	now    func() time.Time
	high   float64
	medium float64
}

var _ CacheStore = (*DocumentCache)(nil)

// CacheOption 缓存配置选项
type CacheOption func(*DocumentCache)

// WithTTL 设置自动译文有效期
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *DocumentCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock 设置时钟
func WithClock(now func() time.Time) CacheOption {
	return func(c *DocumentCache) {
		c.now = now
	}
}

// WithQualityThresholds 设置统计时使用的分档阈值
func WithQualityThresholds(high, medium float64) CacheOption {
	return func(c *DocumentCache) {
		c.high = high
		c.medium = medium
	}
}

// NewDocumentCache 创建缓存
func NewDocumentCache(store docstore.Store, opts ...CacheOption) *DocumentCache {
	c := &DocumentCache{
		store:  store,
		ttl:    DefaultCacheTTL,
		now:    time.Now,
		high:   0.8,
		medium: 0.5,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func documentID(tenantID, cacheKey string) string {
	return tenantID + "_" + cacheKey
}

// Get 按原文和语言对读取
func (c *DocumentCache) Get(ctx context.Context, tenantID, text, sourceLang, targetLang string) (*CacheEntry, error) {
	entry, err := c.GetByKey(ctx, tenantID, CacheKey(text, sourceLang, targetLang))
	if err != nil {
		return nil, err
	}
	if entry.Expired(c.now()) {
		return nil, ErrNotFound
	}
	return entry, nil
}

// GetByKey 按缓存键读取
func (c *DocumentCache) GetByKey(ctx context.Context, tenantID, cacheKey string) (*CacheEntry, error) {
	doc, err := c.store.Get(ctx, CacheCollection, documentID(tenantID, cacheKey))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var entry CacheEntry
	if err := docstore.Decode(doc, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Put 写入条目。自动来源的写入不会覆盖已人工确认的条目
func (c *DocumentCache) Put(ctx context.Context, entry *CacheEntry) error {
	if entry.TenantID == "" {
		return NewValidationError("tenantId", "tenant is required")
	}
	if entry.CacheKey == "" {
		entry.CacheKey = CacheKey(entry.SourceText, entry.SourceLanguage, entry.TargetLanguage)
	}

	now := c.now()
	manual := entry.ManualVerified || entry.TranslationService == ServiceManual

	err := c.store.Update(ctx, CacheCollection, documentID(entry.TenantID, entry.CacheKey),
		func(current docstore.Document, exists bool) (docstore.Document, error) {
			if exists && !manual {
				var prev CacheEntry
				if err := docstore.Decode(current, &prev); err != nil {
					return nil, err
				}
				if prev.ManualVerified {
					return nil, ErrVerifiedEntry
				}
			}

			entry.CreatedAt = now
			if manual {
				entry.ManualVerified = true
				entry.TranslationService = ServiceManual
				entry.QualityScore = 1.0
				entry.ExpiresAt = nil
				if entry.VerifiedAt == nil {
					entry.VerifiedAt = &now
				}
			} else {
				expires := now.Add(c.ttl)
				entry.ExpiresAt = &expires
			}
			return docstore.Encode(entry)
		})
	if errors.Is(err, ErrVerifiedEntry) {
		return err
	}
	if err != nil {
		return NewPersistenceError("put translation cache entry", err)
	}
	return nil
}

// MarkVerified 人工确认译文，分数固定为 1.0 且不再过期
func (c *DocumentCache) MarkVerified(ctx context.Context, tenantID, cacheKey, improvedText, verifierID string) (*CacheEntry, error) {
	var updated CacheEntry
	err := c.store.Update(ctx, CacheCollection, documentID(tenantID, cacheKey),
		func(current docstore.Document, exists bool) (docstore.Document, error) {
			if !exists {
				return nil, ErrNotFound
			}
			if err := docstore.Decode(current, &updated); err != nil {
				return nil, err
			}

			now := c.now()
			updated.TranslatedText = improvedText
			updated.ManualVerified = true
			updated.TranslationService = ServiceManual
			updated.QualityScore = 1.0
			updated.VerifiedBy = verifierID
			updated.VerifiedAt = &now
			updated.ExpiresAt = nil
			return docstore.Encode(&updated)
		})
	if errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, NewPersistenceError("mark translation verified", err)
	}
	return &updated, nil
}

// List 列出租户的所有条目（包括过期条目），按文档 ID 排序
func (c *DocumentCache) List(ctx context.Context, tenantID string) ([]CacheEntry, error) {
	docs, err := c.store.Query(ctx, CacheCollection, docstore.Eq("tenantId", tenantID))
	if err != nil {
		return nil, err
	}

	entries := make([]CacheEntry, 0, len(docs))
	for _, doc := range docs {
		var entry CacheEntry
		if err := docstore.Decode(doc, &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Statistics 统计租户的缓存条目
func (c *DocumentCache) Statistics(ctx context.Context, tenantID string) (*Statistics, error) {
	entries, err := c.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return Summarize(entries, c.now(), c.high, c.medium), nil
}

// Summarize 计算一组条目的统计信息
func Summarize(entries []CacheEntry, now time.Time, high, medium float64) *Statistics {
	stats := &Statistics{
		LanguagePairCounts: make(map[string]int),
		ServiceCounts:      make(map[string]int),
		QualityBuckets:     make(map[string]int),
	}

	var total float64
	for i := range entries {
		e := &entries[i]
		stats.TotalTranslations++
		if e.ManualVerified {
			stats.ManualVerified++
		}
		if e.Expired(now) {
			stats.Expired++
		}
		total += e.QualityScore
		stats.LanguagePairCounts[e.LanguagePair()]++
		stats.ServiceCounts[e.TranslationService]++
		stats.QualityBuckets[e.Bucket(high, medium)]++
	}
	if stats.TotalTranslations > 0 {
		stats.AverageQuality = total / float64(stats.TotalTranslations)
	}
	return stats
}

// Delete 删除条目
func (c *DocumentCache) Delete(ctx context.Context, tenantID, cacheKey string) error {
	if err := c.store.Delete(ctx, CacheCollection, documentID(tenantID, cacheKey)); err != nil {
		return NewPersistenceError("delete translation cache entry", err)
	}
	return nil
}

// DeleteExpired 删除过期且未人工确认的条目
func (c *DocumentCache) DeleteExpired(ctx context.Context, tenantID string) (int, error) {
	entries, err := c.List(ctx, tenantID)
	if err != nil {
		return 0, err
	}

	now := c.now()
	deleted := 0
	for i := range entries {
		if !entries[i].Expired(now) {
			continue
		}
		if err := c.Delete(ctx, tenantID, entries[i].CacheKey); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}
