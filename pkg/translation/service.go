package translation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/nerdneilsfield/evaltrans/internal/docstore"
	"github.com/nerdneilsfield/evaltrans/pkg/glossary"
	"github.com/nerdneilsfield/evaltrans/pkg/providers"
	"github.com/nerdneilsfield/evaltrans/pkg/quality"
)

// service 翻译服务实现
type service struct {
	config    *Config
	options   serviceOptions
	languages *Languages
	logger    *zap.Logger
	group     singleflight.Group

	hits      atomic.Int64
	misses    atomic.Int64
	cacheErrs atomic.Int64
	originMu  sync.Mutex
	origins   map[Origin]int64
}

// New 创建新的翻译服务
func New(config *Config, opts ...Option) (Service, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	languages, err := NewLanguages(config.SupportedLanguages)
	if err != nil {
		return nil, err
	}

	options := serviceOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	if options.logger == nil {
		options.logger = zap.NewNop()
	}
	if options.cache == nil {
		options.cache = NewDocumentCache(docstore.NewMemoryStore())
	}
	if options.dictionary == nil {
		options.dictionary = glossary.NewBuiltin()
	}
	if options.scorer == nil {
		options.scorer = quality.NewScorer(quality.DefaultConfig())
	}

	return &service{
		config:    config.Clone(),
		options:   options,
		languages: languages,
		logger:    options.logger,
		origins:   make(map[Origin]int64),
	}, nil
}

// backends 按优先级返回后端
func (s *service) backends() []providers.TranslationProvider {
	if s.config.DisableBackends {
		return nil
	}
	if s.options.registry != nil {
		return append(s.options.registry.Ordered(), s.options.backends...)
	}
	return s.options.backends
}

// validate 校验请求并返回规范化的语言代码
func (s *service) validate(req *Request) (string, string, error) {
	if req == nil {
		return "", "", NewValidationError("request", "request is nil")
	}
	if strings.TrimSpace(req.TenantID) == "" {
		return "", "", NewValidationError("tenantId", "tenant is required")
	}
	source, err := s.languages.Normalize(req.SourceLanguage)
	if err != nil {
		return "", "", err
	}
	target, err := s.languages.Normalize(req.TargetLanguage)
	if err != nil {
		return "", "", err
	}
	if s.config.MaxTextLength > 0 && utf8.RuneCountInString(req.Text) > s.config.MaxTextLength {
		return "", "", NewValidationError("text", "text exceeds maximum length")
	}
	return source, target, nil
}

// Translate 依次尝试缓存、后端、词典，全部失败时返回原文
func (s *service) Translate(ctx context.Context, req *Request) (*Result, error) {
	source, target, err := s.validate(req)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.Text) == "" {
		return s.record(&Result{Text: req.Text, Origin: OriginPassthrough}), nil
	}
	if source == target {
		return s.record(&Result{Text: req.Text, Origin: OriginSameLanguage, QualityScore: 1.0}), nil
	}

	key := CacheKey(req.Text, source, target)
	log := s.logger.With(
		zap.String("tenant_id", req.TenantID),
		zap.String("cache_key", key),
		zap.String("source_lang", source),
		zap.String("target_lang", target))

	entry, err := s.options.cache.Get(ctx, req.TenantID, req.Text, source, target)
	switch {
	case err == nil:
		s.hits.Add(1)
		return s.record(&Result{
			Text:         entry.TranslatedText,
			CacheKey:     key,
			Origin:       OriginCache,
			Backend:      entry.Backend,
			QualityScore: entry.QualityScore,
		}), nil
	case errors.Is(err, ErrNotFound):
		s.misses.Add(1)
	default:
		s.misses.Add(1)
		s.cacheErrs.Add(1)
		log.Warn("cache read failed, treating as miss", zap.Error(err))
	}

	// 同一租户下相同请求的并发未命中只调用一次后端。
	// 共享调用不随任何一个调用方取消，每次后端调用仍受 BackendTimeout 限制
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(req.TenantID+"|"+key, func() (interface{}, error) {
		return s.resolve(shared, log, req.TenantID, req.Text, source, target, key), nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		result := *(res.Val.(*Result))
		return s.record(&result), nil
	}
}

// resolve 缓存未命中后的后端、词典、原文三级回退
func (s *service) resolve(ctx context.Context, log *zap.Logger, tenantID, text, source, target, key string) *Result {
	for _, backend := range s.backends() {
		start := time.Now()
		callCtx, cancel := context.WithTimeout(ctx, s.config.BackendTimeout)
		resp, err := backend.Translate(callCtx, &providers.ProviderRequest{
			Text:           text,
			SourceLanguage: source,
			TargetLanguage: target,
		})
		cancel()

		if err != nil {
			log.Warn("backend failed, trying next tier",
				zap.String("backend", backend.GetName()),
				zap.Duration("latency", time.Since(start)),
				zap.Error(err))
			continue
		}
		if strings.TrimSpace(resp.Text) == "" {
			log.Warn("backend returned empty text, trying next tier", zap.String("backend", backend.GetName()))
			continue
		}

		log.Debug("backend translated",
			zap.String("backend", backend.GetName()),
			zap.Duration("latency", time.Since(start)))
		return s.store(ctx, log, &CacheEntry{
			CacheKey:           key,
			SourceText:         text,
			TranslatedText:     resp.Text,
			SourceLanguage:     source,
			TargetLanguage:     target,
			TranslationService: ServiceAutomatic,
			Backend:            backend.GetName(),
			TenantID:           tenantID,
		}, OriginAutomatic)
	}

	if translated, ok := s.options.dictionary.Lookup(text, source, target); ok {
		log.Debug("fallback dictionary hit")
		return s.store(ctx, log, &CacheEntry{
			CacheKey:           key,
			SourceText:         text,
			TranslatedText:     translated,
			SourceLanguage:     source,
			TargetLanguage:     target,
			TranslationService: ServiceFallback,
			TenantID:           tenantID,
		}, OriginFallback)
	}

	// 未翻译的原文不写入缓存
	log.Info("all translation tiers missed, returning original text")
	return &Result{Text: text, CacheKey: key, Origin: OriginPassthrough}
}

// store 评分并写入缓存。写入失败只记录日志，译文仍返回给调用方
func (s *service) store(ctx context.Context, log *zap.Logger, entry *CacheEntry, origin Origin) *Result {
	entry.QualityScore = s.options.scorer.Score(entry.SourceText, entry.TranslatedText)
	result := &Result{
		Text:         entry.TranslatedText,
		CacheKey:     entry.CacheKey,
		Origin:       origin,
		Backend:      entry.Backend,
		QualityScore: entry.QualityScore,
	}

	err := s.options.cache.Put(ctx, entry)
	switch {
	case err == nil:
	case errors.Is(err, ErrVerifiedEntry):
		// 并发的人工确认优先
		if verified, getErr := s.options.cache.GetByKey(ctx, entry.TenantID, entry.CacheKey); getErr == nil {
			return &Result{
				Text:         verified.TranslatedText,
				CacheKey:     verified.CacheKey,
				Origin:       OriginCache,
				QualityScore: verified.QualityScore,
			}
		}
	default:
		s.cacheErrs.Add(1)
		log.Error("cache write failed", zap.String("origin", string(origin)), zap.Error(err))
	}
	return result
}

func (s *service) record(result *Result) *Result {
	s.originMu.Lock()
	s.origins[result.Origin]++
	s.originMu.Unlock()
	return result
}

// TranslateText 只返回译文
func (s *service) TranslateText(ctx context.Context, tenantID, text, sourceLang, targetLang string) (string, error) {
	result, err := s.Translate(ctx, &Request{
		TenantID:       tenantID,
		Text:           text,
		SourceLanguage: sourceLang,
		TargetLanguage: targetLang,
	})
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// ImproveTranslation 人工修正译文
func (s *service) ImproveTranslation(ctx context.Context, tenantID, cacheKey, improvedText, userID string) (*CacheEntry, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, NewValidationError("tenantId", "tenant is required")
	}
	if strings.TrimSpace(cacheKey) == "" {
		return nil, NewValidationError("cacheKey", "cache key is required")
	}
	if strings.TrimSpace(improvedText) == "" {
		return nil, NewValidationError("text", "improved text is empty")
	}

	entry, err := s.options.cache.MarkVerified(ctx, tenantID, cacheKey, improvedText, userID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("translation manually verified",
		zap.String("tenant_id", tenantID),
		zap.String("cache_key", cacheKey),
		zap.String("verified_by", userID))
	return entry, nil
}

// Statistics 租户缓存统计
func (s *service) Statistics(ctx context.Context, tenantID string) (*Statistics, error) {
	return s.options.cache.Statistics(ctx, tenantID)
}

// Entries 租户缓存快照
func (s *service) Entries(ctx context.Context, tenantID string) ([]CacheEntry, error) {
	return s.options.cache.List(ctx, tenantID)
}

// CollectGarbage 删除过期条目
func (s *service) CollectGarbage(ctx context.Context, tenantID string) (int, error) {
	n, err := s.options.cache.DeleteExpired(ctx, tenantID)
	if err != nil {
		return n, err
	}
	s.logger.Info("expired translations removed", zap.String("tenant_id", tenantID), zap.Int("count", n))
	return n, nil
}

// NormalizeLanguage 校验并规范化语言代码
func (s *service) NormalizeLanguage(code string) (string, error) {
	return s.languages.Normalize(code)
}

// Languages 支持的语言
func (s *service) Languages() []string {
	return s.languages.Supported()
}

// Backends 按优先级列出后端名称
func (s *service) Backends() []string {
	backends := s.backends()
	names := make([]string, 0, len(backends))
	for _, b := range backends {
		names = append(names, b.GetName())
	}
	return names
}

// Stats 服务计数
func (s *service) Stats() ServiceStats {
	s.originMu.Lock()
	origins := make(map[Origin]int64, len(s.origins))
	for k, v := range s.origins {
		origins[k] = v
	}
	s.originMu.Unlock()

	return ServiceStats{
		CacheHits:    s.hits.Load(),
		CacheMisses:  s.misses.Load(),
		CacheErrors:  s.cacheErrs.Load(),
		OriginCounts: origins,
	}
}
