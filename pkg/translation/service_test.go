package translation_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/evaltrans/internal/docstore"
	"github.com/nerdneilsfield/evaltrans/pkg/providers"
	"github.com/nerdneilsfield/evaltrans/pkg/translation"
)

const tenant = "acme"

func newService(t *testing.T, config *translation.Config, opts ...translation.Option) translation.Service {
	t.Helper()
	svc, err := translation.New(config, opts...)
	require.NoError(t, err)
	return svc
}

func request(text, src, tgt string) *translation.Request {
	return &translation.Request{TenantID: tenant, Text: text, SourceLanguage: src, TargetLanguage: tgt}
}

// missingCache 读取总是未命中，其余操作委托给真实缓存
type missingCache struct {
	*translation.DocumentCache
}

func (m *missingCache) Get(ctx context.Context, tenantID, text, sourceLang, targetLang string) (*translation.CacheEntry, error) {
	return nil, translation.ErrNotFound
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	config := translation.DefaultConfig()
	config.BatchSize = 0
	_, err := translation.New(config)
	assert.ErrorIs(t, err, translation.ErrInvalidConfig)
}

func TestTranslateSameLanguage(t *testing.T) {
	backend := newFakeBackend("b1", "B1:")
	svc := newService(t, nil, translation.WithBackends(backend))

	result, err := svc.Translate(context.Background(), request("こんにちは", "ja", "JA"))
	require.NoError(t, err)
	assert.Equal(t, "こんにちは", result.Text)
	assert.Equal(t, translation.OriginSameLanguage, result.Origin)
	assert.Equal(t, 1.0, result.QualityScore)
	assert.Zero(t, backend.calls.Load())

	entries, err := svc.Entries(context.Background(), tenant)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTranslateFallbackDictionaryThenCache(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil)

	first, err := svc.Translate(ctx, request("技術力", "ja", "en"))
	require.NoError(t, err)
	assert.Equal(t, "Technical Skills", first.Text)
	assert.Equal(t, translation.OriginFallback, first.Origin)
	assert.Equal(t, translation.CacheKey("技術力", "ja", "en"), first.CacheKey)
	assert.Greater(t, first.QualityScore, 0.0)

	second, err := svc.Translate(ctx, request("技術力", "ja", "en"))
	require.NoError(t, err)
	assert.Equal(t, "Technical Skills", second.Text)
	assert.Equal(t, translation.OriginCache, second.Origin)

	entries, err := svc.Entries(ctx, tenant)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, translation.ServiceFallback, entries[0].TranslationService)

	stats := svc.Stats()
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(1), stats.CacheMisses)
	assert.Equal(t, int64(1), stats.OriginCounts[translation.OriginFallback])
	assert.Equal(t, int64(1), stats.OriginCounts[translation.OriginCache])
}

func TestTranslatePassthroughIsNotCached(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil)

	result, err := svc.Translate(ctx, request("xyzzy123", "ja", "en"))
	require.NoError(t, err)
	assert.Equal(t, "xyzzy123", result.Text)
	assert.Equal(t, translation.OriginPassthrough, result.Origin)

	entries, err := svc.Entries(ctx, tenant)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTranslateEmptyText(t *testing.T) {
	backend := newFakeBackend("b1", "B1:")
	svc := newService(t, nil, translation.WithBackends(backend))

	result, err := svc.Translate(context.Background(), request("  ", "ja", "en"))
	require.NoError(t, err)
	assert.Equal(t, "  ", result.Text)
	assert.Equal(t, translation.OriginPassthrough, result.Origin)
	assert.Zero(t, backend.calls.Load())
}

func TestTranslateBackendPriority(t *testing.T) {
	ctx := context.Background()
	failing := newFakeBackend("b1", "B1:")
	failing.err = providers.NewStatusError("b1", 503, "")
	working := newFakeBackend("b2", "B2:")
	unused := newFakeBackend("b3", "B3:")
	svc := newService(t, nil, translation.WithBackends(failing, working, unused))

	assert.Equal(t, []string{"b1", "b2", "b3"}, svc.Backends())

	result, err := svc.Translate(ctx, request("評価", "ja", "en"))
	require.NoError(t, err)
	assert.Equal(t, "B2:評価", result.Text)
	assert.Equal(t, translation.OriginAutomatic, result.Origin)
	assert.Equal(t, "b2", result.Backend)
	assert.Equal(t, int64(1), failing.calls.Load())
	assert.Zero(t, unused.calls.Load())

	entries, err := svc.Entries(ctx, tenant)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, translation.ServiceAutomatic, entries[0].TranslationService)
	assert.Equal(t, "b2", entries[0].Backend)
}

func TestTranslateUsesRegistryOrder(t *testing.T) {
	registry := providers.NewRegistry()
	require.NoError(t, registry.Register("first", newFakeBackend("first", "F:")))
	require.NoError(t, registry.Register("second", newFakeBackend("second", "S:")))
	svc := newService(t, nil, translation.WithRegistry(registry))

	assert.Equal(t, []string{"first", "second"}, svc.Backends())
	text, err := svc.TranslateText(context.Background(), tenant, "目標", "ja", "vi")
	require.NoError(t, err)
	assert.Equal(t, "F:目標", text)
}

func TestTranslateDisableBackends(t *testing.T) {
	backend := newFakeBackend("b1", "B1:")
	config := translation.DefaultConfig()
	config.DisableBackends = true
	svc := newService(t, config, translation.WithBackends(backend))

	result, err := svc.Translate(context.Background(), request("技術力", "ja", "en"))
	require.NoError(t, err)
	assert.Equal(t, "Technical Skills", result.Text)
	assert.Zero(t, backend.calls.Load())
	assert.Empty(t, svc.Backends())
}

func TestTranslateBackendTimeout(t *testing.T) {
	slow := newFakeBackend("slow", "SLOW:")
	slow.block = make(chan struct{})
	defer close(slow.block)
	fast := newFakeBackend("fast", "FAST:")

	config := translation.DefaultConfig()
	config.BackendTimeout = 50 * time.Millisecond
	svc := newService(t, config, translation.WithBackends(slow, fast))

	start := time.Now()
	result, err := svc.Translate(context.Background(), request("品質", "ja", "en"))
	require.NoError(t, err)
	assert.Equal(t, "FAST:品質", result.Text)
	assert.Equal(t, "fast", result.Backend)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestTranslateNormalizesLanguages(t *testing.T) {
	backend := newFakeBackend("b1", "B1:")
	svc := newService(t, nil, translation.WithBackends(backend))

	result, err := svc.Translate(context.Background(), request("goal", "EN-us", "ja"))
	require.NoError(t, err)
	assert.Equal(t, translation.CacheKey("goal", "en", "ja"), result.CacheKey)
}

func TestTranslateValidation(t *testing.T) {
	backend := newFakeBackend("b1", "B1:")
	config := translation.DefaultConfig()
	config.MaxTextLength = 10
	svc := newService(t, config, translation.WithBackends(backend))
	ctx := context.Background()

	cases := []struct {
		name  string
		req   *translation.Request
		field string
	}{
		{"unsupported target", request("hello", "en", "fr"), "language"},
		{"invalid source", request("hello", "??", "ja"), "language"},
		{"missing tenant", &translation.Request{Text: "hello", SourceLanguage: "en", TargetLanguage: "ja"}, "tenantId"},
		{"too long", request(strings.Repeat("長", 11), "ja", "en"), "text"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Translate(ctx, tc.req)
			require.ErrorIs(t, err, translation.ErrValidation)
			var verr *translation.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.field, verr.Field)
		})
	}
	assert.Zero(t, backend.calls.Load())
}

func TestTranslateCanceledContext(t *testing.T) {
	backend := newFakeBackend("b1", "B1:")
	svc := newService(t, nil, translation.WithBackends(backend))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Translate(ctx, request("hello", "en", "ja"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, backend.calls.Load())
}

func TestTranslateCacheWriteFailure(t *testing.T) {
	backend := newFakeBackend("b1", "B1:")
	svc := newService(t, nil,
		translation.WithBackends(backend),
		translation.WithCache(&failingCache{}))

	result, err := svc.Translate(context.Background(), request("hello", "en", "ja"))
	require.NoError(t, err)
	assert.Equal(t, "B1:hello", result.Text)
	assert.Equal(t, translation.OriginAutomatic, result.Origin)
	assert.Equal(t, int64(1), svc.Stats().CacheErrors)
}

func TestTranslateSingleflight(t *testing.T) {
	backend := newFakeBackend("b1", "B1:")
	backend.delay = 100 * time.Millisecond
	svc := newService(t, nil, translation.WithBackends(backend))

	var wg sync.WaitGroup
	start := make(chan struct{})
	results := make([]string, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			text, err := svc.TranslateText(context.Background(), tenant, "hello", "en", "ja")
			assert.NoError(t, err)
			results[i] = text
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int64(1), backend.calls.Load())
	for _, r := range results {
		assert.Equal(t, "B1:hello", r)
	}
}

func TestTranslateSharedCallOutlivesCanceledCaller(t *testing.T) {
	backend := newFakeBackend("b1", "B1:")
	backend.block = make(chan struct{})
	svc := newService(t, nil, translation.WithBackends(backend))

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := svc.TranslateText(leaderCtx, tenant, "hello world", "en", "ja")
		leaderErr <- err
	}()
	require.Eventually(t, func() bool { return backend.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	followerText := make(chan string, 1)
	go func() {
		text, err := svc.TranslateText(context.Background(), tenant, "hello world", "en", "ja")
		assert.NoError(t, err)
		followerText <- text
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	select {
	case err := <-leaderErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("canceled caller did not return")
	}

	close(backend.block)
	select {
	case text := <-followerText:
		assert.Equal(t, "B1:hello world", text)
	case <-time.After(time.Second):
		t.Fatal("follower did not return")
	}
	assert.Equal(t, int64(1), backend.calls.Load())

	// 共享调用的结果已写入缓存
	result, err := svc.Translate(context.Background(), request("hello world", "en", "ja"))
	require.NoError(t, err)
	assert.Equal(t, translation.OriginCache, result.Origin)
}

func TestTranslateTenantIsolation(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend("b1", "B1:")
	svc := newService(t, nil, translation.WithBackends(backend))

	_, err := svc.TranslateText(ctx, "tenant-a", "hello", "en", "ja")
	require.NoError(t, err)
	_, err = svc.TranslateText(ctx, "tenant-b", "hello", "en", "ja")
	require.NoError(t, err)
	assert.Equal(t, int64(2), backend.calls.Load())
}

func TestTranslateExpiredEntryIsRetranslated(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	backend := newFakeBackend("b1", "B1:")
	cache := translation.NewDocumentCache(docstore.NewMemoryStore(), translation.WithClock(clk.Now))
	svc := newService(t, nil, translation.WithBackends(backend), translation.WithCache(cache))

	_, err := svc.Translate(ctx, request("hello", "en", "ja"))
	require.NoError(t, err)
	result, err := svc.Translate(ctx, request("hello", "en", "ja"))
	require.NoError(t, err)
	assert.Equal(t, translation.OriginCache, result.Origin)
	assert.Equal(t, int64(1), backend.calls.Load())

	clk.Advance(translation.DefaultCacheTTL + time.Second)
	result, err = svc.Translate(ctx, request("hello", "en", "ja"))
	require.NoError(t, err)
	assert.Equal(t, translation.OriginAutomatic, result.Origin)
	assert.Equal(t, int64(2), backend.calls.Load())
}

func TestImproveTranslationIsImmutable(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	backend := newFakeBackend("b1", "B1:")
	cache := translation.NewDocumentCache(docstore.NewMemoryStore(), translation.WithClock(clk.Now))
	svc := newService(t, nil, translation.WithBackends(backend), translation.WithCache(cache))

	first, err := svc.Translate(ctx, request("技術力", "ja", "en"))
	require.NoError(t, err)
	assert.Equal(t, "B1:技術力", first.Text)

	entry, err := svc.ImproveTranslation(ctx, tenant, first.CacheKey, "Better text", "user1")
	require.NoError(t, err)
	assert.True(t, entry.ManualVerified)
	assert.Equal(t, 1.0, entry.QualityScore)
	assert.Equal(t, "user1", entry.VerifiedBy)

	clk.Advance(3 * translation.DefaultCacheTTL)
	for i := 0; i < 3; i++ {
		result, err := svc.Translate(ctx, request("技術力", "ja", "en"))
		require.NoError(t, err)
		assert.Equal(t, "Better text", result.Text)
		assert.Equal(t, translation.OriginCache, result.Origin)
		assert.Equal(t, 1.0, result.QualityScore)
	}
	assert.Equal(t, int64(1), backend.calls.Load())

	n, err := svc.CollectGarbage(ctx, tenant)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestVerifiedEntryWinsOverConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	cache := translation.NewDocumentCache(docstore.NewMemoryStore())
	backend := newFakeBackend("b1", "B1:")

	entry := &translation.CacheEntry{
		SourceText: "hello", TranslatedText: "old", SourceLanguage: "en", TargetLanguage: "ja",
		TranslationService: translation.ServiceAutomatic, TenantID: tenant,
	}
	require.NoError(t, cache.Put(ctx, entry))
	_, err := cache.MarkVerified(ctx, tenant, entry.CacheKey, "こんにちは", "user1")
	require.NoError(t, err)

	// 读取未命中后写入，模拟与人工确认并发
	svc := newService(t, nil, translation.WithBackends(backend),
		translation.WithCache(&missingCache{DocumentCache: cache}))
	result, err := svc.Translate(ctx, request("hello", "en", "ja"))
	require.NoError(t, err)
	assert.Equal(t, "こんにちは", result.Text)
	assert.Equal(t, translation.OriginCache, result.Origin)
	assert.Equal(t, int64(1), backend.calls.Load())
}

func TestImproveTranslationErrors(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil)

	_, err := svc.ImproveTranslation(ctx, tenant, "unknown", "text", "user1")
	assert.ErrorIs(t, err, translation.ErrNotFound)

	_, err = svc.ImproveTranslation(ctx, tenant, "key", " ", "user1")
	assert.ErrorIs(t, err, translation.ErrValidation)

	_, err = svc.ImproveTranslation(ctx, "", "key", "text", "user1")
	assert.ErrorIs(t, err, translation.ErrValidation)
}

func TestServiceLanguages(t *testing.T) {
	svc := newService(t, nil)
	assert.Equal(t, []string{"ja", "en", "vi"}, svc.Languages())

	code, err := svc.NormalizeLanguage("vi-VN")
	require.NoError(t, err)
	assert.Equal(t, "vi", code)

	_, err = svc.NormalizeLanguage("de")
	assert.ErrorIs(t, err, translation.ErrValidation)
}
