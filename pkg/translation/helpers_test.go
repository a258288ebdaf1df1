package translation_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerdneilsfield/evaltrans/pkg/providers"
	"github.com/nerdneilsfield/evaltrans/pkg/translation"
)

// fakeBackend 可编程的测试后端
type fakeBackend struct {
	name    string
	prefix  string
	err     error
	failFor map[string]bool
	delay   time.Duration
	block   chan struct{}

	calls   atomic.Int64
	active  atomic.Int64
	maxSeen atomic.Int64

	mu    sync.Mutex
	texts []string
}

func newFakeBackend(name, prefix string) *fakeBackend {
	return &fakeBackend{name: name, prefix: prefix}
}

func (f *fakeBackend) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	f.calls.Add(1)
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		max := f.maxSeen.Load()
		if n <= max || f.maxSeen.CompareAndSwap(max, n) {
			break
		}
	}

	f.mu.Lock()
	f.texts = append(f.texts, req.Text)
	f.mu.Unlock()

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, providers.NewBackendError(f.name, ctx.Err())
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, providers.NewBackendError(f.name, ctx.Err())
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.failFor[req.Text] {
		return nil, providers.NewStatusError(f.name, 503, "")
	}
	return &providers.ProviderResponse{Text: f.prefix + req.Text}, nil
}

func (f *fakeBackend) GetName() string { return f.name }

func (f *fakeBackend) sawText(text string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.texts {
		if t == text {
			return true
		}
	}
	return false
}

// failingCache 写入总是失败的缓存
type failingCache struct {
	translation.CacheStore
}

func (f *failingCache) Get(ctx context.Context, tenantID, text, sourceLang, targetLang string) (*translation.CacheEntry, error) {
	return nil, translation.ErrNotFound
}

func (f *failingCache) Put(ctx context.Context, entry *translation.CacheEntry) error {
	return translation.NewPersistenceError("put", errors.New("disk full"))
}

// clock 可手动推进的时钟
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
