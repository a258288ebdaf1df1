package retry

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/evaltrans/pkg/providers"
)

type flakyProvider struct {
	failures int32
	status   int
	calls    atomic.Int32
}

func (f *flakyProvider) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	n := f.calls.Add(1)
	if n <= f.failures {
		return nil, &providers.BackendError{Backend: "flaky", StatusCode: f.status}
	}
	return &providers.ProviderResponse{Text: "ok:" + req.Text}, nil
}

func (f *flakyProvider) GetName() string { return "flaky" }

func fastConfig(retries int) Config {
	return Config{MaxRetries: retries, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}
}

func TestNewWithoutRetriesReturnsNext(t *testing.T) {
	next := &flakyProvider{}
	assert.Same(t, next, New(next, Config{}, nil))
}

func TestRetriesTransientErrors(t *testing.T) {
	next := &flakyProvider{failures: 2, status: http.StatusServiceUnavailable}
	p := New(next, fastConfig(3), nil)

	resp, err := p.Translate(context.Background(), &providers.ProviderRequest{Text: "a"})
	require.NoError(t, err)
	assert.Equal(t, "ok:a", resp.Text)
	assert.Equal(t, int32(3), next.calls.Load())
	assert.Equal(t, "flaky", p.GetName())
}

func TestGivesUpAfterMaxRetries(t *testing.T) {
	next := &flakyProvider{failures: 10, status: http.StatusTooManyRequests}
	p := New(next, fastConfig(2), nil)

	_, err := p.Translate(context.Background(), &providers.ProviderRequest{Text: "a"})
	var backendErr *providers.BackendError
	require.True(t, errors.As(err, &backendErr))
	assert.Equal(t, http.StatusTooManyRequests, backendErr.StatusCode)
	assert.Equal(t, int32(3), next.calls.Load())
}

func TestPermanentErrorNotRetried(t *testing.T) {
	next := &flakyProvider{failures: 10, status: http.StatusUnauthorized}
	p := New(next, fastConfig(3), nil)

	_, err := p.Translate(context.Background(), &providers.ProviderRequest{Text: "a"})
	assert.Error(t, err)
	assert.Equal(t, int32(1), next.calls.Load())
}

func TestStopsWhenContextDone(t *testing.T) {
	next := &flakyProvider{failures: 10, status: http.StatusBadGateway}
	p := New(next, Config{MaxRetries: 5, InitialDelay: time.Hour}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := p.Translate(ctx, &providers.ProviderRequest{Text: "a"})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int32(1), next.calls.Load())
}

func TestNextDelayCapped(t *testing.T) {
	p := New(&flakyProvider{}, Config{MaxRetries: 1, MaxDelay: 300 * time.Millisecond, BackoffFactor: 2}, nil).(*Provider)
	assert.Equal(t, 200*time.Millisecond, p.nextDelay(100*time.Millisecond))
	assert.Equal(t, 300*time.Millisecond, p.nextDelay(200*time.Millisecond))
}
