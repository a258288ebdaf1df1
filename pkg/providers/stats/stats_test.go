package stats

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/evaltrans/pkg/providers"
)

type stubProvider struct {
	name string
	err  error
}

func (s *stubProvider) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &providers.ProviderResponse{Text: "ok:" + req.Text}, nil
}

func (s *stubProvider) GetName() string { return s.name }

func TestMiddlewareRecords(t *testing.T) {
	manager := NewManager("", nil)
	ok := NewMiddleware(&stubProvider{name: "deepl"}, manager)
	bad := NewMiddleware(&stubProvider{name: "google", err: providers.NewStatusError("google", 429, "")}, manager)

	resp, err := ok.Translate(context.Background(), &providers.ProviderRequest{Text: "a"})
	require.NoError(t, err)
	assert.Equal(t, "ok:a", resp.Text)
	_, _ = ok.Translate(context.Background(), &providers.ProviderRequest{Text: "b"})
	_, err = bad.Translate(context.Background(), &providers.ProviderRequest{Text: "c"})
	require.Error(t, err)

	deepl, found := manager.Get("deepl")
	require.True(t, found)
	assert.Equal(t, int64(2), deepl.TotalRequests)
	assert.Equal(t, int64(2), deepl.SuccessfulRequests)
	assert.InDelta(t, 100.0, deepl.SuccessRate(), 1e-9)

	google, found := manager.Get("google")
	require.True(t, found)
	assert.Equal(t, int64(1), google.FailedRequests)
	assert.Equal(t, int64(1), google.ErrorTypes["rate_limit"])
	assert.NotEmpty(t, google.LastError)

	snapshot := manager.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "deepl", snapshot[0].Backend)
	assert.Equal(t, "google", snapshot[1].Backend)
	assert.Equal(t, "google", bad.GetName())
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "unknown_error"},
		{context.DeadlineExceeded, "timeout"},
		{providers.NewBackendError("x", fmt.Errorf("wrap: %w", context.DeadlineExceeded)), "timeout"},
		{providers.NewBackendError("x", errors.New("connection refused")), "network_error"},
		{providers.EmptyResultError("x"), "empty_result"},
		{providers.NewStatusError("x", 401, ""), "auth_error"},
		{providers.NewStatusError("x", 456, ""), "quota_exceeded"},
		{providers.NewStatusError("x", 502, ""), "server_error"},
		{providers.NewStatusError("x", 400, ""), "bad_request"},
		{errors.New("other"), "unknown_error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyError(tt.err), "%v", tt.err)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats", "backends.json")
	manager := NewManager(path, nil)
	manager.Record("deepl", RequestResult{Success: true, Latency: 20 * time.Millisecond})
	manager.Record("deepl", RequestResult{Success: false, Latency: 40 * time.Millisecond, Err: providers.NewStatusError("deepl", 503, "")})
	require.NoError(t, manager.Save())

	loaded := NewManager(path, nil)
	require.NoError(t, loaded.Load())
	s, ok := loaded.Get("deepl")
	require.True(t, ok)
	assert.Equal(t, int64(2), s.TotalRequests)
	assert.Equal(t, 30*time.Millisecond, s.AverageLatency)
	assert.Equal(t, int64(1), s.ErrorTypes["server_error"])
}

func TestLoadMissingFile(t *testing.T) {
	manager := NewManager(filepath.Join(t.TempDir(), "none.json"), nil)
	assert.NoError(t, manager.Load())
	assert.Empty(t, manager.Snapshot())
}

func TestAutoSaveRoutineSavesOnShutdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auto.json")
	manager := NewManager(path, nil)
	manager.Record("rest", RequestResult{Success: true})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		manager.AutoSaveRoutine(ctx, time.Hour)
		close(done)
	}()
	cancel()
	<-done

	loaded := NewManager(path, nil)
	require.NoError(t, loaded.Load())
	_, ok := loaded.Get("rest")
	assert.True(t, ok)
}
