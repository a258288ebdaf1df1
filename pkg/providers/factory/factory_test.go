package factory

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/evaltrans/internal/config"
	"github.com/nerdneilsfield/evaltrans/pkg/providers"
	"github.com/nerdneilsfield/evaltrans/pkg/providers/stats"
)

func boolPtr(b bool) *bool { return &b }

func TestBuildRegistrySkipsMissingCredentials(t *testing.T) {
	f := New(nil, nil, time.Second)
	registry, err := f.BuildRegistry([]config.BackendConfig{
		{Type: "deepl"},
		{Name: "g", Type: "google", APIKey: "gk"},
		{Type: "openai", Disabled: true, APIKey: "sk"},
		{Type: "libretranslate", Endpoint: "http://libre.local"},
		{Name: "internal", Type: "rest", Endpoint: "http://rest.local", RequiresAPIKey: boolPtr(false)},
		{Name: "locked", Type: "rest", Endpoint: "http://rest.local"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"g", "libretranslate", "internal"}, registry.List())

	g, err := registry.Get("g")
	require.NoError(t, err)
	assert.Equal(t, "g", g.GetName())
}

func TestBuildRegistryUnknownType(t *testing.T) {
	f := New(nil, nil, 0)
	_, err := f.BuildRegistry([]config.BackendConfig{{Type: "babelfish"}})
	assert.Error(t, err)
}

func TestCreateProviderWrapsStatsAndName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	manager := stats.NewManager("", nil)
	f := New(nil, manager, time.Second)
	provider, err := f.CreateProvider(config.BackendConfig{
		Name:              "secondary-deepl",
		Type:              "deepl",
		APIKey:            "k",
		Endpoint:          server.URL,
		RequestsPerMinute: 600,
	})
	require.NoError(t, err)
	assert.Equal(t, "secondary-deepl", provider.GetName())

	_, err = provider.Translate(context.Background(), &providers.ProviderRequest{Text: "x", SourceLanguage: "en", TargetLanguage: "ja"})
	var backendErr *providers.BackendError
	require.True(t, errors.As(err, &backendErr))
	assert.Equal(t, "secondary-deepl", backendErr.Backend)
	assert.Equal(t, http.StatusServiceUnavailable, backendErr.StatusCode)

	s, ok := manager.Get("secondary-deepl")
	require.True(t, ok)
	assert.Equal(t, int64(1), s.FailedRequests)
	assert.Equal(t, int64(1), s.ErrorTypes["server_error"])

	_, isLimited := provider.(*providers.RateLimited)
	assert.True(t, isLimited)
}

func TestCreateProviderKeyFromEnv(t *testing.T) {
	t.Setenv("TEST_GOOGLE_KEY", "env-key")
	f := New(nil, nil, time.Second)
	provider, err := f.CreateProvider(config.BackendConfig{Type: "google", APIKeyEnv: "TEST_GOOGLE_KEY"})
	require.NoError(t, err)
	assert.Equal(t, "google", provider.GetName())
}

func TestBuildRegistrySelfHostedBackends(t *testing.T) {
	f := New(nil, nil, time.Second)
	registry, err := f.BuildRegistry([]config.BackendConfig{
		{Type: "deeplx"},
		{Name: "local-llm", Type: "ollama", Model: "qwen2"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"deeplx", "local-llm"}, registry.List())
}

func TestCreateProviderRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":200,"data":"Goal"}`))
	}))
	defer server.Close()

	manager := stats.NewManager("", nil)
	f := New(nil, manager, time.Second)
	provider, err := f.CreateProvider(config.BackendConfig{
		Type:       "deeplx",
		Endpoint:   server.URL,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	})
	require.NoError(t, err)

	resp, err := provider.Translate(context.Background(), &providers.ProviderRequest{Text: "目標", SourceLanguage: "ja", TargetLanguage: "en"})
	require.NoError(t, err)
	assert.Equal(t, "Goal", resp.Text)
	assert.Equal(t, int32(2), calls.Load())

	s, ok := manager.Get("deeplx")
	require.True(t, ok)
	assert.Equal(t, int64(2), s.TotalRequests)
	assert.Equal(t, int64(1), s.FailedRequests)
}
