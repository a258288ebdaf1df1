package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/evaltrans/pkg/providers"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "llama3", config.Model)
	assert.Equal(t, 0.2, config.Temperature)
	assert.Equal(t, 1024, config.MaxTokens)
	assert.Equal(t, defaultEndpoint, config.APIEndpoint)
}

func TestNewRequiresModel(t *testing.T) {
	config := DefaultConfig()
	config.Model = ""
	_, err := New(config)
	assert.Error(t, err)
}

func TestNewDefaultEndpoint(t *testing.T) {
	config := DefaultConfig()
	config.APIEndpoint = ""
	p, err := New(config)
	require.NoError(t, err)
	assert.Equal(t, defaultEndpoint, p.config.APIEndpoint)
	assert.Equal(t, "ollama", p.GetName())
}

func TestTranslate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "qwen2", req.Model)
		assert.False(t, req.Stream)
		assert.Contains(t, req.Prompt, "from ja to vi")
		assert.Contains(t, req.Prompt, "安全")
		assert.Equal(t, float64(512), req.Options["num_predict"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(GenerateResponse{
			Model:     "qwen2",
			Response:  " An toàn\n",
			Done:      true,
			EvalCount: 4,
		})
	}))
	defer server.Close()

	config := DefaultConfig()
	config.APIEndpoint = server.URL + "/"
	config.Model = "qwen2"
	config.MaxTokens = 512
	p, err := New(config)
	require.NoError(t, err)

	resp, err := p.Translate(context.Background(), &providers.ProviderRequest{
		Text: "安全", SourceLanguage: "ja", TargetLanguage: "vi",
	})
	require.NoError(t, err)
	assert.Equal(t, "An toàn", resp.Text)
	assert.Equal(t, "qwen2", resp.Metadata["model"])
	assert.Equal(t, "4", resp.Metadata["eval_count"])
}

func TestTranslateModelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'missing' not found"}`))
	}))
	defer server.Close()

	config := DefaultConfig()
	config.APIEndpoint = server.URL
	config.Model = "missing"
	p, err := New(config)
	require.NoError(t, err)

	_, err = p.Translate(context.Background(), &providers.ProviderRequest{Text: "x", SourceLanguage: "en", TargetLanguage: "ja"})
	var backendErr *providers.BackendError
	require.True(t, errors.As(err, &backendErr))
	assert.Equal(t, http.StatusNotFound, backendErr.StatusCode)
	assert.Contains(t, backendErr.Error(), "model 'missing' not found")
	assert.False(t, backendErr.IsRetryable())
}

func TestTranslateEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama3","response":"  ","done":true}`))
	}))
	defer server.Close()

	config := DefaultConfig()
	config.APIEndpoint = server.URL
	p, err := New(config)
	require.NoError(t, err)

	_, err = p.Translate(context.Background(), &providers.ProviderRequest{Text: "x", SourceLanguage: "en", TargetLanguage: "ja"})
	assert.Error(t, err)
}
