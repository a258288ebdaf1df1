package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "evaltrans.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	config := Default()

	assert.Equal(t, []string{"ja", "en", "vi"}, config.Languages.Supported)
	assert.Equal(t, DriverMemory, config.Store.Driver)
	assert.Equal(t, 5*time.Second, config.Translation.BackendTimeout)
	assert.Equal(t, 30*24*time.Hour, config.Translation.CacheTTL)
	assert.Equal(t, 10, config.Translation.BatchSize)
	assert.Equal(t, 5000, config.Translation.MaxTextLength)
	assert.InDelta(t, 0.7, config.Quality.BaseScore, 1e-9)
	assert.NoError(t, config.Validate())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
languages:
  supported: [en, ja]
  default: en
store:
  driver: redis
  redis_addr: 127.0.0.1:6379
translation:
  batch_size: 5
  backend_timeout: 2s
backends:
  - name: primary
    type: deepl
    api_key: dk
    requests_per_minute: 30
  - type: libretranslate
    endpoint: http://libre.local
    requires_api_key: false
auth:
  jwt_secret: s3cret
`)

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"en", "ja"}, config.Languages.Supported)
	assert.Equal(t, DriverRedis, config.Store.Driver)
	assert.Equal(t, 5, config.Translation.BatchSize)
	assert.Equal(t, 2*time.Second, config.Translation.BackendTimeout)
	require.Len(t, config.Backends, 2)
	assert.Equal(t, "primary", config.Backends[0].DisplayName())
	assert.Equal(t, 30, config.Backends[0].RequestsPerMinute)
	assert.Equal(t, "libretranslate", config.Backends[1].DisplayName())
	require.NotNil(t, config.Backends[1].RequiresAPIKey)
	assert.False(t, *config.Backends[1].RequiresAPIKey)
	assert.Equal(t, "s3cret", config.Auth.JWTSecret)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "store:\n  driver: memory\n")
	t.Setenv("EVALTRANS_TRANSLATION_BATCH_SIZE", "25")
	t.Setenv("EVALTRANS_AUTH_TRUST_HEADERS", "true")

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25, config.Translation.BatchSize)
	assert.True(t, config.Auth.TrustHeaders)
}

func TestLoadInvalid(t *testing.T) {
	path := writeConfig(t, "store:\n  driver: mongo\n")
	_, err := Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *RuntimeConfig)
		errMsg string
	}{
		{"empty languages", func(c *RuntimeConfig) { c.Languages.Supported = nil }, "must not be empty"},
		{"bad language", func(c *RuntimeConfig) { c.Languages.Supported = []string{"ja", "not a tag"} }, "invalid language"},
		{"default not supported", func(c *RuntimeConfig) { c.Languages.Default = "fr" }, "languages.default"},
		{"postgres without dsn", func(c *RuntimeConfig) { c.Store.Driver = DriverPostgres }, "store.dsn"},
		{"zero batch size", func(c *RuntimeConfig) { c.Translation.BatchSize = 0 }, "batch_size"},
		{"zero timeout", func(c *RuntimeConfig) { c.Translation.BackendTimeout = 0 }, "backend_timeout"},
		{"thresholds inverted", func(c *RuntimeConfig) { c.Quality.MediumThreshold = 0.9 }, "thresholds"},
		{"unknown backend", func(c *RuntimeConfig) {
			c.Backends = []BackendConfig{{Type: "babelfish"}}
		}, "unsupported type"},
		{"duplicate backend", func(c *RuntimeConfig) {
			c.Backends = []BackendConfig{{Type: "deepl"}, {Type: "deepl"}}
		}, "duplicate"},
		{"rest without endpoint", func(c *RuntimeConfig) {
			c.Backends = []BackendConfig{{Type: "rest"}}
		}, "endpoint"},
		{"negative max text length", func(c *RuntimeConfig) { c.Translation.MaxTextLength = -1 }, "max_text_length"},
		{"negative retries", func(c *RuntimeConfig) {
			c.Backends = []BackendConfig{{Type: "deeplx", MaxRetries: -1}}
		}, "retry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			tt.mutate(config)
			err := config.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateSelfHostedBackends(t *testing.T) {
	config := Default()
	config.Backends = []BackendConfig{
		{Type: "deeplx", MaxRetries: 2, RetryDelay: 100 * time.Millisecond},
		{Name: "local", Type: "ollama", Model: "qwen2"},
	}
	assert.NoError(t, config.Validate())
}

func TestBackendKeyFromEnv(t *testing.T) {
	t.Setenv("MY_DEEPL_KEY", "from-env")
	b := BackendConfig{Type: "deepl", APIKeyEnv: "MY_DEEPL_KEY"}
	assert.Equal(t, "from-env", b.Key())

	b.APIKey = "inline"
	assert.Equal(t, "inline", b.Key())
}

func TestIsSupported(t *testing.T) {
	config := Default()
	assert.True(t, config.IsSupported("JA"))
	assert.False(t, config.IsSupported("fr"))
}
