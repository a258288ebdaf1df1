package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

// 存储驱动
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// 后端类型
var backendTypes = map[string]bool{
	"deepl":          true,
	"deeplx":         true,
	"google":         true,
	"libretranslate": true,
	"ollama":         true,
	"openai":         true,
	"rest":           true,
}

// RuntimeConfig 进程级运行配置，显式传给各组件的构造函数
type RuntimeConfig struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Languages   LanguagesConfig   `mapstructure:"languages"`
	Store       StoreConfig       `mapstructure:"store"`
	Translation TranslationConfig `mapstructure:"translation"`
	Quality     QualityConfig     `mapstructure:"quality"`
	Backends    []BackendConfig   `mapstructure:"backends"` // 按优先级排列
	Auth        AuthConfig        `mapstructure:"auth"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `mapstructure:"level"`
	Debug bool   `mapstructure:"debug"`
}

// LanguagesConfig 支持的语言
type LanguagesConfig struct {
	Supported []string `mapstructure:"supported"`
	Default   string   `mapstructure:"default"`
}

// StoreConfig 文档存储配置
type StoreConfig struct {
	Driver        string `mapstructure:"driver"`
	DSN           string `mapstructure:"dsn"`
	MaxConns      int32  `mapstructure:"max_conns"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisPrefix   string `mapstructure:"redis_prefix"`
}

// TranslationConfig 翻译服务配置
type TranslationConfig struct {
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	BackendTimeout  time.Duration `mapstructure:"backend_timeout"`
	BatchSize       int           `mapstructure:"batch_size"`
	BatchDelay      time.Duration `mapstructure:"batch_delay"`
	DisableBackends bool          `mapstructure:"disable_backends"` // 只使用词典和原文回退
	MaxTextLength   int           `mapstructure:"max_text_length"`  // 单条文本最大字符数，0 表示不限制
	GlossaryPath    string        `mapstructure:"glossary_path"`
	StatsPath       string        `mapstructure:"stats_path"` // 后端调用统计文件，为空时不持久化
}

// QualityConfig 质量评分常量
type QualityConfig struct {
	BaseScore       float64  `mapstructure:"base_score"`
	LengthBonus     float64  `mapstructure:"length_bonus"`
	MinLengthRatio  float64  `mapstructure:"min_length_ratio"`
	MaxLengthRatio  float64  `mapstructure:"max_length_ratio"`
	TermWeight      float64  `mapstructure:"term_weight"`
	HighThreshold   float64  `mapstructure:"high_threshold"`
	MediumThreshold float64  `mapstructure:"medium_threshold"`
	Terms           []string `mapstructure:"terms"`
}

// BackendConfig 单个翻译后端配置
type BackendConfig struct {
	Name              string            `mapstructure:"name"`
	Type              string            `mapstructure:"type"`
	APIKey            string            `mapstructure:"api_key"`
	APIKeyEnv         string            `mapstructure:"api_key_env"` // 从环境变量读取密钥
	Endpoint          string            `mapstructure:"endpoint"`
	Model             string            `mapstructure:"model"`
	Timeout           time.Duration     `mapstructure:"timeout"`
	RequestsPerMinute int               `mapstructure:"requests_per_minute"`
	UseFreeAPI        bool              `mapstructure:"use_free_api"`
	RequiresAPIKey    *bool             `mapstructure:"requires_api_key"`
	ProjectID         string            `mapstructure:"project_id"`
	OrgID             string            `mapstructure:"org_id"`
	Temperature       float64           `mapstructure:"temperature"`
	MaxTokens         int               `mapstructure:"max_tokens"`
	Headers           map[string]string `mapstructure:"headers"`
	MaxRetries        int               `mapstructure:"max_retries"` // 仅对 429/5xx 重试，0 表示不重试
	RetryDelay        time.Duration     `mapstructure:"retry_delay"`
	Disabled          bool              `mapstructure:"disabled"`
}

// Key 返回实际使用的 API 密钥
func (b BackendConfig) Key() string {
	if b.APIKey != "" {
		return b.APIKey
	}
	if b.APIKeyEnv != "" {
		return os.Getenv(b.APIKeyEnv)
	}
	return ""
}

// DisplayName 后端名称，未配置时使用类型
func (b BackendConfig) DisplayName() string {
	if b.Name != "" {
		return b.Name
	}
	return b.Type
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWTSecret    string `mapstructure:"jwt_secret"`
	Issuer       string `mapstructure:"issuer"`
	TrustHeaders bool   `mapstructure:"trust_headers"` // 开发环境下信任 X-User-ID / X-Tenant-ID
}

// Default 返回默认配置
func Default() *RuntimeConfig {
	v := viper.New()
	setDefaults(v)
	var config RuntimeConfig
	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Sprintf("默认配置无效: %v", err))
	}
	return &config
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.debug", false)

	v.SetDefault("languages.supported", []string{"ja", "en", "vi"})
	v.SetDefault("languages.default", "ja")

	v.SetDefault("store.driver", DriverMemory)
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_prefix", "evaltrans:")

	v.SetDefault("translation.cache_ttl", "720h")
	v.SetDefault("translation.backend_timeout", "5s")
	v.SetDefault("translation.batch_size", 10)
	v.SetDefault("translation.batch_delay", "100ms")
	v.SetDefault("translation.disable_backends", false)
	v.SetDefault("translation.max_text_length", 5000)

	v.SetDefault("quality.base_score", 0.7)
	v.SetDefault("quality.length_bonus", 0.1)
	v.SetDefault("quality.min_length_ratio", 0.5)
	v.SetDefault("quality.max_length_ratio", 2.0)
	v.SetDefault("quality.term_weight", 0.2)
	v.SetDefault("quality.high_threshold", 0.8)
	v.SetDefault("quality.medium_threshold", 0.5)

	v.SetDefault("auth.issuer", "evaltrans")
	v.SetDefault("auth.trust_headers", false)
}

// Validate 校验配置
func (c *RuntimeConfig) Validate() error {
	if len(c.Languages.Supported) == 0 {
		return fmt.Errorf("languages.supported must not be empty")
	}
	seen := make(map[string]bool)
	for _, code := range c.Languages.Supported {
		if _, err := language.Parse(code); err != nil {
			return fmt.Errorf("languages.supported: invalid language code %q", code)
		}
		if seen[code] {
			return fmt.Errorf("languages.supported: duplicate language %q", code)
		}
		seen[code] = true
	}
	if c.Languages.Default != "" && !seen[c.Languages.Default] {
		return fmt.Errorf("languages.default %q is not in languages.supported", c.Languages.Default)
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the postgres driver")
		}
	case DriverRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("store.redis_addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("unsupported store.driver %q", c.Store.Driver)
	}

	if c.Translation.BatchSize <= 0 {
		return fmt.Errorf("translation.batch_size must be positive")
	}
	if c.Translation.BackendTimeout <= 0 {
		return fmt.Errorf("translation.backend_timeout must be positive")
	}
	if c.Translation.CacheTTL <= 0 {
		return fmt.Errorf("translation.cache_ttl must be positive")
	}
	if c.Translation.BatchDelay < 0 {
		return fmt.Errorf("translation.batch_delay must not be negative")
	}
	if c.Translation.MaxTextLength < 0 {
		return fmt.Errorf("translation.max_text_length must not be negative")
	}

	q := c.Quality
	if q.MediumThreshold < 0 || q.HighThreshold > 1 || q.MediumThreshold > q.HighThreshold {
		return fmt.Errorf("quality thresholds must satisfy 0 <= medium <= high <= 1")
	}

	names := make(map[string]bool)
	for i, b := range c.Backends {
		if !backendTypes[b.Type] {
			return fmt.Errorf("backends[%d]: unsupported type %q", i, b.Type)
		}
		name := b.DisplayName()
		if names[name] {
			return fmt.Errorf("backends[%d]: duplicate backend name %q", i, name)
		}
		names[name] = true
		if b.MaxRetries < 0 || b.RetryDelay < 0 {
			return fmt.Errorf("backends[%d]: retry settings must not be negative", i)
		}
		if b.Type == "rest" && b.Endpoint == "" {
			return fmt.Errorf("backends[%d]: endpoint is required for rest backends", i)
		}
	}

	return nil
}

// IsSupported 判断语言是否受支持
func (c *RuntimeConfig) IsSupported(lang string) bool {
	for _, code := range c.Languages.Supported {
		if strings.EqualFold(code, lang) {
			return true
		}
	}
	return false
}
