package translation

import (
	"fmt"
	"time"
)

// Config 翻译服务配置
type Config struct {
	// SupportedLanguages 支持的语言代码
	SupportedLanguages []string `json:"supported_languages"`

	// BackendTimeout 单次后端调用超时，超时视为该后端失败
	BackendTimeout time.Duration `json:"backend_timeout"`

	// BatchSize 批量翻译每组的并发数量
	BatchSize int `json:"batch_size"`

	// BatchDelay 组与组之间的间隔
	BatchDelay time.Duration `json:"batch_delay"`

	// MaxTextLength 单条文本最大字符数，0 表示不限制
	MaxTextLength int `json:"max_text_length"`

	// DisableBackends 只使用词典和原文回退
	DisableBackends bool `json:"disable_backends"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		SupportedLanguages: []string{"ja", "en", "vi"},
		BackendTimeout:     5 * time.Second,
		BatchSize:          10,
		BatchDelay:         100 * time.Millisecond,
		MaxTextLength:      5000,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if len(c.SupportedLanguages) == 0 {
		return fmt.Errorf("%w: no supported languages", ErrInvalidConfig)
	}
	if c.BackendTimeout <= 0 {
		return fmt.Errorf("%w: backend timeout must be positive", ErrInvalidConfig)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size must be positive", ErrInvalidConfig)
	}
	if c.BatchDelay < 0 {
		return fmt.Errorf("%w: batch delay must not be negative", ErrInvalidConfig)
	}
	if c.MaxTextLength < 0 {
		return fmt.Errorf("%w: max text length must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Clone 克隆配置
func (c *Config) Clone() *Config {
	clone := *c
	clone.SupportedLanguages = append([]string(nil), c.SupportedLanguages...)
	return &clone
}
