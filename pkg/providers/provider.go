package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
)

// ErrMissingCredential 后端未配置凭证，此类后端被跳过而不是报错
var ErrMissingCredential = errors.New("backend credential not configured")

// BaseConfig 基础配置
type BaseConfig struct {
	// API配置
	APIKey      string `json:"api_key,omitempty"`
	APIEndpoint string `json:"api_endpoint,omitempty"`

	// 单次请求超时，后端内部不做重试
	Timeout time.Duration `json:"timeout"`

	// 每分钟请求上限，0 表示不限速
	RequestsPerMinute int `json:"requests_per_minute,omitempty"`

	// 自定义头部
	Headers map[string]string `json:"headers,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() BaseConfig {
	return BaseConfig{
		Timeout: 5 * time.Second,
		Headers: make(map[string]string),
	}
}

// TranslationProvider 翻译后端接口，每次调用对应一次外部请求
type TranslationProvider interface {
	// Translate 执行翻译，失败时返回 *BackendError
	Translate(ctx context.Context, req *ProviderRequest) (*ProviderResponse, error)

	// GetName 获取后端名称
	GetName() string
}

// ProviderRequest 后端请求
type ProviderRequest struct {
	Text           string `json:"text"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}

// ProviderResponse 后端响应
type ProviderResponse struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// BackendError 后端调用失败
type BackendError struct {
	Backend    string
	StatusCode int
	Message    string
	Err        error
}

// Error 实现 error 接口
func (e *BackendError) Error() string {
	var sb strings.Builder
	sb.WriteString("backend ")
	sb.WriteString(e.Backend)
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, " (HTTP %d)", e.StatusCode)
	}
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap 返回原因错误
func (e *BackendError) Unwrap() error {
	return e.Err
}

// IsRetryable 判断错误是否为瞬时错误
func (e *BackendError) IsRetryable() bool {
	if e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500 {
		return true
	}
	return e.StatusCode == 0 && errors.Is(e.Err, context.DeadlineExceeded)
}

// NewBackendError 包装网络层错误
func NewBackendError(backend string, err error) *BackendError {
	return &BackendError{Backend: backend, Err: err}
}

// maxErrorBodyWidth 错误消息中保留的响应体显示宽度
const maxErrorBodyWidth = 200

// NewStatusError 根据 HTTP 状态码创建错误，body 截断后附在消息中
func NewStatusError(backend string, statusCode int, body string) *BackendError {
	msg := DescribeStatus(statusCode)
	if body = strings.TrimSpace(body); body != "" {
		// 按显示宽度截断，不会切断多字节字符
		msg += ": " + runewidth.Truncate(body, maxErrorBodyWidth, "...")
	}
	return &BackendError{Backend: backend, StatusCode: statusCode, Message: msg}
}

// DescribeStatus 常见翻译 API 状态码说明
func DescribeStatus(statusCode int) string {
	switch statusCode {
	case http.StatusBadRequest:
		return "bad request"
	case http.StatusUnauthorized, http.StatusForbidden:
		return "authentication failed"
	case http.StatusNotFound:
		return "requested resource not found"
	case http.StatusRequestEntityTooLarge:
		return "request size exceeded"
	case http.StatusRequestURITooLong:
		return "request URI too long"
	case http.StatusTooManyRequests:
		return "too many requests"
	case 456:
		return "quota exceeded"
	case http.StatusServiceUnavailable:
		return "service temporarily unavailable"
	default:
		return "API error: " + http.StatusText(statusCode)
	}
}

// EmptyResultError 后端返回了空结果
func EmptyResultError(backend string) *BackendError {
	return &BackendError{Backend: backend, Message: "no translation returned"}
}
