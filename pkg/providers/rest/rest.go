package rest

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/nerdneilsfield/evaltrans/pkg/providers"
)

// Config 通用 REST 翻译后端配置
type Config struct {
	providers.BaseConfig
	Name string `json:"name"`
	// 为 false 时允许不带凭证的内部服务
	RequiresAPIKey bool `json:"requires_api_key"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		BaseConfig:     providers.DefaultConfig(),
		Name:           "rest",
		RequiresAPIKey: true,
	}
}

// Provider 通用 REST 后端，POST {text, source_lang, target_lang}
type Provider struct {
	config Config
	client *resty.Client
}

var _ providers.TranslationProvider = (*Provider)(nil)

// New 创建新的 REST 后端
func New(config Config) (*Provider, error) {
	if config.APIEndpoint == "" {
		return nil, providers.ErrMissingCredential
	}
	if config.RequiresAPIKey && config.APIKey == "" {
		return nil, providers.ErrMissingCredential
	}
	if config.Name == "" {
		config.Name = "rest"
	}

	client := providers.NewHTTPClient(config.BaseConfig)
	if config.APIKey != "" {
		client.SetAuthToken(config.APIKey)
	}

	return &Provider{config: config, client: client}, nil
}

// Translate 执行翻译
func (p *Provider) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(Request{
			Text:       req.Text,
			SourceLang: req.SourceLanguage,
			TargetLang: req.TargetLanguage,
		}).
		Post(p.config.APIEndpoint)
	if err != nil {
		return nil, providers.NewBackendError(p.GetName(), err)
	}
	if resp.IsError() {
		return nil, providers.NewStatusError(p.GetName(), resp.StatusCode(), resp.String())
	}

	text := parseBody(resp.Header().Get("Content-Type"), resp.Body())
	if text == "" {
		return nil, providers.EmptyResultError(p.GetName())
	}
	return &providers.ProviderResponse{Text: text}, nil
}

// GetName 获取后端名称
func (p *Provider) GetName() string {
	return p.config.Name
}

// parseBody JSON 响应取 translated_text 或 translation，否则按纯文本处理
func parseBody(contentType string, body []byte) string {
	if strings.Contains(contentType, "json") {
		var parsed Response
		if err := json.Unmarshal(body, &parsed); err != nil {
			return ""
		}
		if parsed.TranslatedText != "" {
			return strings.TrimSpace(parsed.TranslatedText)
		}
		return strings.TrimSpace(parsed.Translation)
	}
	return strings.TrimSpace(string(body))
}

// Request 请求体
type Request struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

// Response 响应体
type Response struct {
	TranslatedText string `json:"translated_text,omitempty"`
	Translation    string `json:"translation,omitempty"`
}
