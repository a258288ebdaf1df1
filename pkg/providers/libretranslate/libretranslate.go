package libretranslate

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/nerdneilsfield/evaltrans/pkg/providers"
)

const defaultEndpoint = "https://libretranslate.com"

// Config LibreTranslate配置
type Config struct {
	providers.BaseConfig
	// 服务器是否需要API密钥
	RequiresAPIKey bool `json:"requires_api_key"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	config := Config{
		BaseConfig:     providers.DefaultConfig(),
		RequiresAPIKey: false,
	}
	config.APIEndpoint = defaultEndpoint
	return config
}

// Provider LibreTranslate提供商
type Provider struct {
	config Config
	client *resty.Client
}

var _ providers.TranslationProvider = (*Provider)(nil)

// New 创建新的LibreTranslate提供商
func New(config Config) (*Provider, error) {
	if config.RequiresAPIKey && config.APIKey == "" {
		return nil, providers.ErrMissingCredential
	}
	if config.APIEndpoint == "" {
		config.APIEndpoint = defaultEndpoint
	}

	return &Provider{
		config: config,
		client: providers.NewHTTPClient(config.BaseConfig),
	}, nil
}

// Translate 执行翻译
func (p *Provider) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	body := TranslateRequest{
		Q:      req.Text,
		Source: normalizeLanguageCode(req.SourceLanguage),
		Target: normalizeLanguageCode(req.TargetLanguage),
		Format: "text",
	}
	if p.config.APIKey != "" {
		body.APIKey = p.config.APIKey
	}

	var result TranslateResponse
	var apiErr ErrorResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		SetError(&apiErr).
		Post(strings.TrimRight(p.config.APIEndpoint, "/") + "/translate")
	if err != nil {
		return nil, providers.NewBackendError(p.GetName(), err)
	}
	if resp.IsError() {
		detail := apiErr.Error
		if detail == "" {
			detail = resp.String()
		}
		return nil, providers.NewStatusError(p.GetName(), resp.StatusCode(), detail)
	}

	if result.TranslatedText == "" {
		return nil, providers.EmptyResultError(p.GetName())
	}

	metadata := make(map[string]string)
	if result.DetectedLanguage != nil {
		metadata["detected_source"] = result.DetectedLanguage.Language
		metadata["confidence"] = fmt.Sprintf("%.2f", result.DetectedLanguage.Confidence)
	}

	return &providers.ProviderResponse{
		Text:     result.TranslatedText,
		Metadata: metadata,
	}, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "libretranslate"
}

// normalizeLanguageCode LibreTranslate 只接受基础语言代码
func normalizeLanguageCode(lang string) string {
	lower := strings.ToLower(strings.ReplaceAll(lang, "_", "-"))
	if strings.HasPrefix(lower, "zh") {
		return "zh"
	}
	if i := strings.Index(lower, "-"); i > 0 {
		return lower[:i]
	}
	return lower
}

// TranslateRequest 翻译请求
type TranslateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format,omitempty"`
	APIKey string `json:"api_key,omitempty"`
}

// TranslateResponse 翻译响应
type TranslateResponse struct {
	TranslatedText   string            `json:"translatedText"`
	DetectedLanguage *DetectedLanguage `json:"detectedLanguage,omitempty"`
}

// DetectedLanguage 检测到的语言
type DetectedLanguage struct {
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error string `json:"error"`
}
