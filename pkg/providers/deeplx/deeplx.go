package deeplx

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/nerdneilsfield/evaltrans/pkg/providers"
)

const defaultEndpoint = "http://localhost:1188/translate"

// Config DeepLX配置
type Config struct {
	providers.BaseConfig
	AccessToken string `json:"access_token,omitempty"` // 可选的访问令牌
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	config := Config{
		BaseConfig: providers.DefaultConfig(),
	}
	config.APIEndpoint = defaultEndpoint
	return config
}

// Provider DeepLX提供商，自托管服务不需要API密钥
type Provider struct {
	config Config
	client *resty.Client
}

var _ providers.TranslationProvider = (*Provider)(nil)

// New 创建新的DeepLX提供商
func New(config Config) (*Provider, error) {
	if config.APIEndpoint == "" {
		config.APIEndpoint = defaultEndpoint
	}
	if config.AccessToken == "" {
		config.AccessToken = config.APIKey
	}

	client := providers.NewHTTPClient(config.BaseConfig)
	if config.AccessToken != "" {
		client.SetAuthToken(config.AccessToken)
	}
	return &Provider{config: config, client: client}, nil
}

// Translate 执行翻译
func (p *Provider) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	var result TranslateResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(TranslateRequest{
			Text:       req.Text,
			SourceLang: normalizeLanguageCode(req.SourceLanguage),
			TargetLang: normalizeLanguageCode(req.TargetLanguage),
		}).
		SetResult(&result).
		Post(p.config.APIEndpoint)
	if err != nil {
		return nil, providers.NewBackendError(p.GetName(), err)
	}
	if resp.IsError() {
		return nil, providers.NewStatusError(p.GetName(), resp.StatusCode(), resp.String())
	}

	// HTTP 200 中也可能携带业务错误码
	if result.Code != 0 && result.Code != 200 {
		return nil, &providers.BackendError{
			Backend:    p.GetName(),
			StatusCode: result.Code,
			Message:    fmt.Sprintf("%s: %s", providers.DescribeStatus(result.Code), result.Message),
		}
	}
	if result.Data == "" {
		return nil, providers.EmptyResultError(p.GetName())
	}

	metadata := make(map[string]string)
	if result.SourceLang != "" {
		metadata["detected_source"] = result.SourceLang
	}
	return &providers.ProviderResponse{Text: result.Data, Metadata: metadata}, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "deeplx"
}

// normalizeLanguageCode DeepLX使用大写的语言代码，与DeepL兼容，不接受变体
func normalizeLanguageCode(lang string) string {
	upper := strings.ToUpper(strings.ReplaceAll(lang, "_", "-"))
	if i := strings.Index(upper, "-"); i > 0 {
		return upper[:i]
	}
	return upper
}

// TranslateRequest 翻译请求
type TranslateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

// TranslateResponse 翻译响应
type TranslateResponse struct {
	Code       int    `json:"code"`
	Message    string `json:"message,omitempty"`
	Data       string `json:"data"`
	SourceLang string `json:"source_lang,omitempty"`
}
