package deepl

import (
	"context"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/nerdneilsfield/evaltrans/pkg/providers"
)

const (
	proEndpoint  = "https://api.deepl.com/v2"
	freeEndpoint = "https://api-free.deepl.com/v2"
)

// Config DeepL配置
type Config struct {
	providers.BaseConfig
	UseFreeAPI bool `json:"use_free_api"` // 是否使用免费API
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	config := Config{
		BaseConfig: providers.DefaultConfig(),
	}
	config.APIEndpoint = proEndpoint
	return config
}

// Provider DeepL提供商
type Provider struct {
	config Config
	client *resty.Client
}

var _ providers.TranslationProvider = (*Provider)(nil)

// New 创建新的DeepL提供商
func New(config Config) (*Provider, error) {
	if config.APIKey == "" {
		return nil, providers.ErrMissingCredential
	}
	if config.APIEndpoint == "" {
		if config.UseFreeAPI {
			config.APIEndpoint = freeEndpoint
		} else {
			config.APIEndpoint = proEndpoint
		}
	}

	return &Provider{
		config: config,
		client: providers.NewHTTPClient(config.BaseConfig),
	}, nil
}

// Translate 执行翻译
func (p *Provider) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	var result TranslateResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "DeepL-Auth-Key "+p.config.APIKey).
		SetFormData(map[string]string{
			"text":        req.Text,
			"source_lang": normalizeLanguageCode(req.SourceLanguage, true),
			"target_lang": normalizeLanguageCode(req.TargetLanguage, false),
		}).
		SetResult(&result).
		Post(strings.TrimRight(p.config.APIEndpoint, "/") + "/translate")
	if err != nil {
		return nil, providers.NewBackendError(p.GetName(), err)
	}
	if resp.IsError() {
		return nil, providers.NewStatusError(p.GetName(), resp.StatusCode(), resp.String())
	}

	if len(result.Translations) == 0 || result.Translations[0].Text == "" {
		return nil, providers.EmptyResultError(p.GetName())
	}

	metadata := make(map[string]string)
	if detected := result.Translations[0].DetectedSourceLanguage; detected != "" {
		metadata["detected_source"] = detected
	}

	return &providers.ProviderResponse{
		Text:     result.Translations[0].Text,
		Metadata: metadata,
	}, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "deepl"
}

// normalizeLanguageCode 标准化语言代码为DeepL格式
func normalizeLanguageCode(lang string, isSource bool) string {
	// DeepL使用大写的语言代码
	upper := strings.ToUpper(strings.ReplaceAll(lang, "_", "-"))

	// 对于英语和葡萄牙语，目标语言需要指定变体
	if !isSource {
		switch upper {
		case "EN":
			return "EN-US"
		case "PT":
			return "PT-BR"
		}
	} else if i := strings.Index(upper, "-"); i > 0 {
		// 源语言不接受变体
		return upper[:i]
	}

	return upper
}

// TranslateResponse 翻译响应
type TranslateResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}
