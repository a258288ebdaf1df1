package google

import (
	"context"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/nerdneilsfield/evaltrans/pkg/providers"
)

const defaultEndpoint = "https://translation.googleapis.com/language/translate/v2"

// Config Google Translate配置
type Config struct {
	providers.BaseConfig
	ProjectID string `json:"project_id,omitempty"` // 用于Google Cloud Translation API
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	config := Config{
		BaseConfig: providers.DefaultConfig(),
	}
	config.APIEndpoint = defaultEndpoint
	return config
}

// Provider Google Translate提供商
type Provider struct {
	config Config
	client *resty.Client
}

var _ providers.TranslationProvider = (*Provider)(nil)

// New 创建新的Google Translate提供商
func New(config Config) (*Provider, error) {
	if config.APIKey == "" {
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
	var result TranslateResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("key", p.config.APIKey).
		SetFormData(map[string]string{
			"q":      req.Text,
			"source": normalizeLanguageCode(req.SourceLanguage),
			"target": normalizeLanguageCode(req.TargetLanguage),
			"format": "text",
		}).
		SetResult(&result).
		Post(p.config.APIEndpoint)
	if err != nil {
		return nil, providers.NewBackendError(p.GetName(), err)
	}
	if resp.IsError() {
		return nil, providers.NewStatusError(p.GetName(), resp.StatusCode(), resp.String())
	}

	if len(result.Data.Translations) == 0 || result.Data.Translations[0].TranslatedText == "" {
		return nil, providers.EmptyResultError(p.GetName())
	}

	first := result.Data.Translations[0]
	metadata := make(map[string]string)
	if first.DetectedSourceLanguage != "" {
		metadata["detected_source"] = first.DetectedSourceLanguage
	}
	if p.config.ProjectID != "" {
		metadata["project_id"] = p.config.ProjectID
	}

	return &providers.ProviderResponse{
		Text:     first.TranslatedText,
		Metadata: metadata,
	}, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "google"
}

// normalizeLanguageCode 标准化语言代码
func normalizeLanguageCode(lang string) string {
	lower := strings.ToLower(strings.ReplaceAll(lang, "_", "-"))

	// Google 只对中文区分区域
	switch lower {
	case "zh", "zh-cn", "zh-hans":
		return "zh-CN"
	case "zh-tw", "zh-hant":
		return "zh-TW"
	}
	if i := strings.Index(lower, "-"); i > 0 {
		return lower[:i]
	}
	return lower
}

// TranslateResponse 翻译响应
type TranslateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText         string `json:"translatedText"`
			DetectedSourceLanguage string `json:"detectedSourceLanguage,omitempty"`
		} `json:"translations"`
	} `json:"data"`
}
