package ollama

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/nerdneilsfield/evaltrans/pkg/providers"
)

const defaultEndpoint = "http://localhost:11434"

// Config Ollama配置
type Config struct {
	providers.BaseConfig
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	config := Config{
		BaseConfig:  providers.DefaultConfig(),
		Model:       "llama3",
		Temperature: 0.2,
		MaxTokens:   1024,
	}
	config.APIEndpoint = defaultEndpoint
	return config
}

// Provider Ollama提供商，本地部署通常不需要API密钥
type Provider struct {
	config Config
	client *resty.Client
}

var _ providers.TranslationProvider = (*Provider)(nil)

// New 创建新的Ollama提供商
func New(config Config) (*Provider, error) {
	if config.APIEndpoint == "" {
		config.APIEndpoint = defaultEndpoint
	}
	if config.Model == "" {
		return nil, fmt.Errorf("ollama: model is required")
	}

	client := providers.NewHTTPClient(config.BaseConfig)
	if config.APIKey != "" {
		client.SetAuthToken(config.APIKey)
	}
	return &Provider{config: config, client: client}, nil
}

// Translate 执行翻译
func (p *Provider) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	body := GenerateRequest{
		Model:  p.config.Model,
		Prompt: buildPrompt(req),
		Stream: false,
		Options: map[string]any{
			"temperature": p.config.Temperature,
		},
	}
	if p.config.MaxTokens > 0 {
		body.Options["num_predict"] = p.config.MaxTokens
	}

	var result GenerateResponse
	var apiErr APIError
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		SetError(&apiErr).
		Post(strings.TrimRight(p.config.APIEndpoint, "/") + "/api/generate")
	if err != nil {
		return nil, providers.NewBackendError(p.GetName(), err)
	}
	if resp.IsError() {
		backendErr := providers.NewStatusError(p.GetName(), resp.StatusCode(), "")
		if apiErr.ErrorMsg != "" {
			backendErr.Message += ": " + apiErr.ErrorMsg
		}
		return nil, backendErr
	}

	text := strings.TrimSpace(result.Response)
	if text == "" {
		return nil, providers.EmptyResultError(p.GetName())
	}

	return &providers.ProviderResponse{
		Text: text,
		Metadata: map[string]string{
			"model":      result.Model,
			"eval_count": fmt.Sprint(result.EvalCount),
		},
	}, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "ollama"
}

func buildPrompt(req *providers.ProviderRequest) string {
	return fmt.Sprintf("You are a professional translator for HR performance reviews. "+
		"Translate the following text from %s to %s. "+
		"Reply with the translation only, without any explanation.\n\n%s",
		req.SourceLanguage, req.TargetLanguage, req.Text)
}

// GenerateRequest 生成请求
type GenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

// GenerateResponse 生成响应
type GenerateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// APIError API错误
type APIError struct {
	ErrorMsg string `json:"error"`
}
