package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/nerdneilsfield/evaltrans/pkg/providers"
)

const systemPrompt = "You are a professional translator for HR performance reviews. " +
	"Translate accurately while preserving the original meaning and tone. " +
	"Reply with the translation only."

// Config OpenAI配置（使用官方SDK）
type Config struct {
	providers.BaseConfig
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	OrgID       string  `json:"org_id,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		BaseConfig:  providers.DefaultConfig(),
		Model:       "gpt-4o-mini",
		Temperature: 0.2,
		MaxTokens:   1024,
	}
}

// Provider OpenAI提供商
type Provider struct {
	config Config
	client openai.Client
}

var _ providers.TranslationProvider = (*Provider)(nil)

// New 创建新的OpenAI提供商
func New(config Config) (*Provider, error) {
	if config.APIKey == "" {
		return nil, providers.ErrMissingCredential
	}
	if config.Model == "" {
		config.Model = DefaultConfig().Model
	}

	// 重试交给调用方的后端链处理
	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
	}
	if config.APIEndpoint != "" {
		opts = append(opts, option.WithBaseURL(config.APIEndpoint))
	}
	if config.OrgID != "" {
		opts = append(opts, option.WithOrganization(config.OrgID))
	}
	for k, v := range config.Headers {
		opts = append(opts, option.WithHeader(k, v))
	}
	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(config.Timeout))
	}

	return &Provider{
		config: config,
		client: openai.NewClient(opts...),
	}, nil
}

// Translate 执行翻译
func (p *Provider) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(fmt.Sprintf("Translate the following text from %s to %s:\n\n%s",
				req.SourceLanguage, req.TargetLanguage, req.Text)),
		},
		Model: openai.ChatModel(p.config.Model),
	}
	if p.config.Temperature > 0 {
		params.Temperature = openai.Float(p.config.Temperature)
	}
	if p.config.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(p.config.MaxTokens))
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, &providers.BackendError{
				Backend:    p.GetName(),
				StatusCode: apiErr.StatusCode,
				Message:    providers.DescribeStatus(apiErr.StatusCode),
				Err:        err,
			}
		}
		return nil, providers.NewBackendError(p.GetName(), err)
	}

	if len(completion.Choices) == 0 {
		return nil, providers.EmptyResultError(p.GetName())
	}
	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return nil, providers.EmptyResultError(p.GetName())
	}

	return &providers.ProviderResponse{
		Text: text,
		Metadata: map[string]string{
			"model":         completion.Model,
			"finish_reason": string(completion.Choices[0].FinishReason),
			"id":            completion.ID,
		},
	}, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "openai"
}
