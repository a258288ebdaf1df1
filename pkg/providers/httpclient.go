package providers

import (
	"github.com/go-resty/resty/v2"
)

// NewHTTPClient 根据基础配置创建 resty 客户端，不启用重试
func NewHTTPClient(config BaseConfig) *resty.Client {
	client := resty.New().
		SetTimeout(config.Timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", "evaltrans/1.0")
	for k, v := range config.Headers {
		client.SetHeader(k, v)
	}
	return client
}
