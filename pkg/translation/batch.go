package translation

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TranslateBatch 按组翻译：组内并发，组间串行并间隔 BatchDelay。
// 单条失败会单独重试一次，仍失败则使用原文；结果与输入等长同序。
// ctx 取消时剩余条目保留原文并返回 ctx 的错误。
func (s *service) TranslateBatch(ctx context.Context, req *BatchRequest) ([]string, error) {
	if req == nil {
		return nil, NewValidationError("request", "request is nil")
	}
	// 语言和租户在发起任何请求前统一校验
	if _, _, err := s.validate(&Request{
		TenantID:       req.TenantID,
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
	}); err != nil {
		return nil, err
	}

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = s.config.BatchSize
	}

	results := make([]string, len(req.Texts))
	copy(results, req.Texts)

	total := len(req.Texts)
	for start := 0; start < total; start += batchSize {
		if start > 0 && s.config.BatchDelay > 0 {
			timer := time.NewTimer(s.config.BatchDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return results, ctx.Err()
			case <-timer.C:
			}
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}

		end := start + batchSize
		if end > total {
			end = total
		}

		var g errgroup.Group
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				results[i] = s.translateItem(ctx, req, i)
				return nil
			})
		}
		_ = g.Wait()

		if req.Progress != nil {
			req.Progress(end, total)
		}
	}

	return results, nil
}

// translateItem 翻译单条，失败重试一次，仍失败返回原文
func (s *service) translateItem(ctx context.Context, req *BatchRequest, i int) string {
	item := &Request{
		TenantID:       req.TenantID,
		Text:           req.Texts[i],
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
	}

	result, err := s.Translate(ctx, item)
	if err == nil {
		return result.Text
	}
	s.logger.Warn("batch item failed, retrying once", zap.Int("index", i), zap.Error(err))

	result, err = s.Translate(ctx, item)
	if err == nil {
		return result.Text
	}
	s.logger.Warn("batch item failed twice, using original text", zap.Int("index", i), zap.Error(err))
	return req.Texts[i]
}
