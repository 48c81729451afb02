// Package embedding 提供文本向量化服务
// 封装底层向量化组件，支持批量处理、限速与重试
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/embedding/dashscope"
	einoembedding "github.com/cloudwego/eino/components/embedding"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/localmind/localmind/internal/config"
	"github.com/localmind/localmind/internal/model"
)

// 向量化错误
var (
	// ErrEmptyInput 输入文本为空
	ErrEmptyInput = errors.New("embedding input is empty")
	// ErrProviderUnreachable 向量化服务不可达
	ErrProviderUnreachable = errors.New("embedding provider unreachable")
	// ErrRateLimited 重试后仍被限流
	ErrRateLimited = errors.New("embedding provider rate limited")
)

// BuildText 拼接问答文本作为向量化输入
func BuildText(question, answer string) string {
	return question + " " + answer
}

// Result 批量向量化的单条结果，与输入顺序一一对应
type Result struct {
	Vector model.Vector
	Err    error
}

// Client 向量化客户端
type Client struct {
	embedder   einoembedding.Embedder
	dimensions int
	batchSize  int
	maxRetries int
	limiter    *rate.Limiter
}

// NewClient 创建向量化客户端
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	embedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewClientWithEmbedder(embedder, cfg), nil
}

// NewClientWithEmbedder 使用现有 Embedder 创建客户端，便于测试
func NewClientWithEmbedder(embedder einoembedding.Embedder, cfg *config.Config) *Client {
	batchSize := cfg.Ingest.BatchSize
	if batchSize <= 0 {
		batchSize = 5
	}

	delay := time.Duration(cfg.Ingest.BatchDelayMs) * time.Millisecond
	limiter := rate.NewLimiter(rate.Inf, 1)
	if delay > 0 {
		// 批次之间保持最小间隔
		limiter = rate.NewLimiter(rate.Every(delay), 1)
	}

	return &Client{
		embedder:   embedder,
		dimensions: cfg.AI.Embedding.Dimensions,
		batchSize:  batchSize,
		maxRetries: cfg.Ingest.MaxRetries,
		limiter:    limiter,
	}
}

// newEmbedder 按配置创建底层 Embedder
func newEmbedder(ctx context.Context, cfg *config.Config) (einoembedding.Embedder, error) {
	embCfg := cfg.AI.Embedding

	switch embCfg.Provider {
	case "alibaba", "qwen", "dashscope":
		if embCfg.APIKey == "" {
			return nil, fmt.Errorf("api_key is required for provider: %s", embCfg.Provider)
		}

		embConfig := &dashscope.EmbeddingConfig{
			APIKey: embCfg.APIKey,
			Model:  embCfg.Model,
		}
		if embCfg.Timeout > 0 {
			embConfig.Timeout = time.Duration(embCfg.Timeout) * time.Second
		}
		if embCfg.Dimensions > 0 {
			embConfig.Dimensions = &embCfg.Dimensions
		}

		embedder, err := dashscope.NewEmbedder(ctx, embConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		return embedder, nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", embCfg.Provider)
	}
}

// Dimensions 返回配置的向量维度
func (c *Client) Dimensions() int {
	return c.dimensions
}

// Embed 向量化单条文本
func (c *Client) Embed(ctx context.Context, text string) (model.Vector, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	vectors, err := c.embedWithRetry(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vector")
	}
	return model.Vector(vectors[0]), nil
}

// EmbedBatch 批量向量化。
// 结果与输入顺序一一对应；每批失败只影响该批记录，不中断整体。
func (c *Client) EmbedBatch(ctx context.Context, texts []string) []Result {
	results := make([]Result, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(2)

	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		g.Go(func() error {
			if err := c.limiter.Wait(gctx); err != nil {
				for i := start; i < end; i++ {
					results[i].Err = err
				}
				return nil
			}

			vectors, err := c.embedWithRetry(gctx, texts[start:end])
			if err != nil {
				for i := start; i < end; i++ {
					results[i].Err = err
				}
				return nil
			}

			for i := start; i < end; i++ {
				offset := i - start
				if offset >= len(vectors) {
					results[i].Err = fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), end-start)
					continue
				}
				results[i].Vector = model.Vector(vectors[offset])
			}
			return nil
		})
	}

	g.Wait()
	return results
}

// embedWithRetry 调用底层 Embedder，限流错误按上限重试
func (c *Client) embedWithRetry(ctx context.Context, texts []string) ([][]float64, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		vectors, err := c.embedder.EmbedStrings(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err

		if !isRateLimitError(err) {
			return nil, classifyError(err)
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrRateLimited, lastErr)
}

// isRateLimitError 判断是否为限流错误
func isRateLimitError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests")
}

// classifyError 将底层连接类错误归为服务不可达
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrProviderUnreachable, err)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "timeout") {
		return fmt.Errorf("%w: %v", ErrProviderUnreachable, err)
	}
	return fmt.Errorf("failed to embed text: %w", err)
}
