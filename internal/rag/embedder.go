package rag

import (
	"context"
	stderrors "errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/tamyadav31/BOT-GPT/internal/errors"
)

// Embedder 定义文本向量化接口
// 返回的向量与输入一一对应且保持顺序
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Ready() bool
}

// NoopEmbedder 默认占位实现，未配置嵌入服务时使用
type NoopEmbedder struct{}

func (n *NoopEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.NewEmbedderError(stderrors.New("embedding provider not configured"))
}

func (n *NoopEmbedder) Ready() bool {
	return false
}

// OpenAIEmbedder 使用OpenAI Embedding API
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

// NewOpenAIEmbedder 创建OpenAI嵌入向量生成器
func NewOpenAIEmbedder(apiKey, baseURL, model string) Embedder {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return &NoopEmbedder{}
	}
	if model == "" {
		model = "text-embedding-3-small"
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if e.client == nil {
		return nil, errors.NewEmbedderError(stderrors.New("openai client not initialized"))
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	})
	if err != nil {
		return nil, errors.NewEmbedderError(err)
	}
	if len(resp.Data) != len(texts) {
		return nil, errors.NewEmbedderError(stderrors.New("embedding count mismatch"))
	}

	vectors := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, errors.NewEmbedderError(stderrors.New("embedding index out of range"))
		}
		vec := make([]float32, len(d.Embedding))
		copy(vec, d.Embedding)
		vectors[d.Index] = vec
	}
	return vectors, nil
}

func (e *OpenAIEmbedder) Ready() bool {
	return e.client != nil
}
