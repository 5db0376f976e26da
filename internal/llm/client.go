package llm

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/tamyadav31/BOT-GPT/internal/config"
	"github.com/tamyadav31/BOT-GPT/internal/errors"
	"github.com/tamyadav31/BOT-GPT/internal/logger"
	"github.com/tamyadav31/BOT-GPT/internal/metrics"
	"go.uber.org/zap"
)

// 消息角色
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Entry 发送给补全引擎的单条角色标记消息
type Entry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client 聊天补全客户端接口
// 每次调用恰好返回一条文本回复，不支持流式输出
type Client interface {
	Complete(ctx context.Context, entries []Entry) (string, error)
	Ready() bool
}

// OpenAIClient 基于OpenAI兼容端点的补全客户端
type OpenAIClient struct {
	client      *openai.Client
	model       string
	timeout     time.Duration
	maxTokens   int
	temperature float32
}

// NewClient 根据配置创建补全客户端
func NewClient(cfg config.LLMConfig) *OpenAIClient {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		logger.Warn("LLM API key not configured, chat completions will fail")
		return &OpenAIClient{}
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		timeout:     timeout,
		maxTokens:   cfg.MaxTokens,
		temperature: float32(cfg.Temperature),
	}
}

// Ready 检查客户端是否可用
func (c *OpenAIClient) Ready() bool {
	return c.client != nil
}

// Complete 调用补全引擎，返回助手回复文本
// 失败被分类为带类型的错误：认证、限流、请求格式、响应格式、超时、传输
func (c *OpenAIClient) Complete(ctx context.Context, entries []Entry) (string, error) {
	if len(entries) == 0 {
		return "", errors.NewInvalidParameterError("entries", "cannot be empty")
	}
	if c.client == nil {
		return "", errors.NewExternalError(errors.ErrCodeLLMAuthFailed, "LLM API key is not configured", false)
	}

	messages := make([]openai.ChatCompletionMessage, len(entries))
	for i, e := range entries {
		messages[i] = openai.ChatCompletionMessage{
			Role:    e.Role,
			Content: e.Content,
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	metrics.ChatCompletionDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ChatCompletions.WithLabelValues("error").Inc()
		return "", classifyError(err)
	}

	if len(resp.Choices) == 0 {
		metrics.ChatCompletions.WithLabelValues("error").Inc()
		return "", errors.NewExternalError(errors.ErrCodeLLMInvalidResponse,
			"LLM response has no choices", false)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		metrics.ChatCompletions.WithLabelValues("error").Inc()
		return "", errors.NewExternalError(errors.ErrCodeLLMInvalidResponse,
			"LLM response content is empty", false)
	}

	metrics.ChatCompletions.WithLabelValues("ok").Inc()
	logger.Debug("chat completion succeeded",
		zap.String("model", c.model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))
	return content, nil
}

// classifyError 将底层API错误映射为类型化失败
func classifyError(err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewExternalError(errors.ErrCodeLLMTimeout, "LLM API call timed out", true)
	}

	var apiErr *openai.APIError
	if stderrors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized:
			return errors.NewExternalError(errors.ErrCodeLLMAuthFailed,
				"LLM API authentication failed", false).WithCause(err)
		case http.StatusTooManyRequests:
			return errors.NewExternalError(errors.ErrCodeLLMRateLimited,
				"LLM API rate limit exceeded", true).WithCause(err)
		case http.StatusBadRequest:
			return errors.NewExternalError(errors.ErrCodeLLMBadRequest,
				fmt.Sprintf("LLM API rejected request: %s", apiErr.Message), false).WithCause(err)
		default:
			if apiErr.HTTPStatusCode >= 500 {
				return errors.NewExternalError(errors.ErrCodeLLMTransport,
					fmt.Sprintf("LLM API server error (%d)", apiErr.HTTPStatusCode), true).WithCause(err)
			}
			return errors.NewExternalError(errors.ErrCodeLLMTransport,
				fmt.Sprintf("LLM API error (%d)", apiErr.HTTPStatusCode), true).WithCause(err)
		}
	}

	var reqErr *openai.RequestError
	if stderrors.As(err, &reqErr) {
		return errors.NewExternalError(errors.ErrCodeLLMTransport,
			"LLM API request failed", true).WithCause(err)
	}

	return errors.NewExternalError(errors.ErrCodeLLMTransport,
		"LLM API call failed", true).WithCause(err)
}
