package llm

import (
	"context"
	"net/http"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/tamyadav31/BOT-GPT/internal/config"
	"github.com/tamyadav31/BOT-GPT/internal/errors"
)

func TestNewClientWithoutAPIKey(t *testing.T) {
	client := NewClient(config.LLMConfig{APIKey: ""})
	assert.False(t, client.Ready())

	_, err := client.Complete(context.Background(), []Entry{{Role: RoleUser, Content: "hi"}})
	assert.True(t, errors.IsCode(err, errors.ErrCodeLLMAuthFailed))
}

func TestCompleteRejectsEmptyEntries(t *testing.T) {
	client := NewClient(config.LLMConfig{APIKey: "test-key", Timeout: 30})
	assert.True(t, client.Ready())

	_, err := client.Complete(context.Background(), nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidParameter))
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  errors.ErrorCode
		retryable bool
	}{
		{
			name:      "timeout",
			err:       context.DeadlineExceeded,
			wantCode:  errors.ErrCodeLLMTimeout,
			retryable: true,
		},
		{
			name:      "auth failure",
			err:       &openai.APIError{HTTPStatusCode: http.StatusUnauthorized},
			wantCode:  errors.ErrCodeLLMAuthFailed,
			retryable: false,
		},
		{
			name:      "rate limited",
			err:       &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests},
			wantCode:  errors.ErrCodeLLMRateLimited,
			retryable: true,
		},
		{
			name:      "bad request",
			err:       &openai.APIError{HTTPStatusCode: http.StatusBadRequest, Message: "invalid model"},
			wantCode:  errors.ErrCodeLLMBadRequest,
			retryable: false,
		},
		{
			name:      "server error",
			err:       &openai.APIError{HTTPStatusCode: http.StatusInternalServerError},
			wantCode:  errors.ErrCodeLLMTransport,
			retryable: true,
		},
		{
			name:      "request error",
			err:       &openai.RequestError{HTTPStatusCode: 0, Err: context.Canceled},
			wantCode:  errors.ErrCodeLLMTransport,
			retryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyError(tt.err)
			assert.True(t, errors.IsCode(err, tt.wantCode), "expected code %s, got %v", tt.wantCode, err)
			assert.Equal(t, tt.retryable, errors.IsRetryable(err))
		})
	}
}

func TestNewClientTimeoutDefault(t *testing.T) {
	client := NewClient(config.LLMConfig{APIKey: "test-key", Timeout: 0})
	assert.Equal(t, 30*time.Second, client.timeout)
}
