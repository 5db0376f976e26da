package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误
	ErrCodeInternalServer  ErrorCode = "INTERNAL_SERVER_ERROR"
	ErrCodeBadRequest      ErrorCode = "BAD_REQUEST"
	ErrCodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden       ErrorCode = "FORBIDDEN"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeConflict        ErrorCode = "CONFLICT"
	ErrCodeTooManyRequests ErrorCode = "TOO_MANY_REQUESTS"

	// 验证错误
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidParameter ErrorCode = "INVALID_PARAMETER"

	// 业务逻辑错误
	ErrCodeResourceNotFound ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeAccessDenied     ErrorCode = "ACCESS_DENIED"
	ErrCodeOperationFailed  ErrorCode = "OPERATION_FAILED"

	// 数据库错误
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"

	// 检索索引错误
	ErrCodeIndexBuildFailed ErrorCode = "INDEX_BUILD_FAILED"
	ErrCodeIndexError       ErrorCode = "INDEX_ERROR"
	ErrCodeEmbedderError    ErrorCode = "EMBEDDER_ERROR"

	// LLM外部服务错误
	ErrCodeLLMAuthFailed      ErrorCode = "LLM_AUTH_FAILED"
	ErrCodeLLMRateLimited     ErrorCode = "LLM_RATE_LIMITED"
	ErrCodeLLMBadRequest      ErrorCode = "LLM_BAD_REQUEST"
	ErrCodeLLMInvalidResponse ErrorCode = "LLM_INVALID_RESPONSE"
	ErrCodeLLMTimeout         ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMTransport       ErrorCode = "LLM_TRANSPORT_ERROR"
)

// ErrorType 错误类型
type ErrorType int

const (
	ErrorTypeSystem ErrorType = iota
	ErrorTypeBusiness
	ErrorTypeValidation
	ErrorTypeExternal
)

// AppError 应用错误结构体
type AppError struct {
	Code      ErrorCode   `json:"code"`
	Message   string      `json:"message"`
	Type      ErrorType   `json:"type"`
	HTTPCode  int         `json:"-"`
	Details   interface{} `json:"details,omitempty"`
	Cause     error       `json:"-"`
	Retryable bool        `json:"-"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails 添加错误详情
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// WithCause 添加错误原因
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// 错误构造函数

// NewSystemError 创建系统错误
func NewSystemError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Type:     ErrorTypeSystem,
		HTTPCode: http.StatusInternalServerError,
	}
}

// NewBusinessError 创建业务错误
func NewBusinessError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Type:     ErrorTypeBusiness,
		HTTPCode: getHTTPCodeForError(code),
	}
}

// NewValidationError 创建验证错误
func NewValidationError(message string) *AppError {
	return &AppError{
		Code:     ErrCodeValidationFailed,
		Message:  message,
		Type:     ErrorTypeValidation,
		HTTPCode: http.StatusBadRequest,
	}
}

// NewInvalidParameterError 创建参数无效错误
// 调用方参数违反前置条件：立即返回，不重试，无部分效果
func NewInvalidParameterError(param, reason string) *AppError {
	return &AppError{
		Code:     ErrCodeInvalidParameter,
		Message:  fmt.Sprintf("invalid parameter '%s': %s", param, reason),
		Type:     ErrorTypeValidation,
		HTTPCode: http.StatusBadRequest,
	}
}

// NewNotFoundError 创建资源未找到错误
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:     ErrCodeResourceNotFound,
		Message:  fmt.Sprintf("%s not found", resource),
		Type:     ErrorTypeBusiness,
		HTTPCode: http.StatusNotFound,
	}
}

// NewAccessDeniedError 创建访问拒绝错误
func NewAccessDeniedError() *AppError {
	return &AppError{
		Code:     ErrCodeAccessDenied,
		Message:  "Access denied",
		Type:     ErrorTypeBusiness,
		HTTPCode: http.StatusForbidden,
	}
}

// NewIndexBuildError 创建索引构建错误
// 文档及其分块保持有效，仅检索降级为"无上下文"
func NewIndexBuildError(documentID uint, cause error) *AppError {
	return &AppError{
		Code:     ErrCodeIndexBuildFailed,
		Message:  fmt.Sprintf("failed to build index for document %d", documentID),
		Type:     ErrorTypeExternal,
		HTTPCode: http.StatusInternalServerError,
		Cause:    cause,
	}
}

// NewIndexError 创建索引错误（持久化数据损坏或嵌入服务失败）
// 与"索引不存在"的正常路径严格区分
func NewIndexError(message string, cause error) *AppError {
	return &AppError{
		Code:     ErrCodeIndexError,
		Message:  message,
		Type:     ErrorTypeExternal,
		HTTPCode: http.StatusInternalServerError,
		Cause:    cause,
	}
}

// NewEmbedderError 创建嵌入服务错误
func NewEmbedderError(cause error) *AppError {
	return &AppError{
		Code:      ErrCodeEmbedderError,
		Message:   "embedding service failed",
		Type:      ErrorTypeExternal,
		HTTPCode:  http.StatusBadGateway,
		Cause:     cause,
		Retryable: true,
	}
}

// NewExternalError 创建外部服务错误
func NewExternalError(code ErrorCode, message string, retryable bool) *AppError {
	httpCode := http.StatusBadGateway
	switch code {
	case ErrCodeLLMRateLimited:
		httpCode = http.StatusTooManyRequests
	case ErrCodeLLMTimeout:
		httpCode = http.StatusGatewayTimeout
	}
	return &AppError{
		Code:      code,
		Message:   message,
		Type:      ErrorTypeExternal,
		HTTPCode:  httpCode,
		Retryable: retryable,
	}
}

// getHTTPCodeForError 根据错误码获取HTTP状态码
func getHTTPCodeForError(code ErrorCode) int {
	switch code {
	case ErrCodeResourceNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeAccessDenied:
		return http.StatusForbidden
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeTooManyRequests:
		return http.StatusTooManyRequests
	case ErrCodeValidationFailed, ErrCodeInvalidParameter:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// IsAppError 检查是否为AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError 获取AppError，如果不是则包装为系统错误
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewSystemError(ErrCodeInternalServer, "Internal server error").WithCause(err)
}

// IsCode 检查错误是否携带指定错误码
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsRetryable 检查错误是否可由调用方重试
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}
