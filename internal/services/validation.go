package services

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tamyadav31/BOT-GPT/internal/errors"
)

var validate = validator.New()

// ValidateStruct 校验请求结构体上的validate标签
// 校验失败返回带字段详情的验证错误
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.NewValidationError(err.Error())
	}

	details := make(map[string]string, len(validationErrors))
	var fields []string
	for _, fe := range validationErrors {
		field := strings.ToLower(fe.Field())
		details[field] = validationMessage(fe)
		fields = append(fields, field)
	}

	return errors.NewValidationError(
		fmt.Sprintf("validation failed on: %s", strings.Join(fields, ", "))).
		WithDetails(details)
}

// validationMessage 将校验标签转为可读提示
func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters long", fe.Param())
	case "max":
		return fmt.Sprintf("cannot be longer than %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	default:
		return fmt.Sprintf("failed validation '%s'", fe.Tag())
	}
}
