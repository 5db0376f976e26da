package controllers

import (
	"net/http"
	"strconv"

	"github.com/beego/beego/v2/server/web"
	"github.com/tamyadav31/BOT-GPT/internal/errors"
	"github.com/tamyadav31/BOT-GPT/internal/logger"
	"go.uber.org/zap"
)

// BaseController provides helpers for consistent JSON responses.
type BaseController struct {
	web.Controller
}

// JSON writes a JSON response with the supplied HTTP status code.
func (c *BaseController) JSON(status int, payload interface{}) {
	c.Ctx.Output.SetStatus(status)
	c.Data["json"] = payload
	c.ServeJSON()
}

// JSONSuccess writes a standard success envelope.
func (c *BaseController) JSONSuccess(data interface{}) {
	c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// JSONError writes an error envelope with message.
func (c *BaseController) JSONError(status int, message string) {
	c.JSON(status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// handleServiceError maps service errors onto HTTP responses.
func (c *BaseController) handleServiceError(err error) {
	appErr := errors.GetAppError(err)
	if appErr.HTTPCode >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("path", c.Ctx.Request.RequestURI),
			zap.String("method", c.Ctx.Request.Method),
			zap.Error(err))
	}

	payload := map[string]interface{}{
		"success": false,
		"error":   appErr.Message,
		"code":    appErr.Code,
	}
	if appErr.Details != nil {
		payload["details"] = appErr.Details
	}
	c.JSON(appErr.HTTPCode, payload)
}

// currentUserID 读取认证中间件写入的用户ID
func (c *BaseController) currentUserID() (uint, bool) {
	if v := c.Ctx.Input.GetData("user_id"); v != nil {
		if userID, ok := v.(uint); ok {
			return userID, true
		}
	}

	c.JSONError(http.StatusUnauthorized, "authentication required")
	return 0, false
}

// mustParseUintParam 解析路径参数为uint，失败时直接响应400
func (c *BaseController) mustParseUintParam(name string) (uint, bool) {
	raw := c.Ctx.Input.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSONError(http.StatusBadRequest, "invalid id parameter")
		return 0, false
	}
	return uint(id), true
}
