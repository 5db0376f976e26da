package controllers

import (
	"net/http"

	"github.com/tamyadav31/BOT-GPT/internal/database"
)

// RootController 根路径控制器
type RootController struct {
	BaseController
}

// Index 服务信息
func (c *RootController) Index() {
	c.JSONSuccess(map[string]interface{}{
		"service": "bot-gpt-backend",
		"status":  "running",
	})
}

// HealthController 健康检查控制器
type HealthController struct {
	BaseController
	checker *database.HealthChecker
}

// NewHealthController 创建健康检查控制器
func NewHealthController(checker *database.HealthChecker) *HealthController {
	return &HealthController{checker: checker}
}

// Health 健康检查
func (c *HealthController) Health() {
	if c.checker == nil {
		c.JSONSuccess(map[string]interface{}{"status": "ok"})
		return
	}

	result := c.checker.Check(c.Ctx.Request.Context())
	if !result.Healthy {
		c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"success": false,
			"data":    result,
		})
		return
	}

	c.JSONSuccess(result)
}
