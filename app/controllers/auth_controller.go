package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/tamyadav31/BOT-GPT/internal/auth"
	"github.com/tamyadav31/BOT-GPT/internal/services"
)

// AuthController 认证控制器
type AuthController struct {
	BaseController
	userService *services.UserService
	jwtService  *auth.JWTService
}

// NewAuthController 创建认证控制器
func NewAuthController(userService *services.UserService, jwtService *auth.JWTService) *AuthController {
	return &AuthController{
		userService: userService,
		jwtService:  jwtService,
	}
}

// Login 邮箱密码登录，返回JWT
func (c *AuthController) Login() {
	var req services.LoginRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := c.userService.Authenticate(c.Ctx.Request.Context(), req)
	if err != nil {
		c.handleServiceError(err)
		return
	}

	token, err := c.jwtService.GenerateToken(user.ID, user.Name, user.Email)
	if err != nil {
		c.JSONError(http.StatusInternalServerError, "failed to issue token")
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

// Refresh 刷新JWT
func (c *AuthController) Refresh() {
	tokenString, err := auth.ExtractTokenFromHeader(c.Ctx.Input.Header("Authorization"))
	if err != nil {
		c.JSONError(http.StatusUnauthorized, err.Error())
		return
	}

	token, err := c.jwtService.RefreshToken(tokenString)
	if err != nil {
		c.JSONError(http.StatusUnauthorized, "invalid token")
		return
	}

	c.JSONSuccess(map[string]interface{}{"token": token})
}
