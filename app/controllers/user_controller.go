package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/tamyadav31/BOT-GPT/internal/services"
)

// UserController 用户控制器
type UserController struct {
	BaseController
	userService *services.UserService
}

// NewUserController 创建用户控制器
func NewUserController(userService *services.UserService) *UserController {
	return &UserController{userService: userService}
}

// Create 注册新用户
func (c *UserController) Create() {
	var req services.CreateUserRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := c.userService.Register(c.Ctx.Request.Context(), req)
	if err != nil {
		c.handleServiceError(err)
		return
	}

	c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    user,
	})
}

// List 分页列出用户
func (c *UserController) List() {
	page, _ := strconv.Atoi(c.GetString("page", "1"))
	pageSize, _ := strconv.Atoi(c.GetString("page_size", "20"))

	users, total, err := c.userService.ListUsers(c.Ctx.Request.Context(), page, pageSize)
	if err != nil {
		c.handleServiceError(err)
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"users":     users,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// Get 获取用户详情
func (c *UserController) Get() {
	userID, ok := c.mustParseUintParam(":id")
	if !ok {
		return
	}

	user, err := c.userService.GetUser(c.Ctx.Request.Context(), userID)
	if err != nil {
		c.handleServiceError(err)
		return
	}

	c.JSONSuccess(user)
}
