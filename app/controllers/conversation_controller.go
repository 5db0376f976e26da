package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/tamyadav31/BOT-GPT/internal/services"
)

// ConversationController 对话控制器
type ConversationController struct {
	BaseController
	conversationService *services.ConversationService
}

// NewConversationController 创建对话控制器
func NewConversationController(conversationService *services.ConversationService) *ConversationController {
	return &ConversationController{conversationService: conversationService}
}

// Create 创建对话并完成首轮交互
func (c *ConversationController) Create() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}

	var req services.CreateConversationRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}

	turn, err := c.conversationService.CreateConversation(c.Ctx.Request.Context(), userID, req)
	if err != nil {
		c.handleServiceError(err)
		return
	}

	c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    turn,
	})
}

// List 分页列出当前用户对话
func (c *ConversationController) List() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.GetString("page", "1"))
	pageSize, _ := strconv.Atoi(c.GetString("page_size", "20"))

	convs, total, err := c.conversationService.ListConversations(c.Ctx.Request.Context(), userID, page, pageSize)
	if err != nil {
		c.handleServiceError(err)
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"conversations": convs,
		"total":         total,
		"page":          page,
		"page_size":     pageSize,
	})
}

// Get 获取对话详情
func (c *ConversationController) Get() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}

	convID, ok := c.mustParseUintParam(":id")
	if !ok {
		return
	}

	conv, err := c.conversationService.GetConversation(c.Ctx.Request.Context(), userID, convID)
	if err != nil {
		c.handleServiceError(err)
		return
	}

	c.JSONSuccess(conv)
}

// Delete 删除对话
func (c *ConversationController) Delete() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}

	convID, ok := c.mustParseUintParam(":id")
	if !ok {
		return
	}

	if err := c.conversationService.DeleteConversation(c.Ctx.Request.Context(), userID, convID); err != nil {
		c.handleServiceError(err)
		return
	}

	c.JSONSuccess(map[string]interface{}{"deleted": convID})
}

// AddMessage 在对话中追加一轮交互
func (c *ConversationController) AddMessage() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}

	convID, ok := c.mustParseUintParam(":id")
	if !ok {
		return
	}

	var req services.AddMessageRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}

	turn, err := c.conversationService.AddMessage(c.Ctx.Request.Context(), userID, convID, req)
	if err != nil {
		c.handleServiceError(err)
		return
	}

	c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    turn,
	})
}

// GetMessages 按时间正序返回对话全部消息
func (c *ConversationController) GetMessages() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}

	convID, ok := c.mustParseUintParam(":id")
	if !ok {
		return
	}

	messages, err := c.conversationService.GetMessages(c.Ctx.Request.Context(), userID, convID)
	if err != nil {
		c.handleServiceError(err)
		return
	}

	c.JSONSuccess(map[string]interface{}{"messages": messages})
}
