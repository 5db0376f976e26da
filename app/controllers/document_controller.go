package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/tamyadav31/BOT-GPT/internal/services"
)

// DocumentController 文档控制器
type DocumentController struct {
	BaseController
	documentService *services.DocumentService
}

// NewDocumentController 创建文档控制器
func NewDocumentController(documentService *services.DocumentService) *DocumentController {
	return &DocumentController{documentService: documentService}
}

// Create 上传文档
func (c *DocumentController) Create() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}

	var req services.CreateDocumentRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := c.documentService.CreateDocument(c.Ctx.Request.Context(), userID, req)
	if err != nil {
		c.handleServiceError(err)
		return
	}

	c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    doc,
	})
}

// List 分页列出当前用户文档
func (c *DocumentController) List() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.GetString("page", "1"))
	pageSize, _ := strconv.Atoi(c.GetString("page_size", "20"))

	docs, total, err := c.documentService.ListDocuments(c.Ctx.Request.Context(), userID, page, pageSize)
	if err != nil {
		c.handleServiceError(err)
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"documents": docs,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// Get 获取文档详情
func (c *DocumentController) Get() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}

	docID, ok := c.mustParseUintParam(":id")
	if !ok {
		return
	}

	doc, err := c.documentService.GetDocument(c.Ctx.Request.Context(), userID, docID)
	if err != nil {
		c.handleServiceError(err)
		return
	}

	c.JSONSuccess(doc)
}

// CacheStats 分块缓存命中统计
func (c *DocumentController) CacheStats() {
	if _, ok := c.currentUserID(); !ok {
		return
	}

	hits, misses, hitRate := c.documentService.ChunkCacheStats()
	c.JSONSuccess(map[string]interface{}{
		"hits":     hits,
		"misses":   misses,
		"hit_rate": hitRate,
	})
}

// Delete 删除文档
func (c *DocumentController) Delete() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}

	docID, ok := c.mustParseUintParam(":id")
	if !ok {
		return
	}

	if err := c.documentService.DeleteDocument(c.Ctx.Request.Context(), userID, docID); err != nil {
		c.handleServiceError(err)
		return
	}

	c.JSONSuccess(map[string]interface{}{"deleted": docID})
}
