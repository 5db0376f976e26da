package services

import (
	"context"
	"strings"

	"github.com/tamyadav31/BOT-GPT/internal/llm"
	"github.com/tamyadav31/BOT-GPT/internal/logger"
	"github.com/tamyadav31/BOT-GPT/internal/models"
	"github.com/tamyadav31/BOT-GPT/internal/rag"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 系统提示词
const (
	baseSystemPrompt = "You are a helpful assistant."
	ragSystemClause  = " Use the provided document context to answer questions when relevant."
)

// Retriever 文档索引检索接口
type Retriever interface {
	Query(ctx context.Context, documentID uint, queryText string, k int) ([]rag.Match, error)
}

// ChunkTextLoader 分块文本读取接口
type ChunkTextLoader interface {
	GetChunkText(ctx context.Context, documentID uint, chunkIndex int) (string, error)
}

// ContextAssembler 对话上下文装配服务
// 按固定顺序生成补全引擎的输入：系统提示、文档上下文（仅rag模式）、
// 截断后的历史消息、最后是新的用户消息
type ContextAssembler struct {
	db     *gorm.DB
	index  Retriever
	chunks ChunkTextLoader
	topK   int
}

// NewContextAssembler 创建上下文装配服务
func NewContextAssembler(db *gorm.DB, index Retriever, chunks ChunkTextLoader, topK int) *ContextAssembler {
	if topK <= 0 {
		topK = 3
	}
	return &ContextAssembler{
		db:     db,
		index:  index,
		chunks: chunks,
		topK:   topK,
	}
}

// Assemble 装配一次补全调用的完整消息序列
func (a *ContextAssembler) Assemble(ctx context.Context, conversationID uint, mode, newMessage string, history []models.Message, maxHistory int) ([]llm.Entry, error) {
	entries := make([]llm.Entry, 0, len(history)+3)

	systemPrompt := baseSystemPrompt
	if mode == models.ModeRAG {
		systemPrompt += ragSystemClause
	}
	entries = append(entries, llm.Entry{Role: llm.RoleSystem, Content: systemPrompt})

	if mode == models.ModeRAG {
		if docContext := a.buildDocumentContext(ctx, conversationID, newMessage); docContext != "" {
			entries = append(entries, llm.Entry{
				Role:    llm.RoleSystem,
				Content: "Document Context:\n" + docContext,
			})
		}
	}

	// 只保留最近maxHistory条历史，时间正序
	if maxHistory > 0 && len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	for _, msg := range history {
		entries = append(entries, llm.Entry{Role: msg.Role, Content: msg.Content})
	}

	entries = append(entries, llm.Entry{Role: llm.RoleUser, Content: newMessage})
	return entries, nil
}

// buildDocumentContext 按关联顺序检索各文档的相关分块并拼接
// 单个文档的检索失败只记录日志，不中断装配
func (a *ContextAssembler) buildDocumentContext(ctx context.Context, conversationID uint, query string) string {
	var associations []models.ConversationDocument
	err := a.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id asc").
		Find(&associations).Error
	if err != nil {
		logger.Error("Failed to load conversation documents",
			zap.Uint("conversation_id", conversationID), zap.Error(err))
		return ""
	}

	var parts []string
	for _, assoc := range associations {
		matches, err := a.index.Query(ctx, assoc.DocumentID, query, a.topK)
		if err != nil {
			logger.Warn("Document retrieval failed, skipping document",
				zap.Uint("document_id", assoc.DocumentID), zap.Error(err))
			continue
		}

		// 距离升序即相关性降序
		for _, m := range matches {
			text, err := a.chunks.GetChunkText(ctx, assoc.DocumentID, m.ChunkIndex)
			if err != nil {
				logger.Warn("Failed to load chunk text, skipping chunk",
					zap.Uint("document_id", assoc.DocumentID),
					zap.Int("chunk_index", m.ChunkIndex), zap.Error(err))
				continue
			}
			if text != "" {
				parts = append(parts, text)
			}
		}
	}

	return strings.Join(parts, "\n\n")
}
