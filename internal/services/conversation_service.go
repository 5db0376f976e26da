package services

import (
	"context"
	stderrors "errors"

	"github.com/tamyadav31/BOT-GPT/internal/errors"
	"github.com/tamyadav31/BOT-GPT/internal/kafka"
	"github.com/tamyadav31/BOT-GPT/internal/llm"
	"github.com/tamyadav31/BOT-GPT/internal/logger"
	"github.com/tamyadav31/BOT-GPT/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateConversationRequest 创建对话请求
type CreateConversationRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=255"`
	Mode        string `json:"mode" validate:"required,oneof=open rag"`
	Message     string `json:"message" validate:"required"`
	DocumentIDs []uint `json:"document_ids" validate:"omitempty,dive,gt=0"`
}

// AddMessageRequest 追加消息请求
type AddMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

// ConversationTurn 一轮完整交互的结果
type ConversationTurn struct {
	Conversation *models.Conversation `json:"conversation"`
	UserMessage  *models.Message      `json:"user_message"`
	Reply        *models.Message      `json:"reply"`
}

// Assembler 上下文装配接口
type Assembler interface {
	Assemble(ctx context.Context, conversationID uint, mode, newMessage string, history []models.Message, maxHistory int) ([]llm.Entry, error)
}

// ConversationService 对话编排服务
// 一轮交互 = 持久化用户消息、装配上下文、调用补全引擎、持久化助手回复，
// 整体在同一个事务内：补全失败时用户消息一并回滚
type ConversationService struct {
	db         *gorm.DB
	assembler  Assembler
	completer  llm.Client
	maxHistory int
}

// NewConversationService 创建对话编排服务
func NewConversationService(db *gorm.DB, assembler Assembler, completer llm.Client, maxHistory int) *ConversationService {
	if maxHistory <= 0 {
		maxHistory = 10
	}
	return &ConversationService{
		db:         db,
		assembler:  assembler,
		completer:  completer,
		maxHistory: maxHistory,
	}
}

// CreateConversation 创建对话并完成首轮交互
func (s *ConversationService) CreateConversation(ctx context.Context, userID uint, req CreateConversationRequest) (*ConversationTurn, error) {
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}

	// 校验关联文档存在且归属当前用户
	for _, docID := range req.DocumentIDs {
		var doc models.Document
		err := s.db.WithContext(ctx).First(&doc, docID).Error
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errors.NewNotFoundError("document")
			}
			return nil, errors.NewSystemError(errors.ErrCodeDatabaseError, "failed to load document").WithCause(err)
		}
		if doc.UserID != userID {
			return nil, errors.NewAccessDeniedError()
		}
	}

	conv := &models.Conversation{
		UserID: userID,
		Title:  req.Title,
		Mode:   req.Mode,
	}

	var userMsg, reply *models.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return errors.NewSystemError(errors.ErrCodeDatabaseError, "failed to create conversation").WithCause(err)
		}
		for _, docID := range req.DocumentIDs {
			assoc := models.ConversationDocument{
				ConversationID: conv.ID,
				DocumentID:     docID,
			}
			if err := tx.Create(&assoc).Error; err != nil {
				return errors.NewSystemError(errors.ErrCodeDatabaseError, "failed to associate document").WithCause(err)
			}
		}

		var err error
		userMsg, reply, err = s.runTurn(ctx, tx, conv, nil, req.Message)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publishTurn(conv, reply)
	logger.Info("Conversation created",
		zap.Uint("conversation_id", conv.ID),
		zap.Uint("user_id", userID),
		zap.String("mode", conv.Mode))

	return &ConversationTurn{Conversation: conv, UserMessage: userMsg, Reply: reply}, nil
}

// AddMessage 在已有对话上追加一轮交互
func (s *ConversationService) AddMessage(ctx context.Context, userID, conversationID uint, req AddMessageRequest) (*ConversationTurn, error) {
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}

	conv, err := s.loadOwned(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	var history []models.Message
	err = s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id asc").
		Find(&history).Error
	if err != nil {
		return nil, errors.NewSystemError(errors.ErrCodeDatabaseError, "failed to load history").WithCause(err)
	}

	var userMsg, reply *models.Message
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		userMsg, reply, err = s.runTurn(ctx, tx, conv, history, req.Content)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publishTurn(conv, reply)
	return &ConversationTurn{Conversation: conv, UserMessage: userMsg, Reply: reply}, nil
}

// runTurn 执行一轮交互，调用方负责事务边界
func (s *ConversationService) runTurn(ctx context.Context, tx *gorm.DB, conv *models.Conversation, history []models.Message, content string) (*models.Message, *models.Message, error) {
	userMsg := &models.Message{
		ConversationID: conv.ID,
		Role:           llm.RoleUser,
		Content:        content,
	}
	if err := tx.Create(userMsg).Error; err != nil {
		return nil, nil, errors.NewSystemError(errors.ErrCodeDatabaseError, "failed to persist message").WithCause(err)
	}

	entries, err := s.assembler.Assemble(ctx, conv.ID, conv.Mode, content, history, s.maxHistory)
	if err != nil {
		return nil, nil, err
	}

	replyText, err := s.completer.Complete(ctx, entries)
	if err != nil {
		// 事务回滚，用户消息不落库
		return nil, nil, err
	}

	reply := &models.Message{
		ConversationID: conv.ID,
		Role:           llm.RoleAssistant,
		Content:        replyText,
	}
	if err := tx.Create(reply).Error; err != nil {
		return nil, nil, errors.NewSystemError(errors.ErrCodeDatabaseError, "failed to persist reply").WithCause(err)
	}

	return userMsg, reply, nil
}

// publishTurn 事务提交后异步发布对话事件，失败只记录日志
func (s *ConversationService) publishTurn(conv *models.Conversation, reply *models.Message) {
	if reply == nil {
		return
	}
	go func() {
		if err := kafka.PublishMessageExchanged(conv.ID, conv.UserID, conv.Mode, reply.Role, reply.Content); err != nil {
			logger.Warn("Failed to publish conversation event",
				zap.Uint("conversation_id", conv.ID), zap.Error(err))
		}
	}()
}

// GetConversation 按ID获取对话，校验归属
func (s *ConversationService) GetConversation(ctx context.Context, userID, conversationID uint) (*models.Conversation, error) {
	return s.loadOwned(ctx, userID, conversationID)
}

// ListConversations 分页列出用户对话，最新在前
func (s *ConversationService) ListConversations(ctx context.Context, userID uint, page, pageSize int) ([]models.Conversation, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, errors.NewSystemError(errors.ErrCodeDatabaseError, "failed to count conversations").WithCause(err)
	}

	var convs []models.Conversation
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&convs).Error
	if err != nil {
		return nil, 0, errors.NewSystemError(errors.ErrCodeDatabaseError, "failed to list conversations").WithCause(err)
	}

	return convs, total, nil
}

// GetMessages 按时间正序返回对话的全部消息
func (s *ConversationService) GetMessages(ctx context.Context, userID, conversationID uint) ([]models.Message, error) {
	if _, err := s.loadOwned(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	var messages []models.Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id asc").
		Find(&messages).Error
	if err != nil {
		return nil, errors.NewSystemError(errors.ErrCodeDatabaseError, "failed to load messages").WithCause(err)
	}

	return messages, nil
}

// DeleteConversation 删除对话及其消息和文档关联
func (s *ConversationService) DeleteConversation(ctx context.Context, userID, conversationID uint) error {
	if _, err := s.loadOwned(ctx, userID, conversationID); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", conversationID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", conversationID).Delete(&models.ConversationDocument{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Conversation{}, conversationID).Error
	})
	if err != nil {
		return errors.NewSystemError(errors.ErrCodeDatabaseError, "failed to delete conversation").WithCause(err)
	}

	logger.Info("Conversation deleted", zap.Uint("conversation_id", conversationID), zap.Uint("user_id", userID))
	return nil
}

// loadOwned 加载对话并校验归属
func (s *ConversationService) loadOwned(ctx context.Context, userID, conversationID uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.WithContext(ctx).First(&conv, conversationID).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewNotFoundError("conversation")
		}
		return nil, errors.NewSystemError(errors.ErrCodeDatabaseError, "failed to load conversation").WithCause(err)
	}
	if conv.UserID != userID {
		return nil, errors.NewAccessDeniedError()
	}
	return &conv, nil
}
