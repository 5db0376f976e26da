package services

import (
	"context"
	stderrors "errors"

	"github.com/tamyadav31/BOT-GPT/internal/errors"
	"github.com/tamyadav31/BOT-GPT/internal/kafka"
	"github.com/tamyadav31/BOT-GPT/internal/logger"
	"github.com/tamyadav31/BOT-GPT/internal/models"
	"github.com/tamyadav31/BOT-GPT/internal/rag"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateDocumentRequest 文档上传请求
type CreateDocumentRequest struct {
	Title   string `json:"title" validate:"required,min=1,max=255"`
	Content string `json:"content" validate:"required"`
	Path    string `json:"path" validate:"omitempty,max=1024"`
}

// DocumentInfo 文档信息（含分块数）
type DocumentInfo struct {
	models.Document
	ChunkCount int64 `json:"chunk_count"`
}

// IndexManager 文档索引管理接口
type IndexManager interface {
	Build(ctx context.Context, documentID uint, chunks []string) error
	Delete(ctx context.Context, documentID uint) error
}

// DocumentService 文档服务
// 上传时分块入库并构建检索索引；索引构建失败只降级检索，不影响上传
type DocumentService struct {
	db           *gorm.DB
	index        IndexManager
	chunkStore   *ChunkStore
	chunkSize    int
	chunkOverlap int
}

// NewDocumentService 创建文档服务
func NewDocumentService(db *gorm.DB, index IndexManager, chunkStore *ChunkStore, chunkSize, chunkOverlap int) *DocumentService {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 50
	}
	return &DocumentService{
		db:           db,
		index:        index,
		chunkStore:   chunkStore,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// CreateDocument 上传文档：分块、入库、建索引
func (s *DocumentService) CreateDocument(ctx context.Context, userID uint, req CreateDocumentRequest) (*models.Document, error) {
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}

	chunks, err := rag.Chunk(req.Content, s.chunkSize, s.chunkOverlap)
	if err != nil {
		return nil, err
	}

	doc := &models.Document{
		UserID: userID,
		Title:  req.Title,
		Path:   req.Path,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(doc).Error; err != nil {
			return err
		}
		for i, text := range chunks {
			chunk := models.DocumentChunk{
				DocumentID: doc.ID,
				ChunkIndex: i,
				Text:       text,
			}
			if err := tx.Create(&chunk).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.NewSystemError(errors.ErrCodeDatabaseError, "failed to persist document").WithCause(err)
	}

	// 索引构建失败不回滚文档：检索降级为无上下文
	if err := s.index.Build(ctx, doc.ID, chunks); err != nil {
		logger.Error("Index build failed, document saved without retrieval index",
			zap.Uint("document_id", doc.ID), zap.Error(err))
	}

	if err := kafka.PublishDocumentIngested(doc.ID, userID); err != nil {
		logger.Warn("Failed to publish document event", zap.Error(err))
	}

	logger.Info("Document created",
		zap.Uint("document_id", doc.ID),
		zap.Uint("user_id", userID),
		zap.Int("chunks", len(chunks)))
	return doc, nil
}

// GetDocument 获取文档及分块数，校验归属
func (s *DocumentService) GetDocument(ctx context.Context, userID, documentID uint) (*DocumentInfo, error) {
	var doc models.Document
	err := s.db.WithContext(ctx).First(&doc, documentID).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewNotFoundError("document")
		}
		return nil, errors.NewSystemError(errors.ErrCodeDatabaseError, "failed to load document").WithCause(err)
	}
	if doc.UserID != userID {
		return nil, errors.NewAccessDeniedError()
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.DocumentChunk{}).
		Where("document_id = ?", documentID).Count(&count).Error; err != nil {
		return nil, errors.NewSystemError(errors.ErrCodeDatabaseError, "failed to count chunks").WithCause(err)
	}

	return &DocumentInfo{Document: doc, ChunkCount: count}, nil
}

// ListDocuments 分页列出用户文档，最新在前
func (s *DocumentService) ListDocuments(ctx context.Context, userID uint, page, pageSize int) ([]models.Document, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Document{}).
		Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, errors.NewSystemError(errors.ErrCodeDatabaseError, "failed to count documents").WithCause(err)
	}

	var docs []models.Document
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&docs).Error
	if err != nil {
		return nil, 0, errors.NewSystemError(errors.ErrCodeDatabaseError, "failed to list documents").WithCause(err)
	}

	return docs, total, nil
}

// DeleteDocument 删除文档：数据行级联删除，索引文件和缓存一并清理
func (s *DocumentService) DeleteDocument(ctx context.Context, userID, documentID uint) error {
	var doc models.Document
	err := s.db.WithContext(ctx).First(&doc, documentID).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.NewNotFoundError("document")
		}
		return errors.NewSystemError(errors.ErrCodeDatabaseError, "failed to load document").WithCause(err)
	}
	if doc.UserID != userID {
		return errors.NewAccessDeniedError()
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", documentID).Delete(&models.DocumentChunk{}).Error; err != nil {
			return err
		}
		if err := tx.Where("document_id = ?", documentID).Delete(&models.ConversationDocument{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Document{}, documentID).Error
	})
	if err != nil {
		return errors.NewSystemError(errors.ErrCodeDatabaseError, "failed to delete document").WithCause(err)
	}

	if err := s.index.Delete(ctx, documentID); err != nil {
		logger.Warn("Failed to delete document index", zap.Uint("document_id", documentID), zap.Error(err))
	}
	if s.chunkStore != nil {
		if err := s.chunkStore.DeleteDocumentChunks(ctx, documentID); err != nil {
			logger.Warn("Failed to clear chunk cache", zap.Uint("document_id", documentID), zap.Error(err))
		}
	}

	logger.Info("Document deleted", zap.Uint("document_id", documentID), zap.Uint("user_id", userID))
	return nil
}

// ChunkCacheStats 返回分块缓存命中统计
func (s *DocumentService) ChunkCacheStats() (hits, misses int64, hitRate float64) {
	if s.chunkStore == nil {
		return 0, 0, 0
	}
	return s.chunkStore.GetCacheStats()
}
