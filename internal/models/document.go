package models

import (
	"time"
)

// Document 文档表，上传后分块并建立向量索引用于RAG检索
type Document struct {
	ID        uint      `gorm:"primaryKey;column:id" json:"id"`
	UserID    uint      `gorm:"column:user_id;not null;index" json:"user_id"`
	Title     string    `gorm:"column:title;size:255;not null" json:"title"`
	Path      string    `gorm:"column:path;size:512" json:"path,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at;not null;index" json:"created_at"`

	Chunks []DocumentChunk `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Document) TableName() string {
	return "documents"
}

// DocumentChunk 文档分块表
// chunk_index 在文档内从0起连续递增，创建后不可变，随文档级联删除
type DocumentChunk struct {
	ID         uint   `gorm:"primaryKey;column:id" json:"id"`
	DocumentID uint   `gorm:"column:document_id;not null;index:idx_doc_chunk,priority:1" json:"document_id"`
	ChunkIndex int    `gorm:"column:chunk_index;not null;index:idx_doc_chunk,priority:2" json:"chunk_index"`
	Text       string `gorm:"type:text;not null" json:"text"`
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}
