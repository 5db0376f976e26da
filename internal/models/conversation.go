package models

import (
	"time"
)

// 对话模式
const (
	ModeOpen = "open" // 仅使用对话历史
	ModeRAG  = "rag"  // 对话历史 + 文档上下文
)

// IsValidMode 检查对话模式是否合法
func IsValidMode(mode string) bool {
	return mode == ModeOpen || mode == ModeRAG
}

// Conversation 对话表
type Conversation struct {
	ID        uint      `gorm:"primaryKey;column:id" json:"id"`
	UserID    uint      `gorm:"column:user_id;not null;index" json:"user_id"`
	Title     string    `gorm:"column:title;size:255;not null" json:"title"`
	Mode      string    `gorm:"column:mode;size:20;not null;default:open" json:"mode"`
	CreatedAt time.Time `gorm:"column:created_at;not null;index" json:"created_at"`

	Messages  []Message              `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
	Documents []ConversationDocument `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// Message 对话消息表，role 为 user / assistant / system
type Message struct {
	ID             uint      `gorm:"primaryKey;column:id" json:"id"`
	ConversationID uint      `gorm:"column:conversation_id;not null;index" json:"conversation_id"`
	Role           string    `gorm:"column:role;size:50;not null" json:"role"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	TokensUsed     *int      `gorm:"column:tokens_used" json:"tokens_used,omitempty"`
	CreatedAt      time.Time `gorm:"column:created_at;not null;index" json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}

// ConversationDocument 对话与文档的关联表
// 关联顺序即插入顺序（id 升序），检索上下文按此顺序拼接
type ConversationDocument struct {
	ID             uint `gorm:"primaryKey;column:id" json:"id"`
	ConversationID uint `gorm:"column:conversation_id;not null;index" json:"conversation_id"`
	DocumentID     uint `gorm:"column:document_id;not null;index" json:"document_id"`
}

func (ConversationDocument) TableName() string {
	return "conversation_documents"
}
