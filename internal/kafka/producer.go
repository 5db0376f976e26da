package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/tamyadav31/BOT-GPT/internal/logger"
	"go.uber.org/zap"
)

// Producer Kafka生产者
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

// 对话事件类型
const (
	EventMessageExchanged = "message_exchanged"
	EventDocumentIngested = "document_ingested"
)

// ConversationEvent 对话事件结构
type ConversationEvent struct {
	Event          string    `json:"event"`
	ConversationID uint      `json:"conversation_id,omitempty"`
	DocumentID     uint      `json:"document_id,omitempty"`
	UserID         uint      `json:"user_id"`
	Mode           string    `json:"mode,omitempty"`
	Role           string    `json:"role,omitempty"`
	Content        string    `json:"content,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

var globalProducer *Producer

// InitProducer 初始化Kafka生产者
func InitProducer(brokers []string, topic string) error {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Timeout = 10 * time.Second

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return fmt.Errorf("创建Kafka生产者失败: %w", err)
	}

	globalProducer = &Producer{
		producer: producer,
		topic:    topic,
	}

	logger.Info("Kafka生产者初始化成功", zap.Strings("brokers", brokers), zap.String("topic", topic))
	return nil
}

// GetProducer 获取全局生产者实例
func GetProducer() *Producer {
	return globalProducer
}

// SendEvent 发送事件到Kafka
func (p *Producer) SendEvent(event *ConversationEvent) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("Kafka生产者未初始化")
	}

	// 序列化事件
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}

	kafkaMsg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(fmt.Sprintf("%d-%d", event.UserID, event.ConversationID)),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("event"),
				Value: []byte(event.Event),
			},
			{
				Key:   []byte("user_id"),
				Value: []byte(fmt.Sprintf("%d", event.UserID)),
			},
		},
	}

	partition, offset, err := p.producer.SendMessage(kafkaMsg)
	if err != nil {
		logger.Error("发送Kafka事件失败", zap.Error(err))
		return fmt.Errorf("发送事件失败: %w", err)
	}

	logger.Debug("Kafka事件发送成功",
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
		zap.String("event", event.Event))

	return nil
}

// Close 关闭生产者
func (p *Producer) Close() error {
	if p != nil && p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// PublishMessageExchanged 发布消息交换事件（便捷方法）
// Kafka未配置时静默跳过，不影响主流程
func PublishMessageExchanged(conversationID, userID uint, mode, role, content string) error {
	producer := GetProducer()
	if producer == nil {
		return nil
	}

	return producer.SendEvent(&ConversationEvent{
		Event:          EventMessageExchanged,
		ConversationID: conversationID,
		UserID:         userID,
		Mode:           mode,
		Role:           role,
		Content:        content,
		Timestamp:      time.Now(),
	})
}

// PublishDocumentIngested 发布文档入库事件（便捷方法）
func PublishDocumentIngested(documentID, userID uint) error {
	producer := GetProducer()
	if producer == nil {
		return nil
	}

	return producer.SendEvent(&ConversationEvent{
		Event:      EventDocumentIngested,
		DocumentID: documentID,
		UserID:     userID,
		Timestamp:  time.Now(),
	})
}
