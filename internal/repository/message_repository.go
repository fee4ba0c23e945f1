package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/chat-gateway/internal/model"
)

type MessageRepository interface {
	// Create 落库后由存储赋予自增 ID 与创建时间。
	Create(ctx context.Context, conversationID, senderID uint, content string) (*model.Message, error)
	// ListRecent 返回会话最近 limit 条消息，按时间升序。
	ListRecent(ctx context.Context, conversationID uint, limit int) ([]model.Message, error)
	CountByConversation(ctx context.Context, conversationID uint) (int64, error)
}

type messageRepository struct{ db *gorm.DB }

func NewMessageRepository(db *gorm.DB) MessageRepository { return &messageRepository{db: db} }

func (r *messageRepository) Create(ctx context.Context, conversationID, senderID uint, content string) (*model.Message, error) {
	msg := &model.Message{ConversationID: conversationID, SenderID: senderID, Content: content}
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *messageRepository) ListRecent(ctx context.Context, conversationID uint, limit int) ([]model.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	var msgs []model.Message
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("conversation_id = ?", conversationID).
		Order("id desc").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	// 取最近 limit 条后反转为升序
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *messageRepository) CountByConversation(ctx context.Context, conversationID uint) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("conversation_id = ?", conversationID).
		Count(&cnt).Error
	return cnt, err
}
