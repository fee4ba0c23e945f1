package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/chat-gateway/internal/model"
)

type ConversationRepository interface {
	Create(ctx context.Context, participantIDs []uint) (*model.Conversation, error)
	GetWithParticipants(ctx context.Context, id uint) (*model.Conversation, error)
	ListByUser(ctx context.Context, userID uint, limit int) ([]model.Conversation, error)
	// IsParticipant 会话不存在时同样返回 false，调用方不区分两种情况。
	IsParticipant(ctx context.Context, conversationID, userID uint) (bool, error)
}

type conversationRepository struct{ db *gorm.DB }

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) Create(ctx context.Context, participantIDs []uint) (*model.Conversation, error) {
	// 去重，成员关系要求唯一
	seen := make(map[uint]struct{}, len(participantIDs))
	ids := make([]uint, 0, len(participantIDs))
	for _, id := range participantIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	var conv model.Conversation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&conv).Error; err != nil {
			return err
		}
		var users []model.User
		if err := tx.Where("id IN ?", ids).Find(&users).Error; err != nil {
			return err
		}
		return tx.Model(&conv).Association("Participants").Append(&users)
	})
	if err != nil {
		return nil, err
	}
	return r.GetWithParticipants(ctx, conv.ID)
}

func (r *conversationRepository) GetWithParticipants(ctx context.Context, id uint) (*model.Conversation, error) {
	var conv model.Conversation
	if err := r.db.WithContext(ctx).Preload("Participants").First(&conv, id).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]model.Conversation, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	var convs []model.Conversation
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Joins("JOIN conversation_participants cp ON cp.conversation_id = conversations.id").
		Where("cp.user_id = ?", userID).
		Order("conversations.id desc").
		Limit(limit).
		Find(&convs).Error
	return convs, err
}

func (r *conversationRepository) IsParticipant(ctx context.Context, conversationID, userID uint) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Table("conversation_participants").
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&cnt).Error
	if err != nil {
		return false, err
	}
	return cnt > 0, nil
}
