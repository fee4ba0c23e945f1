package service

import (
	"context"
	"time"

	"github.com/d60-Lab/chat-gateway/internal/model"
	"github.com/d60-Lab/chat-gateway/internal/repository"
)

// ConversationService 会话的创建与查询；成员校验失败与会话不存在
// 对外呈现同一个错误，避免泄露会话是否存在。
type ConversationService struct {
	convs repository.ConversationRepository
}

func NewConversationService(convs repository.ConversationRepository) *ConversationService {
	return &ConversationService{convs: convs}
}

type ConversationDTO struct {
	ID           uint      `json:"id"`
	Participants []UserDTO `json:"participants"`
	CreatedAt    time.Time `json:"created_at"`
}

func toConversationDTO(conv *model.Conversation) ConversationDTO {
	parts := make([]UserDTO, 0, len(conv.Participants))
	for i := range conv.Participants {
		parts = append(parts, toUserDTO(&conv.Participants[i]))
	}
	return ConversationDTO{ID: conv.ID, Participants: parts, CreatedAt: conv.CreatedAt}
}

// Create 创建会话，创建者总是成员之一。
func (s *ConversationService) Create(ctx context.Context, creatorID uint, participantIDs []uint) (*ConversationDTO, error) {
	ids := append([]uint{creatorID}, participantIDs...)
	conv, err := s.convs.Create(ctx, ids)
	if err != nil {
		return nil, err
	}
	dto := toConversationDTO(conv)
	return &dto, nil
}

func (s *ConversationService) List(ctx context.Context, userID uint) ([]ConversationDTO, error) {
	convs, err := s.convs.ListByUser(ctx, userID, 100)
	if err != nil {
		return nil, err
	}
	out := make([]ConversationDTO, 0, len(convs))
	for i := range convs {
		out = append(out, toConversationDTO(&convs[i]))
	}
	return out, nil
}

func (s *ConversationService) Get(ctx context.Context, userID, conversationID uint) (*ConversationDTO, error) {
	ok, err := s.convs.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConversationNotFound
	}
	conv, err := s.convs.GetWithParticipants(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	dto := toConversationDTO(conv)
	return &dto, nil
}
