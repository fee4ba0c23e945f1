package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/chat-gateway/internal/cache"
	"github.com/d60-Lab/chat-gateway/internal/model"
	"github.com/d60-Lab/chat-gateway/internal/repository"
	"github.com/d60-Lab/chat-gateway/pkg/logger"
)

// 读路径的来源标记。
const (
	SourceCache    = "cache"
	SourceDatabase = "database"
)

const historyLimit = 100

// HistoryService 会话历史读路径：缓存优先，未命中回退数据库并异步回填。
type HistoryService struct {
	convs    repository.ConversationRepository
	messages repository.MessageRepository
	cache    *cache.MessageCache
}

func NewHistoryService(convs repository.ConversationRepository, messages repository.MessageRepository, mc *cache.MessageCache) *HistoryService {
	return &HistoryService{convs: convs, messages: messages, cache: mc}
}

// GetMessages 返回会话消息（升序）与来源标记。
// 非成员与会话不存在统一返回 ErrConversationNotFound。
func (s *HistoryService) GetMessages(ctx context.Context, requesterID, conversationID uint) ([]model.MessageSnapshot, string, error) {
	ok, err := s.convs.IsParticipant(ctx, conversationID, requesterID)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", ErrConversationNotFound
	}

	snaps, err := s.cache.Recent(ctx, conversationID)
	if err != nil {
		// 缓存故障按未命中处理
		logger.Warn("cache read failed, falling back to database",
			zap.Uint("conversation_id", conversationID), zap.Error(err))
		snaps = nil
	}
	if len(snaps) > 0 {
		// 缓存按最新在前存储，反转为升序
		for i, j := 0, len(snaps)-1; i < j; i, j = i+1, j-1 {
			snaps[i], snaps[j] = snaps[j], snaps[i]
		}
		return snaps, SourceCache, nil
	}

	msgs, err := s.messages.ListRecent(ctx, conversationID, historyLimit)
	if err != nil {
		return nil, "", err
	}
	out := make([]model.MessageSnapshot, 0, len(msgs))
	for i := range msgs {
		out = append(out, msgs[i].Snapshot(msgs[i].Sender.Username))
	}

	if len(out) > 0 {
		// 异步回填，失败不影响已经算出的响应
		go s.backfill(conversationID, out)
	}
	return out, SourceDatabase, nil
}

func (s *HistoryService) backfill(conversationID uint, snaps []model.MessageSnapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.cache.Backfill(ctx, conversationID, snaps); err != nil {
		logger.Warn("cache backfill failed",
			zap.Uint("conversation_id", conversationID), zap.Error(err))
	}
}
