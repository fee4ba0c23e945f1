package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/d60-Lab/chat-gateway/internal/cache"
	"github.com/d60-Lab/chat-gateway/internal/repository"
	"github.com/d60-Lab/chat-gateway/pkg/logger"
)

// Broadcaster 把一条消息事件投递给某会话组的全部在线订阅者。
type Broadcaster interface {
	Publish(conversationID uint, payload []byte)
}

// Session 一条活跃连接的身份绑定，仅存在于内存。
type Session struct {
	UserID         uint
	Username       string
	ConversationID uint
}

// inboundPayload 入站帧的结构：{"message": "..."}。
type inboundPayload struct {
	Message string `json:"message"`
}

// MessageEvent 出站广播帧。
type MessageEvent struct {
	MessageID uint      `json:"message_id"`
	Message   string    `json:"message"`
	SenderID  uint      `json:"sender_id"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatService 消息摄取管线：解析 → 校验 → 限流 → 落库 → 镜像缓存 → 广播。
// 落库是持久性边界：落库失败则整条消息失败；缓存镜像失败只记日志，
// 广播在落库成功后无条件执行。
type ChatService struct {
	messages repository.MessageRepository
	cache    *cache.MessageCache
	throttle *cache.Throttle
	fanout   Broadcaster
}

func NewChatService(messages repository.MessageRepository, mc *cache.MessageCache, th *cache.Throttle, fanout Broadcaster) *ChatService {
	return &ChatService{messages: messages, cache: mc, throttle: th, fanout: fanout}
}

// Ingest 处理一条入站帧。返回的错误属于 errors.go 中的分类，
// 调用方据此回报发送者；任何错误都不要求关闭会话。
func (s *ChatService) Ingest(ctx context.Context, sess Session, raw []byte) error {
	var in inboundPayload
	if err := json.Unmarshal(raw, &in); err != nil {
		return ErrInvalidFormat
	}
	content := strings.TrimSpace(in.Message)
	if content == "" {
		return ErrEmptyContent
	}

	allowed, err := s.throttle.Allow(ctx, sess.UserID, sess.ConversationID)
	if err != nil {
		// 限流存储故障时放行：缓存故障只能降级，不能阻断消息投递
		logger.Warn("throttle check failed, allowing message",
			zap.Uint("sender_id", sess.UserID),
			zap.Uint("conversation_id", sess.ConversationID),
			zap.Error(err))
		allowed = true
	}
	if !allowed {
		return ErrThrottled
	}

	msg, err := s.messages.Create(ctx, sess.ConversationID, sess.UserID, content)
	if err != nil {
		logger.Error("persist message failed",
			zap.Uint("sender_id", sess.UserID),
			zap.Uint("conversation_id", sess.ConversationID),
			zap.Error(err))
		sentry.CaptureException(err)
		return err
	}

	snap := msg.Snapshot(sess.Username)
	if err := s.cache.PushFront(ctx, sess.ConversationID, snap); err != nil {
		// 消息已持久化，缓存镜像失败不影响投递
		logger.Warn("cache mirror failed",
			zap.Uint("conversation_id", sess.ConversationID),
			zap.Uint("message_id", msg.ID),
			zap.Error(err))
	}

	event := MessageEvent{
		MessageID: msg.ID,
		Message:   msg.Content,
		SenderID:  sess.UserID,
		Sender:    sess.Username,
		Timestamp: msg.CreatedAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	s.fanout.Publish(sess.ConversationID, payload)
	return nil
}
