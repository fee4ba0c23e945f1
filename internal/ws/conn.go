package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/d60-Lab/chat-gateway/config"
	"github.com/d60-Lab/chat-gateway/internal/auth"
	"github.com/d60-Lab/chat-gateway/internal/metrics"
	"github.com/d60-Lab/chat-gateway/internal/repository"
	"github.com/d60-Lab/chat-gateway/internal/service"
	"github.com/d60-Lab/chat-gateway/pkg/logger"
)

// 区分拒绝原因的关闭码：未认证 4001，未授权（含会话不存在）4003。
const (
	CloseUnauthenticated = 4001
	CloseUnauthorized    = 4003
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 1 << 20
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client 一条已接纳的连接及其组订阅。
type Client struct {
	group    *Group
	conn     *websocket.Conn
	send     chan []byte
	session  service.Session
	teardown sync.Once
}

// Close 注销组订阅并关闭底层连接。可重复调用，也可用于
// 从未完成注册的客户端（组事件循环里按存在性跳过）。
func (c *Client) Close() {
	c.teardown.Do(func() {
		c.group.unregister <- c
		_ = c.conn.Close()
	})
}

// Serve 网关入口：升级连接 → 认证 → 鉴权 → 注册组订阅 → 启动读写泵。
// 认证与鉴权失败走独立关闭码自行关闭，不分配任何组资源。
func Serve(hub *Hub, convs repository.ConversationRepository, chat *service.ChatService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		convID64, err := strconv.ParseUint(c.Param("conversation_id"), 10, 64)
		if err != nil || convID64 == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
			return
		}
		conversationID := uint(convID64)

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		claims, err := identify(c, cfg.JWT.Secret)
		if err != nil {
			logger.Warn("unauthenticated websocket attempt",
				zap.Uint("conversation_id", conversationID))
			closeWith(conn, CloseUnauthenticated, "authentication required")
			return
		}

		ok, err := convs.IsParticipant(c.Request.Context(), conversationID, claims.UserID)
		if err != nil || !ok {
			if err != nil {
				logger.Error("authorization check failed",
					zap.Uint("user_id", claims.UserID),
					zap.Uint("conversation_id", conversationID),
					zap.Error(err))
			} else {
				logger.Warn("unauthorized websocket attempt",
					zap.Uint("user_id", claims.UserID),
					zap.Uint("conversation_id", conversationID))
			}
			closeWith(conn, CloseUnauthorized, "not a participant")
			return
		}

		client := &Client{
			group: hub.Get(conversationID),
			conn:  conn,
			send:  make(chan []byte, 256),
			session: service.Session{
				UserID:         claims.UserID,
				Username:       claims.Username,
				ConversationID: conversationID,
			},
		}
		client.group.register <- client
		logger.Info("websocket connected",
			zap.Uint("user_id", claims.UserID),
			zap.Uint("conversation_id", conversationID))

		go client.writePump()
		client.readPump(chat)
	}
}

// identify 从 token 查询参数或 Authorization 头解析访问令牌。
func identify(c *gin.Context, secret string) (*auth.Claims, error) {
	token := c.Query("token")
	if token == "" {
		authz := c.GetHeader("Authorization")
		if len(authz) > 7 && (authz[:7] == "Bearer " || authz[:7] == "bearer ") {
			token = authz[7:]
		}
	}
	if token == "" {
		return nil, errors.New("missing token")
	}
	return auth.ParseToken(token, auth.TokenTypeAccess, secret)
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = conn.Close()
}

func (c *Client) readPump(chat *service.ChatService) {
	defer c.Close()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if err := chat.Ingest(context.Background(), c.session, data); err != nil {
			c.reportError(err)
			continue
		}
		metrics.WsMessagesTotal.Inc()
	}
}

// reportError 把管线错误转成面向用户的短错误帧，会话保持打开。
func (c *Client) reportError(err error) {
	var msg string
	switch {
	case errors.Is(err, service.ErrThrottled):
		metrics.ThrottledTotal.Inc()
		msg = "You are sending messages too fast. Please wait a moment."
	case errors.Is(err, service.ErrEmptyContent):
		msg = "Message content cannot be empty."
	case errors.Is(err, service.ErrInvalidFormat):
		msg = "Invalid message format."
	default:
		msg = "Failed to process message."
	}
	payload, _ := json.Marshal(gin.H{"error": msg})
	select {
	case c.send <- payload:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
