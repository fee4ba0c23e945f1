package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/chat-gateway/internal/api/middleware"
	"github.com/d60-Lab/chat-gateway/internal/metrics"
	"github.com/d60-Lab/chat-gateway/internal/service"
	"github.com/d60-Lab/chat-gateway/pkg/logger"
	"github.com/d60-Lab/chat-gateway/pkg/response"
)

// ListMessages 会话历史读路径：缓存优先，数据库回退，带来源标记
func (h *Handler) ListMessages(c *gin.Context) {
	convID, err := parseConversationID(c)
	if err != nil {
		response.BadRequest(c, "invalid conversation id")
		return
	}
	snaps, source, err := h.historySvc.GetMessages(c.Request.Context(), middleware.UserID(c), convID)
	if err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			response.NotFound(c, "conversation not found or unauthorized")
			return
		}
		logger.Error("list messages failed", zap.Uint("conversation_id", convID), zap.Error(err))
		response.InternalError(c, err)
		return
	}
	metrics.HistoryReads.WithLabelValues(source).Inc()
	response.Success(c, gin.H{
		"conversation_id": convID,
		"messages":        snaps,
		"source":          source,
	})
}
