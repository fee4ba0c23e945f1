package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/chat-gateway/internal/api/middleware"
	"github.com/d60-Lab/chat-gateway/internal/service"
	"github.com/d60-Lab/chat-gateway/pkg/logger"
	"github.com/d60-Lab/chat-gateway/pkg/response"
)

type createConversationRequest struct {
	Participants []uint `json:"participants" binding:"required,min=1"`
}

// CreateConversation 创建会话，创建者自动加入成员
func (h *Handler) CreateConversation(c *gin.Context) {
	var req createConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid payload")
		return
	}
	conv, err := h.convSvc.Create(c.Request.Context(), middleware.UserID(c), req.Participants)
	if err != nil {
		logger.Error("create conversation failed", zap.Uint("creator_id", middleware.UserID(c)), zap.Error(err))
		response.InternalError(c, err)
		return
	}
	response.Created(c, conv)
}

// ListConversations 当前用户参与的会话列表
func (h *Handler) ListConversations(c *gin.Context) {
	convs, err := h.convSvc.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		logger.Error("list conversations failed", zap.Uint("user_id", middleware.UserID(c)), zap.Error(err))
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"conversations": convs})
}

// GetConversation 会话详情；非成员与不存在同样返回 404
func (h *Handler) GetConversation(c *gin.Context) {
	convID, err := parseConversationID(c)
	if err != nil {
		response.BadRequest(c, "invalid conversation id")
		return
	}
	conv, err := h.convSvc.Get(c.Request.Context(), middleware.UserID(c), convID)
	if err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			response.NotFound(c, "conversation not found or unauthorized")
			return
		}
		logger.Error("get conversation failed", zap.Uint("conversation_id", convID), zap.Error(err))
		response.InternalError(c, err)
		return
	}
	response.Success(c, conv)
}

func parseConversationID(c *gin.Context) (uint, error) {
	id64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id64 == 0 {
		return 0, strconv.ErrSyntax
	}
	return uint(id64), nil
}
