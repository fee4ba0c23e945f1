package handler

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/chat-gateway/internal/api/middleware"
	"github.com/d60-Lab/chat-gateway/internal/service"
	"github.com/d60-Lab/chat-gateway/pkg/logger"
	"github.com/d60-Lab/chat-gateway/pkg/response"
)

type registerRequest struct {
	Username  string `json:"username" binding:"required,min=2,max=64"`
	Email     string `json:"email" binding:"omitempty,email"`
	FirstName string `json:"first_name" binding:"required,max=64"`
	LastName  string `json:"last_name" binding:"required,max=64"`
	Password  string `json:"password" binding:"required,min=4,max=128"`
}

// Register 用户注册
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid payload")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		response.BadRequest(c, "invalid payload")
		return
	}
	user, err := h.userSvc.Register(c.Request.Context(), req.Username, req.Email, req.FirstName, req.LastName, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUsernameTaken) {
			response.Conflict(c, "username taken")
			return
		}
		logger.Error("register failed", zap.String("username", req.Username), zap.Error(err))
		response.InternalError(c, err)
		return
	}
	response.Created(c, user)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 用户登录，签发访问/刷新令牌
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid payload")
		return
	}
	user, tokens, err := h.userSvc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Unauthorized(c, "invalid credentials")
			return
		}
		logger.Error("login failed", zap.String("username", req.Username), zap.Error(err))
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"user":          user,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh 刷新令牌对
func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid payload")
		return
	}
	tokens, err := h.userSvc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.Unauthorized(c, "invalid refresh token")
		return
	}
	response.Success(c, tokens)
}

// Profile 当前登录用户信息
func (h *Handler) Profile(c *gin.Context) {
	user, err := h.userSvc.Profile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.Unauthorized(c, "user not found")
		return
	}
	response.Success(c, user)
}
