package handler

import (
	"github.com/d60-Lab/chat-gateway/internal/service"
)

// Handler 聚合全部 REST handler，依赖注入 service 层。
type Handler struct {
	userSvc    *service.UserService
	convSvc    *service.ConversationService
	historySvc *service.HistoryService
}

func New(userSvc *service.UserService, convSvc *service.ConversationService, historySvc *service.HistoryService) *Handler {
	return &Handler{userSvc: userSvc, convSvc: convSvc, historySvc: historySvc}
}
