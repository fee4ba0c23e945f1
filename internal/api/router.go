package api

import (
	"net/http"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"

	"github.com/d60-Lab/chat-gateway/config"
	"github.com/d60-Lab/chat-gateway/internal/api/handler"
	"github.com/d60-Lab/chat-gateway/internal/api/middleware"
	"github.com/d60-Lab/chat-gateway/internal/metrics"
	"github.com/d60-Lab/chat-gateway/internal/repository"
	"github.com/d60-Lab/chat-gateway/internal/service"
	"github.com/d60-Lab/chat-gateway/internal/ws"
)

// Deps 路由装配所需的全部依赖。
type Deps struct {
	Hub     *ws.Hub
	Convs   repository.ConversationRepository
	ChatSvc *service.ChatService
	Handler *handler.Handler
}

// NewRouter 装配中间件、REST API 与 WebSocket 端点。
func NewRouter(cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog())
	r.Use(middleware.CORS(cfg.Env))
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(metrics.GinMiddleware())
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware("chat-gateway"))
	}
	if cfg.Sentry.DSN != "" {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	// 控制单个 IP+路由的请求速率
	r.Use(middleware.RateLimit(rate.Every(time.Second/20), 40))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiV1 := r.Group("/api/v1")
	apiV1.POST("/auth/register", deps.Handler.Register)
	apiV1.POST("/auth/login", deps.Handler.Login)
	apiV1.POST("/auth/refresh", deps.Handler.Refresh)

	authed := apiV1.Group("")
	authed.Use(middleware.Auth(cfg.JWT.Secret))
	authed.GET("/users/me", deps.Handler.Profile)
	authed.POST("/conversations", deps.Handler.CreateConversation)
	authed.GET("/conversations", deps.Handler.ListConversations)
	authed.GET("/conversations/:id", deps.Handler.GetConversation)
	authed.GET("/conversations/:id/messages", deps.Handler.ListMessages)

	r.GET("/ws/chat/:conversation_id", ws.Serve(deps.Hub, deps.Convs, deps.ChatSvc, cfg))

	return r
}
