package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/d60-Lab/chat-gateway/config"
	"github.com/d60-Lab/chat-gateway/internal/api"
	"github.com/d60-Lab/chat-gateway/internal/api/handler"
	"github.com/d60-Lab/chat-gateway/internal/cache"
	"github.com/d60-Lab/chat-gateway/internal/repository"
	"github.com/d60-Lab/chat-gateway/internal/service"
	"github.com/d60-Lab/chat-gateway/internal/ws"
	"github.com/d60-Lab/chat-gateway/pkg/database"
	"github.com/d60-Lab/chat-gateway/pkg/logger"
	"github.com/d60-Lab/chat-gateway/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Env); err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN, Environment: cfg.Env}); err != nil {
			logger.Fatal("sentry init", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	if cfg.Tracing.Enabled {
		shutdown, err := tracing.Init(ctx, "chat-gateway", cfg.Tracing.Endpoint)
		if err != nil {
			logger.Fatal("tracing init", zap.Error(err))
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(sctx)
		}()
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	rdb, err := cache.InitRedis(cfg)
	if err != nil {
		logger.Fatal("redis connect", zap.Error(err))
	}

	userRepo := repository.NewUserRepository(db)
	convRepo := repository.NewConversationRepository(db)
	msgRepo := repository.NewMessageRepository(db)

	msgCache := cache.NewMessageCache(rdb, cfg.Chat.CacheTTL, cfg.Chat.CacheLimit, cfg.Chat.CacheTimeout)
	throttle := cache.NewThrottle(rdb, cfg.Chat.ThrottleWindow, cfg.Chat.CacheTimeout)

	hub := ws.NewHub()
	chatSvc := service.NewChatService(msgRepo, msgCache, throttle, hub)
	userSvc := service.NewUserService(userRepo, cfg)
	convSvc := service.NewConversationService(convRepo)
	historySvc := service.NewHistoryService(convRepo, msgRepo, msgCache)

	h := handler.New(userSvc, convSvc, historySvc)
	router := api.NewRouter(cfg, api.Deps{Hub: hub, Convs: convRepo, ChatSvc: chatSvc, Handler: h})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server run", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if err := rdb.Close(); err != nil {
		logger.Error("redis close", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
