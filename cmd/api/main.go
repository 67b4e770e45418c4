package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"journey-circle/internal/config"
	"journey-circle/internal/db"
	"journey-circle/internal/email"
	apihttp "journey-circle/internal/http"
	"journey-circle/internal/repository"
	"journey-circle/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	memberRepo := repository.NewPgMemberRepository(pool)
	relationshipRepo := repository.NewPgRelationshipRepository(pool)
	conversationRepo := repository.NewPgConversationRepository(pool)
	messageRepo := repository.NewPgMessageRepository(pool)

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	loginWindow := time.Duration(cfg.LoginRateWindowMinutes) * time.Minute
	inviteWindow := time.Duration(cfg.InviteRateWindowMinutes) * time.Minute
	loginLimiter := service.NewMemoryRateLimiter(loginWindow, cfg.LoginRateMax)
	inviteLimiter := service.NewMemoryRateLimiter(inviteWindow, cfg.InviteRateMax)
	sessionStore := service.NewMemorySessionStore()
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			loginLimiter = service.NewRedisRateLimiter(redisClient, loginWindow, cfg.LoginRateMax)
			inviteLimiter = service.NewRedisRateLimiter(redisClient, inviteWindow, cfg.InviteRateMax)
			sessionStore = service.NewRedisSessionStore(redisClient)
		}
		cancel()
	}

	sessionTTL := time.Duration(cfg.SessionTTLMinutes) * time.Minute
	memberSvc := service.NewMemberService(logger, memberRepo)
	sessionSvc := service.NewSessionService(logger, memberRepo, sessionStore, loginLimiter, sessionTTL)
	relationshipSvc := service.NewRelationshipService(logger, relationshipRepo, memberRepo, emailSender, inviteLimiter)
	conversationSvc := service.NewConversationService(logger, conversationRepo, messageRepo, relationshipSvc)

	authHandler := apihttp.NewAuthHandler(logger, memberSvc, sessionSvc)
	supporterHandler := apihttp.NewSupporterHandler(logger, relationshipSvc)
	conversationHandler := apihttp.NewConversationHandler(logger, conversationSvc)
	router := apihttp.NewRouter(logger, sessionSvc, authHandler, supporterHandler, conversationHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
