package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"journey-circle/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas base.
func NewRouter(
	logger *zap.Logger,
	sessionServ *service.SessionService,
	authH *AuthHandler,
	supporterH *SupporterHandler,
	conversationH *ConversationHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	api := r.Group("/api")

	api.POST("/members", authH.CreateMember)
	api.POST("/auth/login", authH.Login)
	api.POST("/auth/logout", authH.Logout)

	protected := api.Group("")
	protected.Use(SessionAuthMiddleware(sessionServ))

	protected.POST("/auth/credential", authH.RotateCredential)

	protected.GET("/supporters", supporterH.ListSupporters)
	protected.POST("/supporters/invite", supporterH.Invite)
	protected.POST("/supporters/:id/accept", supporterH.Accept)
	protected.POST("/supporters/:id/revoke", supporterH.Revoke)

	protected.POST("/conversations", conversationH.CreateConversation)
	protected.GET("/conversations/:id/messages", conversationH.ListMessages)
	protected.POST("/conversations/:id/messages", conversationH.PostMessage)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
