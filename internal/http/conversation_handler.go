package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"journey-circle/internal/domain"
	"journey-circle/internal/service"
)

// ConversationHandler mantiene dependencias para endpoints de conversaciones.
type ConversationHandler struct {
	logger           *zap.Logger
	conversationServ *service.ConversationService
}

// NewConversationHandler crea una instancia de ConversationHandler con dependencias necesarias.
func NewConversationHandler(logger *zap.Logger, conversationServ *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{
		logger:           logger,
		conversationServ: conversationServ,
	}
}

// CreateConversation maneja POST /api/conversations.
func (h *ConversationHandler) CreateConversation(c *gin.Context) {
	memberID, ok := GetAuthMemberID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	var req struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create conversation request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	conv, err := h.conversationServ.CreateConversation(c.Request.Context(), memberID, req.Title)
	if err != nil {
		h.logger.Error("create conversation failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"conversation": conv})
}

// PostMessage maneja POST /api/conversations/:id/messages.
func (h *ConversationHandler) PostMessage(c *gin.Context) {
	memberID, ok := GetAuthMemberID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	var req struct {
		Body string `json:"body" binding:"required"`
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid post message request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	msg, err := h.conversationServ.PostMessage(c.Request.Context(), c.Param("id"), memberID, req.Body, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConversationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		case errors.Is(err, service.ErrNotAMember):
			c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
		case errors.Is(err, service.ErrInvalidRole), errors.Is(err, service.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		default:
			h.logger.Error("post message failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// ListMessages maneja GET /api/conversations/:id/messages.
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	memberID, ok := GetAuthMemberID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	messages, err := h.conversationServ.ListMessages(c.Request.Context(), c.Param("id"), memberID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConversationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		case errors.Is(err, service.ErrNotAMember):
			c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
		default:
			h.logger.Error("list messages failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
		}
		return
	}
	if messages == nil {
		messages = []domain.Message{}
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
