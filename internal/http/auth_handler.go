package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"journey-circle/internal/service"
)

// AuthHandler mantiene dependencias para endpoints de miembros y sesiones.
type AuthHandler struct {
	logger      *zap.Logger
	memberServ  *service.MemberService
	sessionServ *service.SessionService
}

// NewAuthHandler crea una instancia de AuthHandler con dependencias necesarias.
func NewAuthHandler(logger *zap.Logger, memberServ *service.MemberService, sessionServ *service.SessionService) *AuthHandler {
	return &AuthHandler{
		logger:      logger,
		memberServ:  memberServ,
		sessionServ: sessionServ,
	}
}

// CreateMember maneja POST /api/members.
func (h *AuthHandler) CreateMember(c *gin.Context) {
	var req struct {
		Email       string `json:"email" binding:"required,email"`
		DisplayName string `json:"display_name"`
		Password    string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create member request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	member, err := h.memberServ.CreateMember(c.Request.Context(), service.CreateMemberInput{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "email taken"})
		case errors.Is(err, service.ErrInvalidEmail), errors.Is(err, service.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		default:
			h.logger.Error("create member failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"member": member})
}

// Login maneja POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	session, err := h.sessionServ.Authenticate(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		case errors.Is(err, service.ErrRateLimited):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
		default:
			h.logger.Error("login failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": session})
}

// Logout maneja POST /api/auth/logout; siempre responde 204.
func (h *AuthHandler) Logout(c *gin.Context) {
	token, ok := bearerToken(c)
	if ok {
		if err := h.sessionServ.Invalidate(c.Request.Context(), token); err != nil {
			h.logger.Warn("logout invalidate failed", zap.Error(err))
		}
	}
	c.Status(http.StatusNoContent)
}

// RotateCredential maneja POST /api/auth/credential.
func (h *AuthHandler) RotateCredential(c *gin.Context) {
	memberID, ok := GetAuthMemberID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid rotate credential request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.memberServ.RotateCredential(c.Request.Context(), memberID, req.Password); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		case errors.Is(err, service.ErrMemberNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "member not found"})
		default:
			h.logger.Error("rotate credential failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
		}
		return
	}

	c.Status(http.StatusNoContent)
}
