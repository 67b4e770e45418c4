package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"journey-circle/internal/service"
)

// SupporterHandler mantiene dependencias para endpoints de vinculos de apoyo.
type SupporterHandler struct {
	logger           *zap.Logger
	relationshipServ *service.RelationshipService
}

// NewSupporterHandler crea una instancia de SupporterHandler con dependencias necesarias.
func NewSupporterHandler(logger *zap.Logger, relationshipServ *service.RelationshipService) *SupporterHandler {
	return &SupporterHandler{
		logger:           logger,
		relationshipServ: relationshipServ,
	}
}

// Invite maneja POST /api/supporters/invite.
func (h *SupporterHandler) Invite(c *gin.Context) {
	memberID, ok := GetAuthMemberID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	var req struct {
		Contact string `json:"contact" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid invite request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	rel, err := h.relationshipServ.Invite(c.Request.Context(), memberID, req.Contact)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateInvitation):
			c.JSON(http.StatusConflict, gin.H{"error": "already invited"})
		case errors.Is(err, service.ErrRateLimited):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
		case errors.Is(err, service.ErrInvalidEmail), errors.Is(err, service.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		default:
			h.logger.Error("invite failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"relationship": rel})
}

// Accept maneja POST /api/supporters/:id/accept.
func (h *SupporterHandler) Accept(c *gin.Context) {
	memberID, ok := GetAuthMemberID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	rel, err := h.relationshipServ.Accept(c.Request.Context(), c.Param("id"), memberID)
	if err != nil {
		h.writeTransitionError(c, err, "accept failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"relationship": rel})
}

// Revoke maneja POST /api/supporters/:id/revoke.
func (h *SupporterHandler) Revoke(c *gin.Context) {
	memberID, ok := GetAuthMemberID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	rel, err := h.relationshipServ.Revoke(c.Request.Context(), c.Param("id"), memberID)
	if err != nil {
		h.writeTransitionError(c, err, "revoke failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"relationship": rel})
}

// ListSupporters maneja GET /api/supporters.
func (h *SupporterHandler) ListSupporters(c *gin.Context) {
	memberID, ok := GetAuthMemberID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	ids, err := h.relationshipServ.ListSupporterIDs(c.Request.Context(), memberID)
	if err != nil {
		h.logger.Error("list supporters failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
		return
	}
	if ids == nil {
		ids = []string{}
	}

	c.JSON(http.StatusOK, gin.H{"supporter_ids": ids})
}

func (h *SupporterHandler) writeTransitionError(c *gin.Context, err error, logMsg string) {
	switch {
	case errors.Is(err, service.ErrRelationshipNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "relationship not found"})
	case errors.Is(err, service.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized"})
	case errors.Is(err, service.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": "invalid state"})
	default:
		h.logger.Error(logMsg, zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
	}
}
