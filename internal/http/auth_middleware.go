package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"journey-circle/internal/service"
)

const authMemberIDKey = "auth_member_id"

// SessionAuthMiddleware resuelve el token de sesion y guarda el miembro en el contexto.
func SessionAuthMiddleware(sessions *service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sessions == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "sessions not configured"})
			c.Abort()
			return
		}

		token, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}

		memberID, err := sessions.Resolve(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Set(authMemberIDKey, memberID)
		c.Next()
	}
}

// GetAuthMemberID obtiene el miembro autenticado desde el contexto.
func GetAuthMemberID(c *gin.Context) (string, bool) {
	val, ok := c.Get(authMemberIDKey)
	if !ok {
		return "", false
	}
	memberID, ok := val.(string)
	return memberID, ok
}

func bearerToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[len("Bearer "):])
	return token, token != ""
}
