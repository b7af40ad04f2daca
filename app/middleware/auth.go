package middleware

import (
	"net/http"
	"strings"

	"floorsync/pkg/auth"
	"floorsync/pkg/logger"

	"github.com/gin-gonic/gin"
)

const claimsKey = "dashboard_claims"

// APIKeyAuth simple token authentication for worker stations and the sweep trigger
func APIKeyAuth(expectedAPIKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip authentication if API key is not configured
		if expectedAPIKey == "" {
			logger.DebugCtx(c.Request.Context(), "API key not configured, skipping auth")
			c.Next()
			return
		}

		if bearerToken(c) != expectedAPIKey {
			logger.WarnCtx(c.Request.Context(), "unauthorized request, invalid API key")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Next()
	}
}

// DashboardAuth verifies signed dashboard tokens. Browsers cannot set headers on a WebSocket
// handshake, so the token may also arrive as the access_token query parameter.
func DashboardAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		token := bearerToken(c)
		if token == "" {
			token = c.Query("access_token")
		}
		claims, err := auth.Verify(secret, token)
		if err != nil {
			logger.WarnCtx(c.Request.Context(), "rejected dashboard token: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// Claims returns the verified dashboard claims, nil when dashboard auth is disabled
func Claims(c *gin.Context) *auth.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

func bearerToken(c *gin.Context) string {
	return strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
}
