package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chatbot_server/server/common/transport/httpresp"
)

type tokenAuth interface {
	Enabled() bool
	ParseAuthContext(token string) (userID string, err error)
}

// AuthRequired rejects requests without a valid bearer token. It is a no-op
// when auth is disabled. WebSocket clients may pass the token as the
// access_token query parameter since browsers cannot set headers on upgrade.
func AuthRequired(auth tokenAuth) gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth == nil || !auth.Enabled() {
			c.Next()
			return
		}
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httpresp.NewErrorResponse(httpresp.ErrMissingBearerToken))
			return
		}
		userID, err := auth.ParseAuthContext(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httpresp.NewErrorResponse(httpresp.ErrInvalidToken))
			return
		}
		c.Set("auth_user_id", userID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if strings.HasPrefix(header, "Bearer ") {
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token != "" {
			return token, true
		}
	}
	token := strings.TrimSpace(c.Query("access_token"))
	if token == "" {
		return "", false
	}
	return token, true
}

// CORS allows any origin, matching the browser frontends that call the
// chatbot directly. Preflight requests are answered with an empty object.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatusJSON(http.StatusOK, gin.H{})
			return
		}
		c.Next()
	}
}
