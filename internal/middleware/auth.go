package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AgentIDKey is the context key under which the authenticated agent id is
// stored.
const AgentIDKey = "agent_id"

// AgentAuth validates the bearer token issued by the identity service and
// resolves the calling agent. Tokens are only verified here, never issued.
func AgentAuth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			return
		}

		agentID, err := parseAgentToken(parts[1], jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(AgentIDKey, agentID)
		c.Next()
	}
}

// CronAuth guards the internal tick endpoint with the shared token carried
// by the periodic trigger.
func CronAuth(cronToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("X-Cron-Token")
		if cronToken == "" || token != cronToken {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid cron token"})
			return
		}
		c.Next()
	}
}

// AgentID returns the authenticated agent id set by AgentAuth.
func AgentID(c *gin.Context) (string, bool) {
	value, ok := c.Get(AgentIDKey)
	if !ok {
		return "", false
	}
	agentID, ok := value.(string)
	return agentID, ok
}

// parseAgentToken verifies the HMAC signature and extracts the agent id from
// the subject claim.
func parseAgentToken(tokenString, secret string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}

	subject, err := token.Claims.GetSubject()
	if err != nil {
		return "", err
	}

	if _, err := uuid.Parse(subject); err != nil {
		return "", errors.New("token subject is not an agent id")
	}

	return subject, nil
}
