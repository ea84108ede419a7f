package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"outpass/internal/auth"
)

// Context keys set by RequireRole for downstream handlers
const (
	CallerIDKey   = "caller_id"
	CallerRoleKey = "caller_role"
)

// RequireRole validates the bearer login token and restricts the route to
// callers holding the given role. The verified identity is trusted by the
// core; no further authentication happens downstream.
func RequireRole(signingKey, issuer string, role auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Access token required",
				"code":  "UNAUTHORIZED",
			})
			c.Abort()
			return
		}

		claims, err := auth.ParseLoginToken(token, signingKey, issuer)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
				"code":  "UNAUTHORIZED",
			})
			c.Abort()
			return
		}

		if claims.Role != string(role) {
			c.JSON(http.StatusForbidden, gin.H{
				"error": string(role) + " access required",
				"code":  "FORBIDDEN",
			})
			c.Abort()
			return
		}

		c.Set(CallerIDKey, claims.Subject)
		c.Set(CallerRoleKey, claims.Role)
		c.Next()
	}
}
