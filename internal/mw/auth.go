package mw

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"faculty-availability-backend/internal/auth"
)

// FacultyIDKey is the gin context key holding the authenticated faculty id.
const FacultyIDKey = "faculty_id"

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// RequireFaculty authenticates the request with an "Authorization: Bearer"
// token. A missing token is 401, an unusable one is 403.
func RequireFaculty(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Access token required"})
			return
		}

		claims, err := v.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(FacultyIDKey, claims.FacultyID)
		c.Next()
	}
}

// FacultyID returns the id set by RequireFaculty.
func FacultyID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(FacultyIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
