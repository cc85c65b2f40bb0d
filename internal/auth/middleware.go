package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const CtxClaimsKey = "auth_claims"

// IsGuest reports whether the request came through a guest link
// (?guest=true). Guest mode is a pure read-only view.
func IsGuest(c *gin.Context) bool {
	return strings.EqualFold(c.Query("guest"), "true")
}

// GuestGuard rejects mutating calls made in guest mode before credentials
// are even consulted, mirroring the disabled affordances in the UI.
func GuestGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsGuest(c) {
			c.JSON(http.StatusForbidden, gin.H{"error": "guest mode is read-only"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireOwner validates the bearer token. When repo is non-nil the claimed
// token_version must match the stored one, so password changes and logout
// invalidate outstanding tokens.
func RequireOwner(tokens TokenService, repo *Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" || !strings.HasPrefix(strings.ToLower(h), "bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			c.Abort()
			return
		}

		raw := strings.TrimSpace(h[len("Bearer "):])
		claims, err := tokens.Parse(raw)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		if repo != nil {
			currentVersion, err := repo.GetTokenVersion(c.Request.Context(), claims.OwnerID)
			if err != nil || currentVersion != claims.TokenVersion {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				c.Abort()
				return
			}
		}

		c.Set(CtxClaimsKey, claims)
		c.Next()
	}
}

func MustGetClaims(c *gin.Context) *Claims {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}
