// README: Bearer-token auth middleware; exposes the verified caller to handlers.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"itinera/internal/infra"
)

const (
	ctxKeyUID      = "auth.uid"
	ctxKeyIdentity = "auth.identity"
)

// BearerToken returns the token from the Authorization header, or "" when absent.
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[len("Bearer "):])
}

// Auth rejects requests without a valid bearer token.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			abortJSON(c, http.StatusUnauthorized, "missing bearer token")
			return
		}
		id, err := verifier.VerifyIDToken(c.Request.Context(), token)
		if err != nil || id == nil || id.UID == "" {
			abortJSON(c, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		c.Set(ctxKeyUID, id.UID)
		c.Set(ctxKeyIdentity, *id)
		c.Next()
	}
}

// SetCallerUID records a caller verified outside Auth, so the request log carries it.
func SetCallerUID(c *gin.Context, uid string) {
	if uid != "" {
		c.Set(ctxKeyUID, uid)
	}
}

// CallerUID is the verified caller's id, or "" outside Auth.
func CallerUID(c *gin.Context) string {
	return c.GetString(ctxKeyUID)
}

// CallerIdentity is the verified caller, if Auth ran.
func CallerIdentity(c *gin.Context) (infra.Identity, bool) {
	v, ok := c.Get(ctxKeyIdentity)
	if !ok {
		return infra.Identity{}, false
	}
	id, ok := v.(infra.Identity)
	return id, ok
}

func abortJSON(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": msg})
}
