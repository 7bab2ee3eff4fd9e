package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"libraryhub/internal/access"
	"libraryhub/internal/microservices/http-api/models"
	"libraryhub/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

// Context keys set by AuthMiddleware.
const (
	ContextUser      = "user"
	ContextPrincipal = "principal"
	ContextToken     = "token"
)

// Authenticator resolves a session token to its account.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// AuthMiddleware attaches the caller's account when the request carries a
// valid session, from the cookie or an "Authorization: Bearer" header.
// Requests without one continue as anonymous; the route gates decide.
func AuthMiddleware(auth Authenticator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c, cookieName)
		if token == "" {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		user, err := auth.Authenticate(ctx, token)
		switch {
		case err == nil:
			c.Set(ContextUser, user)
			c.Set(ContextPrincipal, &access.Principal{UserID: user.ID, IsAdmin: user.IsAdmin})
			c.Set(ContextToken, token)
		case errors.Is(err, service.ErrUnauthorized):
			// stale or forged token: treat as anonymous
		default:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		c.Next()
	}
}

// TokenFromRequest prefers the Authorization header over the session cookie.
func TokenFromRequest(c *gin.Context, cookieName string) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2) // 0 is Bearer, 1 is token
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := c.Cookie(cookieName); err == nil {
		return cookie
	}
	return ""
}

// Require gates a route on the access class op needs.
func Require(op access.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := access.Authorize(PrincipalFrom(c), op)
		switch {
		case err == nil:
			c.Next()
		case errors.Is(err, access.ErrUnauthorized):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		case errors.Is(err, access.ErrForbidden):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
		default:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
	}
}

// PrincipalFrom returns nil for anonymous requests.
func PrincipalFrom(c *gin.Context) *access.Principal {
	v, ok := c.Get(ContextPrincipal)
	if !ok {
		return nil
	}
	p, _ := v.(*access.Principal)
	return p
}

func UserFrom(c *gin.Context) *models.User {
	v, ok := c.Get(ContextUser)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}
