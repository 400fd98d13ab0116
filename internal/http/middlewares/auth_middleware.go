package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/geocoder89/hirebase/internal/account"
	"github.com/geocoder89/hirebase/internal/actorctx"
	"github.com/geocoder89/hirebase/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (user.User, error)
}

type AuthMiddleware struct {
	auth Authenticator
}

func NewAuthMiddleware(auth Authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)

	return token, token != ""
}

// RequireAuth resolves the bearer token to an active user and binds it to
// both the gin context and the request context.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Header("WWW-Authenticate", "Bearer")
			abortJSON(c, http.StatusUnauthorized, "unauthenticated", "Not authenticated")
			return
		}

		u, err := m.auth.Authenticate(c.Request.Context(), raw)
		if err != nil {
			if errors.Is(err, account.ErrUnauthenticated) {
				c.Header("WWW-Authenticate", "Bearer")
				abortJSON(c, http.StatusUnauthorized, "unauthenticated", "Could not validate credentials")
				return
			}

			abortJSON(c, http.StatusInternalServerError, "internal_error", "Could not validate credentials")
			return
		}

		c.Set(CtxUser, u)
		c.Set(CtxUserID, u.ID)
		c.Request = c.Request.WithContext(actorctx.WithUserID(c.Request.Context(), u.ID))

		c.Next()
	}
}

// Helpers so handlers don't need to know the magic keys.

func UserFromContext(c *gin.Context) (user.User, bool) {
	v, ok := c.Get(CtxUser)
	if !ok {
		return user.User{}, false
	}
	u, ok := v.(user.User)
	return u, ok
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	id := c.GetString(CtxUserID)
	return id, id != ""
}
