package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskmaster/internal/constants"
	apierrors "github.com/yukikurage/taskmaster/internal/errors"
	"github.com/yukikurage/taskmaster/internal/services"
)

// TokenValidator verifies bearer tokens
type TokenValidator interface {
	Validate(token string) (*services.TokenClaims, error)
}

// RequireAuth checks if the user is authenticated via a bearer token or the session
func RequireAuth(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, ok := bearerToken(c); ok {
			if tokens == nil {
				apierrors.InvalidToken(c, "Bearer tokens are not accepted")
				return
			}
			claims, err := tokens.Validate(raw)
			if err != nil {
				if errors.Is(err, services.ErrExpiredToken) {
					apierrors.InvalidToken(c, "Token has expired")
				} else {
					apierrors.InvalidToken(c, "")
				}
				return
			}
			c.Set(constants.ContextKeyUserID, claims.UserID)
			c.Next()
			return
		}

		userID, ok := SessionUserID(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			return
		}

		// Store user ID in context for easy access in handlers
		c.Set(constants.ContextKeyUserID, userID)
		c.Next()
	}
}

// RequireLogin redirects anonymous browser requests to the login page
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := SessionUserID(c)
		if !ok {
			session := sessions.Default(c)
			session.AddFlash("Please log in to access this page.", "info")
			if err := session.Save(); err != nil {
				c.Error(err)
			}
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyUserID, userID)
		c.Next()
	}
}

// SessionUserID reads the logged-in user from the session cookie
func SessionUserID(c *gin.Context) (uint64, bool) {
	session := sessions.Default(c)
	return toUserID(session.Get(constants.ContextKeyUserID))
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}
	return toUserID(userID)
}

func toUserID(value interface{}) (uint64, bool) {
	switch v := value.(type) {
	case uint64:
		return v, v != 0
	case uint:
		return uint64(v), v != 0
	case int:
		if v <= 0 {
			return 0, false
		}
		return uint64(v), true
	case int64:
		if v <= 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
