package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskmaster/internal/constants"
	"github.com/yukikurage/taskmaster/internal/dto"
	apierrors "github.com/yukikurage/taskmaster/internal/errors"
	"github.com/yukikurage/taskmaster/internal/middleware"
	"github.com/yukikurage/taskmaster/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService  *services.AuthService
	tokenService *services.TokenService
}

// NewAuthHandler creates a new AuthHandler. A nil tokenService disables the token endpoint.
func NewAuthHandler(authService *services.AuthService, tokenService *services.TokenService) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		tokenService: tokenService,
	}
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates a new user.
func (h *AuthHandler) Register(c *gin.Context) {
	type RegisterRequest struct {
		Name            string  `json:"name" binding:"required"`
		Email           string  `json:"email" binding:"required"`
		Password        string  `json:"password" binding:"required"`
		PasswordConfirm *string `json:"password_confirm"`
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.authService.Register(c.Request.Context(), services.RegisterInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToUserDTO(*user))
}

// Login authenticates a user and initializes the session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.authService.Login(c.Request.Context(), services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(constants.ContextKeyUserID, user.ID)
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// Logout removes the authentication session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to logout")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// GetCurrentUser returns the authenticated user.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	user, err := h.authService.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// IssueToken exchanges credentials for a bearer token.
func (h *AuthHandler) IssueToken(c *gin.Context) {
	if h.tokenService == nil {
		apierrors.ServiceUnavailable(c, "Token authentication is not configured")
		return
	}

	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.authService.Login(c.Request.Context(), services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	token, expiresAt, err := h.tokenService.Issue(user.ID, user.Email)
	if err != nil {
		c.Error(err)
		apierrors.InternalError(c, "Failed to issue token")
		return
	}

	c.JSON(http.StatusOK, dto.TokenDTO{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt.UTC(),
		ExpiresIn:   int64(h.tokenService.TTL().Seconds()),
	})
}

func respondAuthError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		apierrors.ValidationFailed(c, validationErr.Field, validationErr.Message)
	case errors.Is(err, services.ErrPasswordTooShort):
		apierrors.ValidationFailed(c, "password", fmt.Sprintf("Password must be at least %d characters", constants.MinPasswordLength))
	case errors.Is(err, services.ErrPasswordTooLong):
		apierrors.ValidationFailed(c, "password", fmt.Sprintf("Password must be at most %d bytes", constants.MaxPasswordLength))
	case errors.Is(err, services.ErrPasswordMismatch):
		apierrors.ValidationFailed(c, "password_confirm", "Passwords must match")
	case errors.Is(err, services.ErrEmailTaken):
		apierrors.Conflict(c, "Email already registered")
	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.InvalidCredentials(c)
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, "User not found")
	case errors.Is(err, services.ErrFailedToHashPassword),
		errors.Is(err, services.ErrFailedToCreateUser):
		c.Error(err)
		apierrors.InternalError(c, "Failed to create user")
	default:
		c.Error(err)
		apierrors.InternalError(c, "Internal server error")
	}
}
