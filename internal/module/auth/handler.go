package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/agamify/server/internal/module/user"
	"github.com/agamify/server/internal/shared/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for authentication.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new auth handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers auth routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/github/login", h.InitiateLogin)
		authGroup.GET("/github/callback", h.Callback)
	}

	users := r.Group("/users")
	users.Use(h.AuthMiddleware())
	{
		users.GET("/me", h.GetCurrentUser)
	}
}

// LoginRequest is the request body for initiating a login.
type LoginRequest struct {
	RedirectTo string `json:"redirect_to"`
}

// InitiateLogin starts the GitHub OAuth flow and returns the
// authorization URL.
func (h *Handler) InitiateLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.BadRequest(c, err.Error())
		return
	}

	login, err := h.service.InitiateLogin(c.Request.Context(), req.RedirectTo)
	if err != nil {
		h.logger.Error("initiate login failed", zap.Error(err))
		response.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, login)
}

// Callback completes the OAuth flow. GitHub redirects here with the
// state and code as query parameters.
func (h *Handler) Callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		response.BadRequest(c, "state and code are required")
		return
	}

	tokens, redirectTo, err := h.service.CompleteLogin(c.Request.Context(), state, code)
	if err != nil {
		if errors.Is(err, ErrInvalidState) {
			response.BadRequest(c, "invalid or expired state")
			return
		}
		if errors.Is(err, user.ErrEmailTaken) {
			response.Conflict(c, "email already registered to another account")
			return
		}
		h.logger.Error("oauth callback failed", zap.Error(err))
		response.Unauthorized(c, "github login failed")
		return
	}

	if redirectTo != "" {
		c.Redirect(http.StatusFound, redirectTo+"#token="+tokens.AccessToken)
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// GetCurrentUser returns the authenticated user.
func (h *Handler) GetCurrentUser(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, "")
		return
	}

	u, err := h.service.GetUser(c.Request.Context(), userID.(uuid.UUID))
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			response.NotFound(c, "user not found")
			return
		}
		h.logger.Error("get current user failed", zap.Error(err))
		response.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, u)
}

// AuthMiddleware validates the bearer token and sets the user identity
// on the request context.
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "authorization header required")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			response.Unauthorized(c, "invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := h.service.ValidateAccessToken(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Next()
	}
}
