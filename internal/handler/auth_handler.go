package handler

import (
	"net/http"

	"github.com/dafibh/fortuna/fortuna-rollover/internal/middleware"
	"github.com/dafibh/fortuna/fortuna-rollover/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// UserResponse represents the user in API responses
type UserResponse struct {
	ID      string  `json:"id"`
	Auth0ID string  `json:"auth0Id"`
	Email   string  `json:"email"`
	Name    *string `json:"name"`
}

// Me returns the current authenticated user's information
// GET /auth/me
func (h *AuthHandler) Me(c echo.Context) error {
	auth0ID := middleware.GetAuth0ID(c)
	if auth0ID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var email string
	var name *string
	if claims := middleware.GetCustomClaims(c); claims != nil {
		email = claims.Email
		if claims.Name != "" {
			name = &claims.Name
		}
	}

	user, err := h.authService.ResolveUser(c.Request().Context(), auth0ID, email, name)
	if err != nil {
		log.Error().Err(err).Str("auth0_id", auth0ID).Msg("Failed to get user")
		return NewNotFoundError(c, "User not found")
	}

	return c.JSON(http.StatusOK, UserResponse{
		ID:      user.ID.String(),
		Auth0ID: user.Auth0ID,
		Email:   user.Email,
		Name:    user.Name,
	})
}
