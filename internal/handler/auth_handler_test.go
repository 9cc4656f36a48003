package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/dafibh/fortuna/fortuna-rollover/internal/domain"
	"github.com/dafibh/fortuna/fortuna-rollover/internal/middleware"
	"github.com/dafibh/fortuna/fortuna-rollover/internal/service"
	"github.com/dafibh/fortuna/fortuna-rollover/internal/testutil"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Helper to set up auth context
func setupAuthContext(c echo.Context, auth0ID, email, name string) {
	setupAuthContextWithUser(c, auth0ID, email, name, uuid.Nil)
}

// Helper to set up auth context with a resolved local user
func setupAuthContextWithUser(c echo.Context, auth0ID, email, name string, userID uuid.UUID) {
	customClaims := &middleware.CustomClaims{
		Email: email,
		Name:  name,
	}
	claims := &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{
			Subject: auth0ID,
		},
		CustomClaims: customClaims,
	}
	ctx := context.WithValue(c.Request().Context(), middleware.ClaimsKey, claims)
	ctx = context.WithValue(ctx, middleware.Auth0IDKey, auth0ID)
	if userID != uuid.Nil {
		ctx = middleware.WithUserID(ctx, userID)
	}
	c.SetRequest(c.Request().WithContext(ctx))
}

func TestMe_NewUser(t *testing.T) {
	e := echo.New()
	userRepo := testutil.NewMockUserRepository()
	handler := NewAuthHandler(service.NewAuthService(userRepo))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, "auth0|newuser123", "new@example.com", "New User")

	if err := handler.Me(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var response UserResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response.Auth0ID != "auth0|newuser123" {
		t.Errorf("Expected auth0 id 'auth0|newuser123', got %s", response.Auth0ID)
	}
	if response.Email != "new@example.com" {
		t.Errorf("Expected email 'new@example.com', got %s", response.Email)
	}
	if response.Name == nil || *response.Name != "New User" {
		t.Errorf("Expected name 'New User', got %v", response.Name)
	}
	if response.ID == "" {
		t.Error("Expected user ID to be set")
	}
}

func TestMe_ExistingUser(t *testing.T) {
	e := echo.New()
	userRepo := testutil.NewMockUserRepository()
	existing := &domain.User{ID: uuid.New(), Auth0ID: "auth0|existing", Email: "old@example.com"}
	userRepo.AddUser(existing)
	handler := NewAuthHandler(service.NewAuthService(userRepo))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, "auth0|existing", "old@example.com", "")

	if err := handler.Me(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var response UserResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response.ID != existing.ID.String() {
		t.Errorf("Expected existing user %s, got %s", existing.ID, response.ID)
	}
}

func TestMe_Unauthenticated(t *testing.T) {
	e := echo.New()
	handler := NewAuthHandler(service.NewAuthService(testutil.NewMockUserRepository()))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.Me(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestMe_RepositoryError(t *testing.T) {
	e := echo.New()
	userRepo := testutil.NewMockUserRepository()
	userRepo.CreateFn = func(auth0ID, email string, name *string) (*domain.User, error) {
		return nil, errors.New("connection refused")
	}
	handler := NewAuthHandler(service.NewAuthService(userRepo))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, "auth0|broken", "broken@example.com", "")

	if err := handler.Me(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}
