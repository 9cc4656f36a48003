package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/dafibh/fortuna/fortuna-rollover/internal/domain"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type stubValidator struct {
	claims interface{}
	err    error
}

func (s *stubValidator) ValidateToken(ctx context.Context, token string) (interface{}, error) {
	return s.claims, s.err
}

// MockUserProvider implements UserProvider for testing
type MockUserProvider struct {
	userID    uuid.UUID
	err       error
	lastEmail string
	lastName  *string
}

func (m *MockUserProvider) ResolveUser(ctx context.Context, auth0ID, email string, name *string) (*domain.User, error) {
	m.lastEmail = email
	m.lastName = name
	if m.err != nil {
		return nil, m.err
	}
	return &domain.User{ID: m.userID, Auth0ID: auth0ID, Email: email, Name: name}, nil
}

func validClaims() *validator.ValidatedClaims {
	return &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{Subject: "auth0|test"},
		CustomClaims:     &CustomClaims{Email: "test@example.com", Name: "Test User"},
	}
}

func runAuth(m *AuthMiddleware, header string) (*httptest.ResponseRecorder, uuid.UUID, bool) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/rollover/settings", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen uuid.UUID
	called := false
	handler := m.Authenticate()(func(c echo.Context) error {
		called = true
		seen = GetUserID(c)
		return c.String(http.StatusOK, "ok")
	})
	_ = handler(c)
	return rec, seen, called
}

func TestGetAuth0ID(t *testing.T) {
	e := echo.New()

	tests := []struct {
		name     string
		setup    func(c echo.Context)
		expected string
	}{
		{
			name: "returns auth0 id when present",
			setup: func(c echo.Context) {
				ctx := context.WithValue(c.Request().Context(), Auth0IDKey, "auth0|12345")
				c.SetRequest(c.Request().WithContext(ctx))
			},
			expected: "auth0|12345",
		},
		{
			name:     "returns empty string when not present",
			setup:    func(c echo.Context) {},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			tt.setup(c)

			result := GetAuth0ID(c)
			if result != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestGetCustomClaims(t *testing.T) {
	e := echo.New()

	t.Run("returns custom claims when present", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		ctx := context.WithValue(c.Request().Context(), ClaimsKey, validClaims())
		c.SetRequest(c.Request().WithContext(ctx))

		result := GetCustomClaims(c)
		if result == nil {
			t.Fatal("Expected custom claims, got nil")
		}
		if result.Email != "test@example.com" {
			t.Errorf("Expected email 'test@example.com', got %q", result.Email)
		}
	})

	t.Run("returns nil when claims not present", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		if GetCustomClaims(c) != nil {
			t.Error("Expected nil, got custom claims")
		}
	})
}

func TestCustomClaims_Validate(t *testing.T) {
	claims := &CustomClaims{Email: "test@example.com"}

	if err := claims.Validate(context.Background()); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestAuthMiddleware_MissingAuthorizationHeader(t *testing.T) {
	m := &AuthMiddleware{validator: &stubValidator{claims: validClaims()}}

	rec, _, called := runAuth(m, "")
	if called {
		t.Error("Handler should not be called")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestAuthMiddleware_InvalidAuthorizationHeaderFormat(t *testing.T) {
	m := &AuthMiddleware{validator: &stubValidator{claims: validClaims()}}

	for _, header := range []string{"invalid-token", "Basic token123"} {
		t.Run(header, func(t *testing.T) {
			rec, _, called := runAuth(m, header)
			if called {
				t.Error("Handler should not be called")
			}
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("Expected status 401, got %d", rec.Code)
			}
		})
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	m := &AuthMiddleware{validator: &stubValidator{err: errors.New("expired")}}

	rec, _, called := runAuth(m, "Bearer abc")
	if called {
		t.Error("Handler should not be called")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestAuthMiddleware_ResolvesUser(t *testing.T) {
	userID := uuid.New()
	provider := &MockUserProvider{userID: userID}
	m := &AuthMiddleware{validator: &stubValidator{claims: validClaims()}, userProvider: provider}

	rec, seen, called := runAuth(m, "Bearer abc")
	if !called {
		t.Fatal("Expected handler to be called")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
	if seen != userID {
		t.Errorf("Expected user %s in context, got %s", userID, seen)
	}
	if provider.lastEmail != "test@example.com" {
		t.Errorf("Expected email to be forwarded, got %q", provider.lastEmail)
	}
	if provider.lastName == nil || *provider.lastName != "Test User" {
		t.Error("Expected name to be forwarded")
	}
}

func TestAuthMiddleware_UserLookupFails(t *testing.T) {
	provider := &MockUserProvider{err: errors.New("db down")}
	m := &AuthMiddleware{validator: &stubValidator{claims: validClaims()}, userProvider: provider}

	rec, _, called := runAuth(m, "Bearer abc")
	if called {
		t.Error("Handler should not be called")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestContextIdentity(t *testing.T) {
	userID := uuid.New()

	id, err := ContextIdentity{}.CurrentUserID(WithUserID(context.Background(), userID))
	if err != nil || id != userID {
		t.Errorf("Expected %s, got %s (%v)", userID, id, err)
	}

	_, err = ContextIdentity{}.CurrentUserID(context.Background())
	if !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Errorf("Expected ErrNotAuthenticated, got %v", err)
	}
}
