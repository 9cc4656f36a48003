package service

import (
	"context"
	"errors"
	"testing"

	"github.com/dafibh/fortuna/fortuna-rollover/internal/domain"
	"github.com/dafibh/fortuna/fortuna-rollover/internal/testutil"
	"github.com/google/uuid"
)

func TestResolveUser_NewUser(t *testing.T) {
	userRepo := testutil.NewMockUserRepository()
	service := NewAuthService(userRepo)

	auth0ID := "auth0|12345"
	email := "test@example.com"
	name := "Test User"

	user, err := service.ResolveUser(context.Background(), auth0ID, email, &name)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if user == nil {
		t.Fatal("Expected user, got nil")
	}

	if user.Auth0ID != auth0ID {
		t.Errorf("Expected auth0ID %s, got %s", auth0ID, user.Auth0ID)
	}

	if user.Email != email {
		t.Errorf("Expected email %s, got %s", email, user.Email)
	}

	if user.ID == uuid.Nil {
		t.Error("Expected user ID to be assigned")
	}
}

func TestResolveUser_ExistingUser(t *testing.T) {
	userRepo := testutil.NewMockUserRepository()
	service := NewAuthService(userRepo)

	existing := &domain.User{ID: uuid.New(), Auth0ID: "auth0|existing", Email: "existing@example.com"}
	userRepo.AddUser(existing)

	user, err := service.ResolveUser(context.Background(), "auth0|existing", "existing@example.com", nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if user.ID != existing.ID {
		t.Errorf("Expected user ID %s, got %s", existing.ID, user.ID)
	}
}

func TestResolveUser_EmptySubject(t *testing.T) {
	service := NewAuthService(testutil.NewMockUserRepository())

	_, err := service.ResolveUser(context.Background(), "", "test@example.com", nil)
	if !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Errorf("Expected ErrNotAuthenticated, got %v", err)
	}
}

func TestResolveUser_RepositoryError(t *testing.T) {
	userRepo := testutil.NewMockUserRepository()
	userRepo.CreateFn = func(auth0ID, email string, name *string) (*domain.User, error) {
		return nil, errors.New("database unavailable")
	}
	service := NewAuthService(userRepo)

	_, err := service.ResolveUser(context.Background(), "auth0|12345", "test@example.com", nil)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
}

func TestGetUserIDByAuth0ID(t *testing.T) {
	userRepo := testutil.NewMockUserRepository()
	service := NewAuthService(userRepo)

	existing := &domain.User{ID: uuid.New(), Auth0ID: "auth0|lookup"}
	userRepo.AddUser(existing)

	id, err := service.GetUserIDByAuth0ID(context.Background(), "auth0|lookup")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if id != existing.ID {
		t.Errorf("Expected %s, got %s", existing.ID, id)
	}

	_, err = service.GetUserIDByAuth0ID(context.Background(), "auth0|missing")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestStaticIdentity(t *testing.T) {
	id := uuid.New()

	got, err := StaticIdentity(id).CurrentUserID(context.Background())
	if err != nil || got != id {
		t.Errorf("Expected %s, got %s (%v)", id, got, err)
	}

	_, err = StaticIdentity(uuid.Nil).CurrentUserID(context.Background())
	if !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Errorf("Expected ErrNotAuthenticated, got %v", err)
	}
}
