package repository

import (
	"context"
	"errors"
	"strings"

	"votronix-auth/internal/domain"
)

var (
	// ErrUserNotFound is returned by lookups that match no user.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned by Create when the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
)

// UserRepository defines persistence operations for User entities.
//
// Create must behave as an atomic test-and-set on the email: of two concurrent
// calls with the same email exactly one succeeds, the other gets ErrDuplicateEmail.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	UpdateProfileImage(ctx context.Context, id, url string) error
	// Delete is administrative removal for operators and tests; no route
	// exposes it.
	Delete(ctx context.Context, id string) error
}

// NormalizeEmail is the canonical form used for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
