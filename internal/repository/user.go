// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"

	"letsblog/internal/models"
)

// UserRepository defines the interface for user registry operations
type UserRepository interface {
	Create(ctx context.Context, user *models.UserAccount) error
	GetByUsername(ctx context.Context, username string) (*models.UserAccount, error)
	Count(ctx context.Context) (int, error)
}

// memoryUserRepository implements UserRepository on a map. It does no locking
// of its own: callers serialize access.
type memoryUserRepository struct {
	users map[string]models.UserAccount
	order []string
}

// NewMemoryUserRepository creates an empty in-memory user registry
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{users: make(map[string]models.UserAccount)}
}

func (r *memoryUserRepository) Create(_ context.Context, user *models.UserAccount) error {
	if _, exists := r.users[user.Username]; exists {
		return models.NewDuplicateUserError(user.Username)
	}
	r.users[user.Username] = *user
	r.order = append(r.order, user.Username)
	return nil
}

// GetByUsername returns (nil, nil) when no account is registered under username.
func (r *memoryUserRepository) GetByUsername(_ context.Context, username string) (*models.UserAccount, error) {
	u, ok := r.users[username]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *memoryUserRepository) Count(_ context.Context) (int, error) {
	return len(r.order), nil
}
