package service

import (
	"context"

	"letsblog/internal/models"
)

// Signup registers a new account and makes it the active session.
func (s *ContentStore) Signup(ctx context.Context, username, password string) (*models.Session, error) {
	var session *models.Session
	err := s.mutate(ctx, "signup", map[string]interface{}{"username": username}, func(ctx context.Context) error {
		if username == "" || password == "" {
			return models.NewMissingFieldError("username", "password")
		}
		existing, err := s.users.GetByUsername(ctx, username)
		if err != nil {
			return err
		}
		if existing != nil {
			return models.NewDuplicateUserError(username)
		}

		account := &models.UserAccount{Username: username, Password: password}
		if err := s.users.Create(ctx, account); err != nil {
			return err
		}
		s.session = account
		session = models.SessionFor(account)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Login activates the account whose username and password both match exactly.
// A failed login leaves any existing session in place.
func (s *ContentStore) Login(ctx context.Context, username, password string) (*models.Session, error) {
	var session *models.Session
	err := s.mutate(ctx, "login", map[string]interface{}{"username": username}, func(ctx context.Context) error {
		account, err := s.users.GetByUsername(ctx, username)
		if err != nil {
			return err
		}
		if account == nil || account.Password != password {
			return models.NewInvalidCredentialsError()
		}
		s.session = account
		session = models.SessionFor(account)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Logout clears the active session. Calling it without a session is a no-op.
func (s *ContentStore) Logout(ctx context.Context) {
	_ = s.mutate(ctx, "logout", nil, func(context.Context) error {
		s.session = nil
		return nil
	})
}

// Session returns the active session, or nil when logged out.
func (s *ContentStore) Session(ctx context.Context) *models.Session {
	var session *models.Session
	_ = s.read(ctx, "session", func(context.Context) error {
		session = models.SessionFor(s.session)
		return nil
	})
	return session
}
