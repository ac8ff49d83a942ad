package service

import (
	"context"

	"letsblog/internal/models"
)

// requireSession is the single capability check behind every operation that
// needs a logged-in user. When ctx names an actor, the session must belong to
// that actor. Callers must hold s.mu.
func (s *ContentStore) requireSession(ctx context.Context, action string) (*models.UserAccount, error) {
	if s.session == nil {
		return nil, models.NewUnauthenticatedError("You must be logged in to " + action)
	}
	if actor, ok := actorFrom(ctx); ok && actor != s.session.Username {
		return nil, models.NewUnauthenticatedError("Session is no longer active")
	}
	return s.session, nil
}

// requireAuthor checks that the session user wrote post. Callers must hold s.mu.
func (s *ContentStore) requireAuthor(ctx context.Context, post *models.Post, action string) (*models.UserAccount, error) {
	user, err := s.requireSession(ctx, action)
	if err != nil {
		return nil, err
	}
	if post.Author != user.Username {
		return nil, models.NewForbiddenError("You can only " + action + " your own posts")
	}
	return user, nil
}
