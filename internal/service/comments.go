package service

import (
	"context"

	"letsblog/internal/models"
)

// AddComment appends a comment by the session user to a post and returns the
// comment ID. Comments keep arrival order.
func (s *ContentStore) AddComment(ctx context.Context, postID uint, text string) (uint, error) {
	var id uint
	err := s.mutate(ctx, "add_comment", map[string]interface{}{"post_id": postID}, func(ctx context.Context) error {
		user, err := s.requireSession(ctx, "comment")
		if err != nil {
			return err
		}
		if text == "" {
			return models.NewMissingFieldError("text")
		}
		if _, err := s.posts.GetByID(ctx, postID); err != nil {
			return err
		}

		comment := &models.Comment{Text: text, Author: user.Username}
		if err := s.posts.AddComment(ctx, postID, comment); err != nil {
			return err
		}
		id = comment.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}
