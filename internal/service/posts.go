package service

import (
	"context"

	"letsblog/internal/models"
)

// CreatePost appends a new post authored by the session user and returns its
// ID. Posts are kept in insertion order. An empty category means General.
func (s *ContentStore) CreatePost(ctx context.Context, title, content, category string) (uint, error) {
	var id uint
	err := s.mutate(ctx, "create_post", map[string]interface{}{"category": category}, func(ctx context.Context) error {
		user, err := s.requireSession(ctx, "create posts")
		if err != nil {
			return err
		}
		if title == "" || content == "" {
			return models.NewMissingFieldError("title", "content")
		}
		cat, err := models.ParseCategory(category)
		if err != nil {
			return err
		}

		post := &models.Post{
			Title:    title,
			Content:  content,
			Author:   user.Username,
			Category: cat,
			Comments: []*models.Comment{},
		}
		if err := s.posts.Create(ctx, post); err != nil {
			return err
		}
		id = post.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// EditPost replaces the title and content of a post written by the session
// user. An empty new title or content keeps the current one. Everything else
// on the post is preserved.
func (s *ContentStore) EditPost(ctx context.Context, postID uint, newTitle, newContent string) error {
	return s.mutate(ctx, "edit_post", map[string]interface{}{"post_id": postID}, func(ctx context.Context) error {
		post, err := s.posts.GetByID(ctx, postID)
		if err != nil {
			return err
		}
		if _, err := s.requireAuthor(ctx, post, "edit"); err != nil {
			return err
		}
		if newTitle != "" {
			post.Title = newTitle
		}
		if newContent != "" {
			post.Content = newContent
		}
		return s.posts.Update(ctx, post)
	})
}

// DeletePost removes a post written by the session user, with its comments.
func (s *ContentStore) DeletePost(ctx context.Context, postID uint) error {
	return s.mutate(ctx, "delete_post", map[string]interface{}{"post_id": postID}, func(ctx context.Context) error {
		post, err := s.posts.GetByID(ctx, postID)
		if err != nil {
			return err
		}
		if _, err := s.requireAuthor(ctx, post, "delete"); err != nil {
			return err
		}
		return s.posts.Delete(ctx, postID)
	})
}

// GetPost returns a copy of one post.
func (s *ContentStore) GetPost(ctx context.Context, postID uint) (*models.Post, error) {
	var post *models.Post
	err := s.read(ctx, "get_post", func(ctx context.Context) error {
		var err error
		post, err = s.posts.GetByID(ctx, postID)
		return err
	})
	return post, err
}

// Search returns every post whose title, content or category contains query,
// ignoring case, in post order. An empty query returns all posts.
func (s *ContentStore) Search(ctx context.Context, query string) ([]*models.Post, error) {
	var posts []*models.Post
	err := s.read(ctx, "search", func(ctx context.Context) error {
		var err error
		posts, err = s.posts.Search(ctx, query)
		return err
	})
	return posts, err
}

// Posts returns every post in order.
func (s *ContentStore) Posts(ctx context.Context) ([]*models.Post, error) {
	var posts []*models.Post
	err := s.read(ctx, "list_posts", func(ctx context.Context) error {
		var err error
		posts, err = s.posts.List(ctx)
		return err
	})
	return posts, err
}
