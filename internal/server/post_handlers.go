package server

import (
	"context"

	"letsblog/internal/models"

	"github.com/gofiber/fiber/v2"
)

type postRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
}

// SearchPosts handles GET /api/posts?q=. The response is a snapshot filtered
// by q; an empty q lists every post.
func (s *Server) SearchPosts(c *fiber.Ctx) error {
	snap, err := s.store.Snapshot(c.UserContext(), c.Query("q"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(snap)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.store.GetPost(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req postRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	ctx, captured := mutationContext(c)
	id, err := s.store.CreatePost(ctx, req.Title, req.Content, req.Category)
	if err != nil {
		return respondError(c, err)
	}
	return s.respondMutation(c, fiber.StatusCreated, id, captured)
}

// UpdatePost handles PUT /api/posts/:id. Only title and content change; an
// empty field keeps its current value.
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req postRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	ctx, captured := mutationContext(c)
	if err := s.store.EditPost(ctx, id, req.Title, req.Content); err != nil {
		return respondError(c, err)
	}
	return s.respondMutation(c, fiber.StatusOK, id, captured)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	ctx, captured := mutationContext(c)
	if err := s.store.DeletePost(ctx, id); err != nil {
		return respondError(c, err)
	}
	return s.respondMutation(c, fiber.StatusOK, 0, captured)
}

// LikePost handles POST /api/posts/:id/like
func (s *Server) LikePost(c *fiber.Ctx) error {
	return s.react(c, s.store.Like)
}

// DislikePost handles POST /api/posts/:id/dislike
func (s *Server) DislikePost(c *fiber.Ctx) error {
	return s.react(c, s.store.Dislike)
}

func (s *Server) react(c *fiber.Ctx, apply func(ctx context.Context, postID uint) error) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	ctx, captured := mutationContext(c)
	if err := apply(ctx, id); err != nil {
		return respondError(c, err)
	}
	return s.respondMutation(c, fiber.StatusOK, id, captured)
}

// GetCategories handles GET /api/categories
func (s *Server) GetCategories(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"categories": models.Categories()})
}
