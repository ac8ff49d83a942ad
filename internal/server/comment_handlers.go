package server

import "github.com/gofiber/fiber/v2"

// CreateComment handles POST /api/posts/:id/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	ctx, captured := mutationContext(c)
	id, err := s.store.AddComment(ctx, postID, req.Text)
	if err != nil {
		return respondError(c, err)
	}
	return s.respondMutation(c, fiber.StatusCreated, id, captured)
}
