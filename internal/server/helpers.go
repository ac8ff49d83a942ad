package server

import (
	"context"
	"errors"

	"letsblog/internal/middleware"
	"letsblog/internal/models"
	"letsblog/internal/service"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// mutationResponse is returned by every call that changes the store.
type mutationResponse struct {
	ID       uint             `json:"id,omitempty"`
	Snapshot *models.Snapshot `json:"snapshot"`
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid ID"))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// parseBody decodes the JSON body into out, answering 400 on malformed input.
func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}

// respondError maps a store error onto its HTTP status.
func respondError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.StatusFor(err), err)
}

// mutationContext prepares the context of a mutating store call. A request
// authenticated by token acts for that user only, checked under the same
// store lock as the change. The returned getter yields the snapshot the call
// published.
func mutationContext(c *fiber.Ctx) (context.Context, func() *models.Snapshot) {
	ctx := c.UserContext()
	if username, ok := c.Locals(middleware.LocalUsername).(string); ok && username != "" {
		ctx = service.WithActor(ctx, username)
	}
	return service.CaptureSnapshot(ctx)
}

// resultSnapshot returns the snapshot captured from the call, falling back to
// a fresh one if none was recorded.
func (s *Server) resultSnapshot(c *fiber.Ctx, captured func() *models.Snapshot) (*models.Snapshot, error) {
	if snap := captured(); snap != nil {
		return snap, nil
	}
	return s.store.Snapshot(c.UserContext(), "")
}

// respondMutation answers a successful mutating call with the snapshot that
// call published.
func (s *Server) respondMutation(c *fiber.Ctx, status int, id uint, captured func() *models.Snapshot) error {
	snap, err := s.resultSnapshot(c, captured)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(status).JSON(mutationResponse{ID: id, Snapshot: snap})
}
