package server

import (
	"strings"

	"letsblog/internal/middleware"
	"letsblog/internal/models"
	"letsblog/internal/observability"
	"letsblog/internal/service"

	"github.com/gofiber/fiber/v2"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Session  *models.Session  `json:"session"`
	Token    string           `json:"token,omitempty"`
	Snapshot *models.Snapshot `json:"snapshot,omitempty"`
}

// Signup handles POST /api/auth/signup
func (s *Server) Signup(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	ctx, captured := service.CaptureSnapshot(c.UserContext())
	session, err := s.store.Signup(ctx, req.Username, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return s.respondSession(c, fiber.StatusCreated, session, captured)
}

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	ctx, captured := service.CaptureSnapshot(c.UserContext())
	session, err := s.store.Login(ctx, req.Username, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return s.respondSession(c, fiber.StatusOK, session, captured)
}

func (s *Server) respondSession(c *fiber.Ctx, status int, session *models.Session, captured func() *models.Snapshot) error {
	token, err := s.tokens.Generate(session.Username)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	snap, err := s.resultSnapshot(c, captured)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(status).JSON(sessionResponse{Session: session, Token: token, Snapshot: snap})
}

// Logout handles POST /api/auth/logout. It always succeeds; a presented
// token is revoked so it cannot be replayed after a later login.
func (s *Server) Logout(c *fiber.Ctx) error {
	if raw, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer "); ok && raw != "" {
		if claims, err := s.tokens.Parse(raw); err == nil {
			c.Locals(middleware.LocalTokenID, claims.ID)
			c.Locals(middleware.LocalTokenExp, claims.ExpiresAt)
			s.tokens.Revoke(c, s.redis)
		}
	}

	ctx, captured := service.CaptureSnapshot(c.UserContext())
	s.store.Logout(ctx)
	observability.Logger.InfoContext(ctx, "session ended")
	return s.respondMutation(c, fiber.StatusOK, 0, captured)
}

// GetSession handles GET /api/auth/session
func (s *Server) GetSession(c *fiber.Ctx) error {
	return c.JSON(sessionResponse{Session: s.store.Session(c.UserContext())})
}
