package server

import "github.com/gofiber/fiber/v2"

// GetFeatureFlags returns configured feature flags and their evaluated state
// for the session user.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	username := s.activeUsername(c)

	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(username),
	})
}
