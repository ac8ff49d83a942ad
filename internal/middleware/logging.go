// Package middleware holds the Fiber middleware shared by the HTTP API:
// context propagation, request logging, tracing, metrics, session tokens and
// rate limiting.
package middleware

import (
	"context"
	"log/slog"
	"time"

	"letsblog/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// Fiber locals keys.
const (
	LocalRequestID = "requestid"
	LocalUsername  = "username"
	LocalTraceID   = "traceID"
	LocalTokenID   = "tokenID"
	LocalTokenExp  = "tokenExp"
)

// ContextMiddleware copies the request ID, username and trace ID from Fiber
// locals into the request context so the context-aware logger picks them up
// in the store.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.SetUserContext(withLocals(c, c.UserContext()))
		return c.Next()
	}
}

func withLocals(c *fiber.Ctx, ctx context.Context) context.Context {
	if rid, ok := c.Locals(LocalRequestID).(string); ok && rid != "" {
		ctx = context.WithValue(ctx, observability.RequestIDKey, rid)
	}
	if user, ok := c.Locals(LocalUsername).(string); ok && user != "" {
		ctx = observability.WithUsername(ctx, user)
	}
	if tid, ok := c.Locals(LocalTraceID).(string); ok && tid != "" {
		ctx = context.WithValue(ctx, observability.TraceIDKey, tid)
	}
	return ctx
}

// StructuredLogger returns a Fiber middleware for logging requests using slog
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		latency := time.Since(start)

		fields := []any{
			slog.Int("status", status),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
			slog.Duration("latency", latency),
			slog.String("user_agent", c.Get("User-Agent")),
		}

		// Locals may have been filled after ContextMiddleware ran (auth, tracing).
		ctx := withLocals(c, c.UserContext())
		if err != nil {
			fields = append(fields, slog.String("error", err.Error()))
			observability.Logger.ErrorContext(ctx, "request failed", fields...)
		} else {
			observability.Logger.InfoContext(ctx, "request processed", fields...)
		}

		return err
	}
}
