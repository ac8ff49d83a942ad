// Package server contains the HTTP and WebSocket view layer over the content store.
package server

import (
	"context"
	"errors"
	"net"
	"time"

	"letsblog/internal/config"
	"letsblog/internal/featureflags"
	"letsblog/internal/middleware"
	"letsblog/internal/models"
	"letsblog/internal/notifications"
	"letsblog/internal/observability"
	"letsblog/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
)

const serviceName = "letsblog-api"

// Deps are the runtime dependencies of the server. Only Store is required.
type Deps struct {
	Store        *service.ContentStore
	Redis        *redis.Client
	FeatureFlags *featureflags.Manager
	Hub          *notifications.Hub
	Notifier     *notifications.Notifier
	Publisher    *notifications.SnapshotPublisher
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	store          *service.ContentStore
	redis          *redis.Client
	featureFlags   *featureflags.Manager
	hub            *notifications.Hub
	notifier       *notifications.Notifier
	publisher      *notifications.SnapshotPublisher
	tokens         *middleware.TokenManager
	limiter        *middleware.RateLimiter
	promMiddleware *fiberprometheus.FiberPrometheus
	app            *fiber.App
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
}

// NewServer creates a server over already-initialized dependencies.
func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if deps.Store == nil {
		return nil, errors.New("content store is required")
	}

	hub := deps.Hub
	if hub == nil {
		hub = notifications.NewHub()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewNotifier(deps.Redis)
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = notifications.NewSnapshotPublisher(hub, notifier)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		config:         cfg,
		store:          deps.Store,
		redis:          deps.Redis,
		featureFlags:   deps.FeatureFlags,
		hub:            hub,
		notifier:       notifier,
		publisher:      publisher,
		tokens:         middleware.NewTokenManager(cfg.JWTSecret, 24*time.Hour),
		limiter:        middleware.NewRateLimiter(deps.Redis, cfg.RateLimitEnabled),
		promMiddleware: middleware.InitMetrics(serviceName),
		shutdownCtx:    ctx,
		shutdownFn:     cancel,
	}, nil
}

// App returns the Fiber app with middleware and routes installed, building it
// on first use.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:   "letsblog API",
		BodyLimit: 1 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return models.RespondWithError(c, fe.Code, models.NewValidationError(fe.Message))
			}
			observability.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())

	app.Use(requestid.New())

	// Propagate request ID into the request context for the logger
	app.Use(middleware.ContextMiddleware())

	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())

	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so error responses
	// still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	if s.config.RateLimitEnabled {
		app.Use(limiter.New(limiter.Config{
			Max:        100,
			Expiration: 1 * time.Minute,
			Next: func(c *fiber.Ctx) bool {
				return c.Method() == fiber.MethodOptions
			},
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error": "Too many requests, please try again later.",
				})
			},
		}))
	}
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	auth := s.AuthRequired()

	authRoutes := api.Group("/auth")
	authRoutes.Post("/signup", s.limiter.Limit(5, 10*time.Minute, "signup"), s.Signup)
	authRoutes.Post("/login", s.limiter.Limit(10, 5*time.Minute, "login"), s.Login)
	authRoutes.Post("/logout", s.Logout)
	authRoutes.Get("/session", s.GetSession)

	posts := api.Group("/posts")
	posts.Get("/", s.SearchPosts)
	posts.Post("/", auth, s.CreatePost)
	// Specific /:id/:resource routes before the generic /:id routes
	posts.Post("/:id/like", s.LikePost)
	posts.Post("/:id/dislike", s.DislikePost)
	posts.Post("/:id/comments", auth, s.CreateComment)
	posts.Get("/:id", s.GetPost)
	posts.Put("/:id", auth, s.UpdatePost)
	posts.Delete("/:id", auth, s.DeletePost)

	api.Get("/categories", s.GetCategories)
	api.Get("/feature-flags", s.GetFeatureFlags)

	api.Get("/ws", s.requireUpgrade, s.WebsocketHandler())
}

// AuthRequired returns the session token middleware bound to the store.
func (s *Server) AuthRequired() fiber.Handler {
	return middleware.AuthRequired(s.tokens, s.redis, s.activeUsername)
}

func (s *Server) activeUsername(c *fiber.Ctx) string {
	if session := s.store.Session(c.UserContext()); session != nil {
		return session.Username
	}
	return ""
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional: without
// it snapshots stay local to this process, so the service is degraded but ready.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	storeStatus := "healthy"
	stats, err := s.store.Stats(ctx)
	if err != nil {
		storeStatus = "unhealthy"
	}

	overall := "healthy"
	status := fiber.StatusOK
	switch {
	case storeStatus == "unhealthy", redisStatus == "unhealthy":
		overall = "unhealthy"
		status = fiber.StatusServiceUnavailable
	case redisStatus == "unavailable":
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"store":         storeStatus,
			"content":       stats,
			"redis":         redisStatus,
			"ws_clients":    s.hub.Count(),
			"feature_flags": s.featureFlags.Raw(),
		},
		"time": time.Now(),
	})
}

// StartWiring subscribes the hub to the snapshots this server's store
// publishes on Redis.
func (s *Server) StartWiring() {
	if !s.notifier.Enabled() {
		return
	}
	if err := s.hub.StartWiring(s.shutdownCtx, s.notifier, s.publisher.Origin()); err != nil {
		observability.Logger.Error("failed to start hub wiring", "hub", s.hub.Name(), "error", err)
	}
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.StartWiring()
	observability.Logger.Info("Server starting", "addr", addr)
	return s.App().Listen(addr)
}

// Serve serves on an existing listener until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.StartWiring()
	return s.App().Listener(ln)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownFn()

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			observability.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		observability.Logger.Error("error shutting down hub", "hub", s.hub.Name(), "error", err)
	}
	return nil
}
