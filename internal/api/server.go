// Package api serves the progress operations over HTTP.
package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	"github.com/abhisek/learntrack/internal/progress"
	"github.com/abhisek/learntrack/internal/store"
)

// Header names read by the server.
const (
	HeaderRequestID = "X-Request-ID"
	HeaderRole      = "X-Role"
)

// Roles allowed on the admin routes.
const (
	RoleAdmin      = "admin"
	RoleInstructor = "instructor"
)

// Options configures the HTTP server.
type Options struct {
	RequestTimeout time.Duration
	Logger         *slog.Logger
	// AccessLog enables the per-request access log line.
	AccessLog      bool
}

// Server holds the handler dependencies.
type Server struct {
	svc      *progress.Service
	repo     store.ProgressRepo
	validate *validator.Validate
	logger   *slog.Logger
}

// New builds the fiber app with every route mounted.
func New(svc *progress.Service, repo store.ProgressRepo, opts Options) *fiber.App {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 5 * time.Second
	}

	s := &Server{
		svc:      svc,
		repo:     repo,
		validate: validator.New(),
		logger:   opts.Logger,
	}

	app := fiber.New(fiber.Config{
		AppName:               "learntrack",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(opts.Logger),
	})

	app.Use(recover.New())
	app.Use(requestContext(opts.RequestTimeout))
	if opts.AccessLog {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	s.routes(app)
	return app
}

// requestContext tags every request with an ID and bounds its lifetime.
func requestContext(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid := c.Get(HeaderRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(HeaderRequestID, rid)
		c.Locals("requestid", rid)

		ctx, cancel := context.WithTimeout(c.Context(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func (s *Server) routes(app *fiber.App) {
	api := app.Group("/api")

	api.Post("/enrollments", s.enroll)

	lessons := api.Group("/lessons/:lessonID")
	lessons.Post("/start", s.startLesson)
	lessons.Post("/complete", s.completeLesson)
	lessons.Put("/video", s.updateVideo)
	lessons.Post("/quiz", s.submitQuiz)

	api.Get("/modules/:moduleID/progress", s.moduleProgress)

	admin := api.Group("/admin", requireRole(RoleAdmin, RoleInstructor))
	admin.Post("/lessons/:lessonID/reset", s.resetLesson)
	admin.Post("/enrollments/:enrollmentID/reconcile", s.reconcile)
}

// requireRole rejects requests whose X-Role header is not one of roles.
func requireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := c.Get(HeaderRole)
		for _, r := range roles {
			if role == r {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "insufficient role")
	}
}
