// Package httpapi is the HTTP boundary (fiber) that fronts the one
// process-wide *job.Manager, per spec.md section 6.1. It grounds on
// raito's internal/http/router.go: a c.Locals dependency-injection
// middleware for shared state, a second middleware for request-ID
// generation and structured request logging, then per-endpoint handlers
// that always respond with a {success, code, error} envelope.
package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rohmanhakim/dlog"
	"golang.org/x/time/rate"

	"github.com/llmstxt/llms-txt-gen/internal/job"
)

const localsManagerKey = "job_manager"

// Server wraps the fiber app and the dependencies its middleware close over.
// Handlers reach the job.Manager through c.Locals rather than a Server
// field, per SPEC_FULL.md's design-notes instruction that a process-wide
// registry belongs only at the HTTP boundary.
type Server struct {
	App     *fiber.App
	log     dlog.Logger
	limiter *ipRateLimiter
}

// NewServer wires the four /v1/generations routes per spec.md section 6.1
// onto a fresh fiber app, injecting manager into every request's locals.
func NewServer(manager *job.Manager, log dlog.Logger) *Server {
	s := &Server{
		App:     fiber.New(fiber.Config{DisableStartupMessage: true}),
		log:     log,
		limiter: newIPRateLimiter(rate.Every(30*time.Second), 2),
	}

	s.App.Use(func(c *fiber.Ctx) error {
		c.Locals(localsManagerKey, manager)
		return c.Next()
	})

	s.App.Use(s.requestLogMiddleware)
	s.App.Use(s.rateLimitMiddleware)

	s.App.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1 := s.App.Group("/v1/generations")
	v1.Post("/", s.createGeneration)
	v1.Get("/:job_id", s.getGeneration)
	v1.Delete("/:job_id", s.cancelGeneration)
	v1.Get("/:job_id/download/:artifact", s.downloadArtifact)

	return s
}

// requestLogMiddleware assigns a request ID (reusing an inbound
// X-Request-Id header when present) and logs each request's outcome,
// mirroring raito's router.go logging middleware.
func (s *Server) requestLogMiddleware(c *fiber.Ctx) error {
	start := time.Now()

	reqID := c.Get("X-Request-Id")
	if reqID == "" {
		reqID = uuid.New().String()
	}
	c.Locals("request_id", reqID)
	c.Set("X-Request-Id", reqID)

	err := c.Next()

	if s.log != nil {
		s.log.Infow("http request",
			"request_id", reqID,
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"latency_ms", time.Since(start).Milliseconds(),
		)
	}
	return err
}

// rateLimitMiddleware enforces the per-IP bucket spec.md section 6.1
// documents: 2 burst, 1 refill per 30s, 429 once exhausted.
func (s *Server) rateLimitMiddleware(c *fiber.Ctx) error {
	if !s.limiter.allow(c.IP()) {
		return c.Status(fiber.StatusTooManyRequests).JSON(MessageResponse{
			Success: false,
			Code:    "RATE_LIMITED",
			Error:   "too many requests, slow down",
		})
	}
	return c.Next()
}
