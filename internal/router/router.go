package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/examark/examark-api/internal/config"
	"github.com/examark/examark-api/internal/handler"
	"github.com/examark/examark-api/internal/middleware"
	"github.com/examark/examark-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	QuestionHandler   *handler.QuestionHandler
	GradingHandler    *handler.GradingHandler
	SubmissionHandler *handler.SubmissionHandler
	ExtractHandler    *handler.ExtractHandler
	StudentHandler    *handler.StudentHandler
	StatsHandler      *handler.StatsHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil. The role guard on
	// question authoring only makes sense when tokens carry roles, so it is
	// dropped together with the JWT middleware.
	jwtMiddleware := deps.JWTMiddleware
	var authoring fiber.Handler
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	} else {
		authoring = middleware.RequireRole(middleware.RoleTeacher, middleware.RoleAdmin)
	}

	if deps.QuestionHandler != nil {
		questions := api.Group("/questions", jwtMiddleware)
		deps.QuestionHandler.Register(questions, authoring)
	}

	if deps.GradingHandler != nil {
		grading := api.Group("/grading", jwtMiddleware,
			middleware.GradingRateLimit(cfg.GradingRateLimit, time.Minute))
		deps.GradingHandler.Register(grading)
	}

	if deps.SubmissionHandler != nil {
		submissions := api.Group("/submissions", jwtMiddleware)
		deps.SubmissionHandler.Register(submissions)
	}

	if deps.ExtractHandler != nil {
		extract := api.Group("/extract", jwtMiddleware)
		deps.ExtractHandler.Register(extract)
	}

	if deps.StudentHandler != nil || deps.StatsHandler != nil {
		students := api.Group("/students", jwtMiddleware)
		if deps.StudentHandler != nil {
			deps.StudentHandler.Register(students)
		}
		if deps.StatsHandler != nil {
			deps.StatsHandler.Register(students)
		}
	}
}
