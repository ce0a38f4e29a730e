package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/lms-go-api/internal/config"
	"github.com/noah-isme/lms-go-api/internal/handler"
	"github.com/noah-isme/lms-go-api/internal/middleware"
	"github.com/noah-isme/lms-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	UserHandler           *handler.UserHandler
	LmsHandler            *handler.LmsHandler
	ContentHandler        *handler.ContentHandler
	SubmissionHandler     *handler.SubmissionHandler
	QuizSubmissionHandler *handler.QuizSubmissionHandler
	GradeHandler          *handler.GradeHandler
	UploadHandler         *handler.UploadHandler
	ChatbotHandler        *handler.ChatbotHandler
	BillingHandler        *handler.BillingHandler
	NotificationHandler   *handler.NotificationHandler
	ActivityHandler       *handler.ActivityHandler
	HealthProbes          map[string]handler.HealthProbe
	JWTMiddleware         fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	// Midtrans calls this without a token; the payload signature authenticates it.
	if deps.BillingHandler != nil {
		api.Post("/billing/midtrans/notification", deps.BillingHandler.Notification)
	}

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.UserHandler != nil {
		deps.UserHandler.Register(api.Group("/users", jwtMiddleware))
	}

	// Courses, their content tree, gradebook and checkout
	if deps.LmsHandler != nil {
		lms := api.Group("/lms", jwtMiddleware)
		deps.LmsHandler.Register(lms)

		if deps.ContentHandler != nil {
			deps.ContentHandler.Register(lms.Group("/:lmsId/contents"))
		}
		if deps.GradeHandler != nil {
			lms.Get("/:lmsId/grades", deps.GradeHandler.ListForLms)
		}
		if deps.BillingHandler != nil {
			lms.Post("/:lmsId/checkout", middleware.WithAuth(deps.BillingHandler.Checkout, middleware.AuthOptions{Role: middleware.AuthRoleStudent}))
		}
	}

	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(api.Group("/assignments", jwtMiddleware))
	}
	if deps.QuizSubmissionHandler != nil {
		deps.QuizSubmissionHandler.Register(api.Group("/quizzes", jwtMiddleware))
	}
	if deps.GradeHandler != nil {
		api.Get("/grades/me", jwtMiddleware, deps.GradeHandler.ListMine)
	}

	if deps.UploadHandler != nil {
		api.Post("/uploads", jwtMiddleware, middleware.WithAuth(deps.UploadHandler.Handle, middleware.AuthOptions{RequireUser: true}))
	}

	// Chatbot; asking is rate limited per user
	if deps.ChatbotHandler != nil {
		chatbot := api.Group("/chatbot", jwtMiddleware)
		chatbot.Post("/", middleware.RateLimit("chatbot", cfg.ChatbotRateLimit, time.Minute), deps.ChatbotHandler.Ask)
		deps.ChatbotHandler.Register(chatbot)
	}

	if deps.BillingHandler != nil {
		api.Get("/billing/invoices", jwtMiddleware, deps.BillingHandler.Invoices)
	}

	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(api.Group("/notifications", jwtMiddleware))
	}

	if deps.ActivityHandler != nil {
		admin := api.Group("/admin", jwtMiddleware)
		admin.Get("/activities", middleware.WithAuth(deps.ActivityHandler.List, middleware.AuthOptions{Role: middleware.AuthRoleAdmin}))
	}
}
