// Package main provides the process tracking API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"

	"github.com/venturahq/tramite/pkg/notifier"
	"github.com/venturahq/tramite/pkg/persistence"
	"github.com/venturahq/tramite/pkg/services"
	"github.com/venturahq/tramite/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	notifier    notifier.Service
	cache       services.Cache
	tracer      trace.Tracer
	jwtSecret   string
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	notifierService notifier.Service,
	cache services.Cache,
	tracer trace.Tracer,
	jwtSecret string,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		notifier:    notifierService,
		cache:       cache,
		tracer:      tracer,
		jwtSecret:   jwtSecret,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	authService := services.NewAuth(a.persistence, a.jwtSecret)
	userService := services.NewUser(a.persistence)
	processService := services.NewProcess(a.persistence, a.notifier, a.logger)
	progressionService := services.NewProgression(a.persistence, a.notifier, a.tracer, a.logger)
	dashboardService := services.NewDashboard(a.persistence, a.cache, a.logger)

	handlers := web.NewAPIHandlers(
		authService,
		userService,
		processService,
		progressionService,
		dashboardService,
		a.persistence,
		a.validate,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Tramite API")
	})

	app.Post("/login", handlers.Login)
	app.Get("/health", handlers.HealthCheck)

	auth := web.RequireAuth(authService)

	// Account management is restricted to admins; listing stays open so
	// stages can be assigned by any logged-in user.
	u := app.Group("/users", auth)
	u.Get("/", handlers.GetUsers)
	u.Get("/staff", handlers.GetStaff)
	u.Post("/", handlers.CreateUser, web.RequireAdmin)
	u.Post("/reset-password", handlers.ResetPassword, web.RequireAdmin)
	u.Get("/:id", handlers.GetUser)
	u.Put("/:id", handlers.UpdateUser, web.RequireAdmin)
	u.Delete("/:id", handlers.DeleteUser, web.RequireAdmin)

	app.Get("/process-types", handlers.GetProcessTypes, auth)

	p := app.Group("/processes", auth)
	p.Get("/", handlers.GetProcesses)
	p.Post("/", handlers.CreateProcess)
	p.Get("/:id", handlers.GetProcess)
	p.Put("/:id", handlers.UpdateProcess)
	p.Delete("/:id", handlers.DeleteProcess)
	p.Get("/:id/stages", handlers.GetProcessStages)

	t := app.Group("/tasks", auth)
	t.Get("/user/:userId", handlers.GetUserTasks)
	t.Get("/user/:userId/pending-count", handlers.GetPendingTaskCount)
	t.Put("/:id/finalize", handlers.FinalizeTask)

	app.Get("/notifications/user/:userId", handlers.GetUserNotifications, auth)
	app.Get("/dashboard", handlers.GetDashboard, auth)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
