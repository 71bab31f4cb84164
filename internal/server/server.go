package server

import (
	"strings"
	"time"

	"cmcs-backend/internal/admin"
	"cmcs-backend/internal/audit"
	"cmcs-backend/internal/auth"
	"cmcs-backend/internal/claims"
	"cmcs-backend/internal/document"
	"cmcs-backend/internal/httperr"
	"cmcs-backend/internal/logger"
	"cmcs-backend/internal/metrics"
	"cmcs-backend/internal/models"
	"cmcs-backend/internal/storage"
	"cmcs-backend/internal/workflow"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ActiveBackend reports which backend currently serves requests.
type ActiveBackend interface {
	Active() storage.Backend
}

type Deps struct {
	Service     *workflow.Service
	Storage     ActiveBackend
	JWTSecret   string
	CORSOrigins string
	Log         logger.Logger
}

const requestIDHeader = "X-Request-ID"

func requestID(log logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.SetUserContext(logger.ContextWithLogger(c.UserContext(), log.With("request_id", id)))

		start := time.Now()
		err := c.Next()
		log.Debug("request", "request_id", id, "method", c.Method(), "path", c.Path(),
			"status", c.Response().StatusCode(), "duration", time.Since(start))
		return err
	}
}

func corsOrigins(raw string) string {
	origins := strings.Split(raw, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return strings.Join(origins, ",")
}

// New builds the HTTP application.
func New(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: httperr.Handler(d.Log),
		BodyLimit:    document.MaxSize + 1<<20,
	})

	app.Use(requestID(d.Log))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  corsOrigins(d.CORSOrigins),
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS",
		ExposeHeaders: "Content-Disposition, X-Request-ID",
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "backend": d.Storage.Active().Name()})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	svc := d.Service
	api := app.Group("/api")

	api.Post("/auth/login", auth.LoginHandler(d.JWTSecret, svc))

	protected := api.Group("", auth.JWTMiddleware(d.JWTSecret))
	protected.Get("/auth/me", auth.MeHandler())

	lecturer := auth.RequireRole(models.RoleLecturer)
	coordinator := auth.RequireRole(models.RoleCoordinator)
	manager := auth.RequireRole(models.RoleManager)

	protected.Post("/claims", lecturer, claims.SubmitHandler(svc))
	protected.Get("/claims/mine", lecturer, claims.MyClaimsHandler(svc))

	protected.Get("/claims/pending", coordinator, claims.QueueHandler(svc, workflow.CoordinatorStage))
	protected.Post("/claims/:id/approve", coordinator, claims.DecisionHandler(svc, workflow.CoordinatorStage, workflow.ActionApprove))
	protected.Post("/claims/:id/reject", coordinator, claims.DecisionHandler(svc, workflow.CoordinatorStage, workflow.ActionReject))

	protected.Get("/claims/manager-queue", manager, claims.QueueHandler(svc, workflow.ManagerStage))
	protected.Post("/claims/:id/final-approve", manager, claims.DecisionHandler(svc, workflow.ManagerStage, workflow.ActionApprove))
	protected.Post("/claims/:id/final-reject", manager, claims.DecisionHandler(svc, workflow.ManagerStage, workflow.ActionReject))

	protected.Get("/claims/:id", claims.GetClaimHandler(svc))
	protected.Get("/claims/:id/history", audit.ClaimHistoryHandler(svc))
	protected.Get("/claims/:id/document", claims.DownloadDocumentHandler(svc))

	hr := protected.Group("/admin", auth.RequireRole(models.RoleHR))
	hr.Get("/users", admin.ListUsersHandler(svc))
	hr.Get("/users/:id", admin.GetUserHandler(svc))
	hr.Post("/users", admin.CreateUserHandler(svc))
	hr.Put("/users/:id", admin.UpdateUserHandler(svc))
	hr.Delete("/users/:id", admin.DeleteUserHandler(svc))
	hr.Get("/reports/claims", admin.ClaimsReportHandler(svc))

	return app
}
