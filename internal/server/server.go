// Package server assembles the HTTP API.
package server

import (
	"errors"
	"strings"
	"time"

	"designhouse-backend/internal/apperr"
	"designhouse-backend/internal/audit"
	"designhouse-backend/internal/auth"
	"designhouse-backend/internal/catalog"
	"designhouse-backend/internal/config"
	"designhouse-backend/internal/entries"
	"designhouse-backend/internal/inventory"
	"designhouse-backend/internal/logger"
	"designhouse-backend/internal/models"
	"designhouse-backend/internal/orders"
	"designhouse-backend/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

type Deps struct {
	Config    *config.Config
	Store     store.Store
	Orders    *orders.Service
	Entries   *entries.Service
	Inventory *inventory.Service
	Catalog   *catalog.Service
}

func NewApp(d Deps) *fiber.App {
	cfg := d.Config

	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(requestLogger())

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/bootstrap-admin", auth.BootstrapAdminHandler(d.Store))
	api.Post("/auth/login", auth.LoginHandler(cfg, d.Store))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler(d.Store))

	deciders := auth.RequireRole(models.RoleAdmin, models.RoleManager)
	adminOnly := auth.RequireRole(models.RoleAdmin)

	protected.Post("/users", adminOnly, auth.CreateUserHandler(d.Store))

	// Orders
	protected.Post("/orders", orders.CreateOrderHandler(d.Orders))
	protected.Get("/orders/:id", orders.GetOrderHandler(d.Orders))
	protected.Post("/orders/:id/finalize", deciders, orders.FinalizeOrderHandler(d.Orders))

	// Inventory entries
	protected.Post("/inventory-entries", entries.CreateEntryHandler(d.Entries))
	protected.Get("/inventory-entries/:id", entries.GetEntryHandler(d.Entries))
	protected.Post("/inventory-entries/:id/approve", deciders, entries.ApproveEntryHandler(d.Entries))
	protected.Post("/inventory-entries/:id/reject", deciders, entries.RejectEntryHandler(d.Entries))

	// Stock and catalog
	protected.Post("/materials", adminOnly, inventory.CreateMaterialHandler(d.Inventory))
	protected.Patch("/materials/:id/quantity", adminOnly, inventory.AdjustQuantityHandler(d.Inventory))
	protected.Get("/inventory/stock", inventory.GetCurrentStockHandler(d.Inventory))
	protected.Post("/designs", adminOnly, catalog.CreateDesignHandler(d.Catalog))
	protected.Put("/designs/:id", adminOnly, catalog.UpdateDesignHandler(d.Catalog))
	protected.Post("/suppliers", catalog.CreateSupplierHandler(d.Catalog))

	// Customers
	protected.Post("/customers", catalog.CreateCustomerHandler(d.Catalog))
	protected.Post("/customers/find-or-create", catalog.FindOrCreateCustomerHandler(d.Catalog))
	protected.Get("/customers/:id", catalog.GetCustomerHandler(d.Catalog))

	// Audit
	protected.Get("/audit-logs", adminOnly, audit.ListAuditLogsHandler(d.Store))

	return app
}

var kindStatus = map[apperr.Kind]int{
	apperr.KindNotFound:            fiber.StatusNotFound,
	apperr.KindAlreadyFinalized:    fiber.StatusConflict,
	apperr.KindNotPending:          fiber.StatusConflict,
	apperr.KindConflict:            fiber.StatusConflict,
	apperr.KindInsufficientStock:   fiber.StatusUnprocessableEntity,
	apperr.KindDiscrepancyExceeded: fiber.StatusUnprocessableEntity,
	apperr.KindUnknownMaterial:     fiber.StatusUnprocessableEntity,
	apperr.KindInvalidDiscount:     fiber.StatusBadRequest,
	apperr.KindValidation:          fiber.StatusBadRequest,
	apperr.KindUnauthorized:        fiber.StatusUnauthorized,
}

// ErrorHandler renders every failure as {"error": msg}. Unexpected errors
// are logged and their message hidden.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	if status, ok := kindStatus[apperr.KindOf(err)]; ok {
		return c.Status(status).JSON(fiber.Map{
			"error": apperr.Message(err),
			"kind":  apperr.KindOf(err),
		})
	}

	logger.LogError("server", "ErrorHandler", c.Method()+" "+c.Path(), nil, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "unexpected server error",
	})
}

func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			// The error handler has not run yet; report the status it will pick.
			status = statusFor(err)
		}
		entry := logger.Get().WithFields(logrus.Fields{
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
		})
		if status >= fiber.StatusInternalServerError {
			entry.Warn("request")
		} else {
			entry.Debug("request")
		}
		return err
	}
}

func statusFor(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	if status, ok := kindStatus[apperr.KindOf(err)]; ok {
		return status
	}
	return fiber.StatusInternalServerError
}
