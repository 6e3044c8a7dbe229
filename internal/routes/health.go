package routes

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/wager_bank/internal/infra"
)

// RegisterHealthRoutes adds liveness/readiness style endpoints.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		report := infra.CheckHealth(c.UserContext(), d.DB, d.Cache)
		status := http.StatusOK
		if !report.OK() {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    report,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
