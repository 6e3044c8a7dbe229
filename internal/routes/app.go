package routes

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// AppConfig is the Fiber configuration the API is served with. Immutable is
// required: handlers persist params and body strings (holding addresses,
// asset type ids) that would otherwise alias the reused request buffer.
func AppConfig(d Deps) fiber.Config {
	return fiber.Config{
		AppName:      d.Cfg.AppName,
		Immutable:    true,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: errorHandler(d.Logger),
	}
}

// errorHandler renders every error as {"error": message}.
func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		if code >= fiber.StatusInternalServerError && logger != nil {
			logger.Error("request failed", slog.String("path", c.Path()), slog.Any("error", err))
		}
		return c.Status(code).JSON(fiber.Map{"error": err.Error()})
	}
}
