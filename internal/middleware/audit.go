package middleware

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// auditLocals are request-scoped values handlers may set for the audit line.
var auditLocals = []string{"user_id", "bank_id", "round_id"}

// Audit emits one structured line per request. Handlers enrich it by setting
// the user_id, bank_id or round_id locals.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		// The error handler has not run yet, so take the status from the error.
		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("route", c.Route().Path),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
		}
		if requestID, _ := c.Locals(requestIDHeader).(string); requestID != "" {
			attrs = append(attrs, slog.String("request_id", requestID))
		}
		for _, key := range auditLocals {
			if v, _ := c.Locals(key).(string); v != "" {
				attrs = append(attrs, slog.String(key, v))
			}
		}

		switch {
		case status >= fiber.StatusInternalServerError:
			logger.Error("request completed", append(attrs, slog.Any("error", err))...)
		case err != nil:
			logger.Warn("request completed", append(attrs, slog.Any("error", err))...)
		default:
			logger.Info("request completed", attrs...)
		}
		return err
	}
}
