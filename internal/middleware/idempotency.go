package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyHeader  = "Idempotency-Key"
	idempotencyReplayed   = "Idempotent-Replayed"
	idempotencyPrefix     = "idempotency:v2:"
	inProgressMarker      = "__in_progress__"
	idempotencyStoreLimit = 2 * time.Second
)

type storedResponse struct {
	Status  int               `json:"status"`
	Body    string            `json:"body"`
	Headers map[string]string `json:"headers"`
}

// Idempotency replays the stored response of a mutation that was already
// served for the same caller, route and Idempotency-Key. A concurrent
// duplicate gets 409 while the first request is still running.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		switch strings.ToUpper(c.Method()) {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		key := c.Get(idempotencyKeyHeader)
		if key == "" {
			return fiber.NewError(fiber.StatusBadRequest, "missing Idempotency-Key header")
		}
		cacheKey := idempotencyCacheKey(c, key)

		ctx, cancel := context.WithTimeout(context.Background(), idempotencyStoreLimit)
		defer cancel()

		cached, err := cache.Get(ctx, cacheKey).Result()
		switch {
		case err == nil:
			return replay(c, cached, key, logger)
		case err != redis.Nil:
			logger.Error("idempotency lookup failed", slog.String("key", key), slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
		}

		reserved, err := cache.SetNX(ctx, cacheKey, inProgressMarker, ttl).Result()
		if err != nil {
			logger.Error("idempotency reservation failed", slog.String("key", key), slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency reservation failure")
		}
		if !reserved {
			return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
		}

		release := func() {
			cleanupCtx, cancel := context.WithTimeout(context.Background(), idempotencyStoreLimit)
			defer cancel()
			cache.Del(cleanupCtx, cacheKey)
		}

		if err := c.Next(); err != nil {
			release()
			return err
		}
		// Server errors are not worth replaying; let the client retry.
		if c.Response().StatusCode() >= fiber.StatusInternalServerError {
			release()
			return nil
		}

		stored := storedResponse{
			Status:  c.Response().StatusCode(),
			Body:    string(c.Response().Body()),
			Headers: map[string]string{},
		}
		c.Response().Header.VisitAll(func(k, v []byte) {
			stored.Headers[string(k)] = string(v)
		})

		payload, err := json.Marshal(stored)
		if err != nil {
			logger.Error("failed to encode idempotent response", slog.String("key", key), slog.Any("error", err))
			release()
			return nil
		}

		persistCtx, persistCancel := context.WithTimeout(context.Background(), idempotencyStoreLimit)
		defer persistCancel()
		if err := cache.Set(persistCtx, cacheKey, payload, ttl).Err(); err != nil {
			logger.Error("failed to persist idempotent response", slog.String("key", key), slog.Any("error", err))
			cache.Del(persistCtx, cacheKey)
		}
		return nil
	}
}

func replay(c *fiber.Ctx, cached, key string, logger *slog.Logger) error {
	if cached == inProgressMarker {
		return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
	}
	var stored storedResponse
	if err := json.Unmarshal([]byte(cached), &stored); err != nil {
		logger.Warn("failed to decode stored idempotent response", slog.String("key", key), slog.Any("error", err))
		return fiber.NewError(fiber.StatusConflict, "duplicate request")
	}
	for header, value := range stored.Headers {
		if strings.EqualFold(header, fiber.HeaderContentLength) {
			continue
		}
		c.Set(header, value)
	}
	c.Set(idempotencyReplayed, "true")
	return c.Status(stored.Status).SendString(stored.Body)
}

// idempotencyCacheKey scopes a client key to the caller and the route so two
// users, or two endpoints, never share a stored response.
func idempotencyCacheKey(c *fiber.Ctx, key string) string {
	caller, _ := c.Locals("user_id").(string)
	if caller == "" {
		caller = "anonymous"
	}
	return idempotencyPrefix + caller + ":" + c.Method() + ":" + c.Path() + ":" + key
}
