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
	idempotencyKeyHeader = "Idempotency-Key"
	idempotencyPrefix    = "idempotency:v1:"
	inProgressMarker     = "__in_progress__"
	redisOpTimeout       = 2 * time.Second
)

type storedResponse struct {
	Status  int               `json:"status"`
	Body    string            `json:"body"`
	Headers map[string]string `json:"headers"`
}

// Idempotency replays the stored response for a repeated unsafe request
// carrying the same Idempotency-Key header. A request whose key is still
// being processed is rejected with 409.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch strings.ToUpper(c.Method()) {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		key := c.Get(idempotencyKeyHeader)
		if key == "" {
			return fiber.NewError(fiber.StatusBadRequest, "missing Idempotency-Key header")
		}
		cacheKey := idempotencyPrefix + key

		ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
		defer cancel()

		cached, err := cache.Get(ctx, cacheKey).Result()
		switch {
		case err == nil:
			return replay(c, key, cached, logger)
		case err != redis.Nil:
			logger.Error("idempotency lookup failed", slog.String("key", key), slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
		}

		if err := cache.SetNX(ctx, cacheKey, inProgressMarker, ttl).Err(); err != nil {
			logger.Error("idempotency reservation failed", slog.String("key", key), slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency reservation failure")
		}

		if err := c.Next(); err != nil {
			deleteKey(cache, cacheKey)
			return err
		}

		return persist(c, cache, cacheKey, key, ttl, logger)
	}
}

func replay(c *fiber.Ctx, key, cached string, logger *slog.Logger) error {
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
	return c.Status(stored.Status).SendString(stored.Body)
}

func persist(c *fiber.Ctx, cache *redis.Client, cacheKey, key string, ttl time.Duration, logger *slog.Logger) error {
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
		deleteKey(cache, cacheKey)
		return fiber.NewError(fiber.StatusInternalServerError, "idempotency persistence failure")
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := cache.Set(ctx, cacheKey, payload, ttl).Err(); err != nil {
		logger.Error("failed to persist idempotent response", slog.String("key", key), slog.Any("error", err))
		deleteKey(cache, cacheKey)
		return fiber.NewError(fiber.StatusInternalServerError, "idempotency persistence failure")
	}
	return nil
}

func deleteKey(cache *redis.Client, cacheKey string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	cache.Del(ctx, cacheKey) // best effort cleanup
}
