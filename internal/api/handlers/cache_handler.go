package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/raglens/raglens/pkg/logger"
)

// EmbeddingInvalidator clears every cached embedding. Cached vectors go
// stale when the embedding model changes.
type EmbeddingInvalidator interface {
	InvalidateEmbeddings(ctx context.Context) error
}

type CacheHandler struct {
	cache EmbeddingInvalidator
}

// NewCacheHandler accepts a nil invalidator when no cache is configured.
func NewCacheHandler(cache EmbeddingInvalidator) *CacheHandler {
	return &CacheHandler{
		cache: cache,
	}
}

func (h *CacheHandler) FlushEmbeddings(c *fiber.Ctx) error {
	if h.cache == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Embedding cache is not enabled",
		})
	}

	if err := h.cache.InvalidateEmbeddings(c.Context()); err != nil {
		logger.Error("Failed to flush embedding cache", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to flush embedding cache",
		})
	}

	logger.Info("Embedding cache flushed")

	return c.JSON(fiber.Map{
		"status": "flushed",
	})
}
