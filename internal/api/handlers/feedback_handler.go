package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/raglens/raglens/internal/metrics"
	"github.com/raglens/raglens/internal/storage/models"
	"github.com/raglens/raglens/internal/storage/sqlite"
	"github.com/raglens/raglens/pkg/logger"
)

type FeedbackHandler struct {
	db *sqlite.Client
}

func NewFeedbackHandler(db *sqlite.Client) *FeedbackHandler {
	return &FeedbackHandler{
		db: db,
	}
}

// SubmitFeedback records a thumbs-up (+1) or thumbs-down (-1) vote on a
// previously answered query.
func (h *FeedbackHandler) SubmitFeedback(c *fiber.Ctx) error {
	var req struct {
		QueryID string `json:"query_id"`
		Score   int    `json:"score"`
		Comment string `json:"comment"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.QueryID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "query_id is required",
		})
	}
	if req.Score != 1 && req.Score != -1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "score must be -1 or 1",
		})
	}

	if _, err := h.db.GetQueryRecord(req.QueryID); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Unknown query_id",
		})
	}

	feedback := &models.Feedback{
		QueryID: req.QueryID,
		Score:   req.Score,
		Comment: req.Comment,
	}
	if err := h.db.StoreFeedback(feedback); err != nil {
		logger.Error("Failed to store feedback", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to store feedback",
		})
	}

	metrics.UserFeedback.WithLabelValues(strconv.Itoa(req.Score)).Inc()

	logger.Info("Feedback recorded",
		zap.String("query_id", req.QueryID),
		zap.Int("score", req.Score),
	)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status": "recorded",
	})
}

func (h *FeedbackHandler) GetFeedback(c *fiber.Ctx) error {
	queryID := c.Params("id")
	if queryID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "query id is required",
		})
	}

	items, err := h.db.GetFeedback(queryID)
	if err != nil {
		logger.Error("Failed to load feedback", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load feedback",
		})
	}

	return c.JSON(fiber.Map{
		"query_id": queryID,
		"feedback": items,
	})
}
