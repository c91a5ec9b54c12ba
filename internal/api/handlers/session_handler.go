package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/raglens/raglens/internal/dataset"
	"github.com/raglens/raglens/internal/index"
	"github.com/raglens/raglens/internal/metrics"
	"github.com/raglens/raglens/internal/storage/sqlite"
	"github.com/raglens/raglens/internal/viz"
	"github.com/raglens/raglens/pkg/logger"
)

type SessionHandler struct {
	db     *sqlite.Client
	corpus *index.Corpus
}

func NewSessionHandler(db *sqlite.Client, corpus *index.Corpus) *SessionHandler {
	return &SessionHandler{
		db:     db,
		corpus: corpus,
	}
}

// GetRAGSession builds a visualization session out of the indexed corpus and
// every query recorded so far: corpus chunks as the reference collection,
// query embeddings as the primary one.
func (h *SessionHandler) GetRAGSession(c *fiber.Ctx) error {
	records, err := h.db.ListQueryRecords(10000)
	if err != nil {
		logger.Error("Failed to list query records", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list query records",
		})
	}

	session, err := viz.BuildRAGSession(h.corpus, records)
	if err != nil {
		logger.Error("Failed to build session", zap.Error(err))
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	metrics.DriftScore.Set(session.DriftScore)

	return c.JSON(session)
}

// CreateDatasetSession loads one or two parquet datasets from disk and
// returns a session with centered embeddings and a drift score.
func (h *SessionHandler) CreateDatasetSession(c *fiber.Ctx) error {
	var req struct {
		PrimaryPath   string `json:"primary_path"`
		ReferencePath string `json:"reference_path"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.PrimaryPath == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "primary_path is required",
		})
	}

	primary, err := dataset.ReadReviewParquet(req.PrimaryPath, "primary")
	if err != nil {
		logger.Error("Failed to load primary dataset", zap.Error(err))
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Failed to load primary dataset",
		})
	}

	var reference *dataset.Dataset
	if req.ReferencePath != "" {
		reference, err = dataset.ReadReviewParquet(req.ReferencePath, "reference")
		if err != nil {
			logger.Error("Failed to load reference dataset", zap.Error(err))
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": "Failed to load reference dataset",
			})
		}
	}

	session, err := viz.NewSession(primary, reference)
	if err != nil {
		logger.Error("Failed to build session", zap.Error(err))
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	metrics.DriftScore.Set(session.DriftScore)

	return c.JSON(session)
}
