package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/raglens/raglens/internal/metrics"
	"github.com/raglens/raglens/internal/retrieval"
	"github.com/raglens/raglens/pkg/logger"
)

type QueryHandler struct {
	engine *retrieval.Engine
}

func NewQueryHandler(engine *retrieval.Engine) *QueryHandler {
	return &QueryHandler{
		engine: engine,
	}
}

func (h *QueryHandler) HandleQuery(c *fiber.Ctx) error {
	var req struct {
		Query string `json:"query"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query is required",
		})
	}

	start := time.Now()
	response, err := h.engine.ProcessQuery(c.Context(), retrieval.QueryRequest{Query: req.Query})
	if err != nil {
		metrics.QueryTotal.WithLabelValues("error").Inc()
		logger.Error("Failed to process query", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process query",
		})
	}

	metrics.QueryTotal.WithLabelValues("success").Inc()
	metrics.QueryDuration.WithLabelValues("api").Observe(time.Since(start).Seconds())
	metrics.RetrievedContexts.Observe(float64(len(response.Contexts)))
	for _, retrieved := range response.Contexts {
		metrics.RetrievalScore.Observe(retrieved.Score)
	}

	return c.JSON(fiber.Map{
		"id":         response.ID,
		"query":      response.Query,
		"response":   response.Response,
		"contexts":   response.Contexts,
		"latency_ms": response.LatencyMS,
	})
}

func (h *QueryHandler) GetQueryHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)

	records, err := h.engine.History(limit)
	if err != nil {
		logger.Error("Failed to load query history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load query history",
		})
	}

	return c.JSON(fiber.Map{
		"history": records,
	})
}
