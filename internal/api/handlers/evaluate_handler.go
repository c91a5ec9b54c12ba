package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/raglens/raglens/internal/evaluation"
	"github.com/raglens/raglens/internal/metrics"
	"github.com/raglens/raglens/internal/storage/sqlite"
	"github.com/raglens/raglens/pkg/logger"
)

type EvaluateHandler struct {
	evaluator *evaluation.Evaluator
	db        *sqlite.Client
}

func NewEvaluateHandler(evaluator *evaluation.Evaluator, db *sqlite.Client) *EvaluateHandler {
	return &EvaluateHandler{
		evaluator: evaluator,
		db:        db,
	}
}

// RunEvaluation judges every stored query synchronously and returns the
// aggregated report. Long runs are better followed over the websocket
// progress stream.
func (h *EvaluateHandler) RunEvaluation(c *fiber.Ctx) error {
	start := time.Now()

	report, err := h.evaluator.RunEvaluation(c.Context(), nil)
	if err != nil {
		logger.Error("Evaluation run failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Evaluation run failed",
		})
	}

	metrics.EvaluationDuration.Observe(time.Since(start).Seconds())
	metrics.PrecisionAtK.WithLabelValues("1").Observe(report.MeanPrecisionAt1)
	metrics.PrecisionAtK.WithLabelValues("2").Observe(report.MeanPrecisionAt2)
	for verdict, count := range map[string]int{
		"relevant":   report.RelevantCount,
		"irrelevant": report.IrrelevantCount,
		"unknown":    report.UnknownCount,
	} {
		metrics.JudgeVerdicts.WithLabelValues(verdict).Add(float64(count))
	}

	return c.JSON(reportPayload(report))
}

// GetLatestRun returns the most recently completed evaluation run.
func (h *EvaluateHandler) GetLatestRun(c *fiber.Ctx) error {
	run, err := h.db.GetLatestEvalRun()
	if err != nil {
		logger.Error("Failed to load latest evaluation run", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load latest evaluation run",
		})
	}
	if run == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No evaluation runs recorded",
		})
	}

	return c.JSON(fiber.Map{
		"run_id":             run.ID,
		"started_at":         run.StartedAt,
		"completed_at":       run.CompletedAt,
		"total_queries":      run.TotalQueries,
		"judged_contexts":    run.JudgedContexts,
		"relevant_count":     run.RelevantCount,
		"irrelevant_count":   run.IrrelevantCount,
		"unknown_count":      run.UnknownCount,
		"mean_precision_at1": run.MeanPrecisionAt1,
		"mean_precision_at2": run.MeanPrecisionAt2,
	})
}

// GetJudgments returns the per-context verdicts of one query in one run.
func (h *EvaluateHandler) GetJudgments(c *fiber.Ctx) error {
	runID := c.Params("run_id")
	queryID := c.Params("query_id")

	judgments, err := h.db.GetJudgments(runID, queryID)
	if err != nil {
		logger.Error("Failed to load judgments", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load judgments",
		})
	}

	return c.JSON(fiber.Map{
		"run_id":    runID,
		"query_id":  queryID,
		"judgments": judgments,
	})
}

func reportPayload(report *evaluation.Report) fiber.Map {
	precision := fiber.Map{}
	for k, v := range map[int]float64{1: report.MeanPrecisionAt1, 2: report.MeanPrecisionAt2} {
		precision[strconv.Itoa(k)] = v
	}

	return fiber.Map{
		"run_id":          report.RunID,
		"total_queries":   report.TotalQueries,
		"judged_contexts": report.JudgedContexts,
		"verdicts": fiber.Map{
			"relevant":   report.RelevantCount,
			"irrelevant": report.IrrelevantCount,
			"unknown":    report.UnknownCount,
		},
		"mean_precision_at_k": precision,
		"feedback": fiber.Map{
			"positive_queries":            report.PositiveFeedbackQueries,
			"negative_queries":            report.NegativeFeedbackQueries,
			"mean_precision_at1_positive": report.MeanPrecisionAt1Positive,
			"mean_precision_at1_negative": report.MeanPrecisionAt1Negative,
		},
	}
}
