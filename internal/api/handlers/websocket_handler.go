package handlers

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/raglens/raglens/internal/evaluation"
	"github.com/raglens/raglens/pkg/logger"
)

// WebSocketHandler streams evaluation progress to connected clients. The
// client sends {"type": "evaluate"} and receives a progress message per
// judged query, then a final report.
type WebSocketHandler struct {
	evaluator *evaluation.Evaluator
}

func NewWebSocketHandler(evaluator *evaluation.Evaluator) *WebSocketHandler {
	return &WebSocketHandler{
		evaluator: evaluator,
	}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	// The context lives as long as the connection; a dead client stops
	// the evaluation run instead of burning judge calls.
	ctx, cancel := context.WithCancel(context.Background())

	defer func() {
		cancel()
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type string `json:"type"`
		}

		if err := c.ReadJSON(&msg); err != nil {
			logger.Debug("WebSocket read ended", zap.Error(err))
			break
		}

		if msg.Type != "evaluate" {
			h.sendError(c, "Unknown message type")
			continue
		}

		if err := h.streamEvaluation(ctx, cancel, c); err != nil {
			logger.Error("Failed to stream evaluation", zap.Error(err))
			h.sendError(c, "Evaluation failed")
		}
	}
}

func (h *WebSocketHandler) streamEvaluation(ctx context.Context, cancel context.CancelFunc, c *websocket.Conn) error {
	onProgress := func(done, total int) {
		err := c.WriteJSON(map[string]interface{}{
			"type":  "progress",
			"done":  done,
			"total": total,
		})
		if err != nil {
			logger.Debug("Failed to send progress message, cancelling run", zap.Error(err))
			cancel()
		}
	}

	report, err := h.evaluator.RunEvaluation(ctx, onProgress)
	if err != nil {
		return err
	}

	return c.WriteJSON(map[string]interface{}{
		"type":                "complete",
		"run_id":              report.RunID,
		"total_queries":       report.TotalQueries,
		"judged_contexts":     report.JudgedContexts,
		"relevant_count":      report.RelevantCount,
		"irrelevant_count":    report.IrrelevantCount,
		"unknown_count":       report.UnknownCount,
		"mean_precision_at_1": report.MeanPrecisionAt1,
		"mean_precision_at_2": report.MeanPrecisionAt2,
	})
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}
