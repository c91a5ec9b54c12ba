package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/raglens/raglens/internal/storage/models"
	"github.com/raglens/raglens/internal/storage/sqlite"
	"github.com/raglens/raglens/internal/vector"
	"github.com/raglens/raglens/pkg/logger"
)

// Embedder turns text into an embedding vector.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Responder synthesizes an answer from retrieved contexts.
type Responder interface {
	Answer(ctx context.Context, query string, contexts []string) (string, error)
}

type Engine struct {
	db        *sqlite.Client
	searcher  vector.Searcher
	embedder  Embedder
	responder Responder
	topK      int
}

type QueryRequest struct {
	Query string
}

type QueryResponse struct {
	ID        string
	Query     string
	Response  string
	Contexts  []RetrievedContext
	LatencyMS int
}

type RetrievedContext struct {
	Rank     int
	RecordID string
	Text     string
	Score    float64
}

func NewEngine(db *sqlite.Client, searcher vector.Searcher, embedder Embedder, responder Responder, topK int) *Engine {
	if topK <= 0 {
		topK = 2
	}
	return &Engine{
		db:        db,
		searcher:  searcher,
		embedder:  embedder,
		responder: responder,
		topK:      topK,
	}
}

// ProcessQuery embeds the query, retrieves the topK most similar corpus
// records, synthesizes a response over them, and persists the full record.
func (e *Engine) ProcessQuery(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	startTime := time.Now()
	queryID := uuid.New().String()

	logger.Info("Processing query",
		zap.String("query_id", queryID),
		zap.String("query", req.Query),
	)

	embedding, err := e.embedder.GenerateEmbedding(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := e.searcher.Search(ctx, embedding, e.topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search corpus: %w", err)
	}

	contexts := make([]RetrievedContext, len(hits))
	texts := make([]string, len(hits))
	for i, hit := range hits {
		contexts[i] = RetrievedContext{
			Rank:     i,
			RecordID: hit.ID,
			Text:     hit.Text,
			Score:    hit.Score,
		}
		texts[i] = hit.Text
	}

	response, err := e.responder.Answer(ctx, req.Query, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize response: %w", err)
	}

	latency := int(time.Since(startTime).Milliseconds())

	record := &models.QueryRecord{
		ID:             queryID,
		QueryText:      req.Query,
		QueryEmbedding: embedding,
		Response:       response,
		LatencyMS:      latency,
		CreatedAt:      time.Now(),
	}
	for _, ctx := range contexts {
		record.Contexts = append(record.Contexts, models.RetrievedContext{
			Rank:     ctx.Rank,
			RecordID: ctx.RecordID,
			Text:     ctx.Text,
			Score:    ctx.Score,
		})
	}

	if err := e.db.InsertQueryRecord(record); err != nil {
		logger.Error("Failed to persist query record", zap.Error(err))
	}

	logger.Info("Query processed",
		zap.String("query_id", queryID),
		zap.Int("contexts", len(contexts)),
		zap.Int("latency_ms", latency),
	)

	return &QueryResponse{
		ID:        queryID,
		Query:     req.Query,
		Response:  response,
		Contexts:  contexts,
		LatencyMS: latency,
	}, nil
}

// History returns stored query records, oldest first.
func (e *Engine) History(limit int) ([]models.QueryRecord, error) {
	return e.db.ListQueryRecords(limit)
}
