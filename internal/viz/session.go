package viz

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/raglens/raglens/internal/dataset"
	"github.com/raglens/raglens/internal/drift"
	"github.com/raglens/raglens/internal/index"
	"github.com/raglens/raglens/internal/storage/models"
	"github.com/raglens/raglens/pkg/logger"
)

// Session is what the visualization UI consumes: a primary dataset,
// optionally a reference dataset sharing its schema, and embeddings
// centered around the (joint) centroid so both distributions plot around
// the origin.
type Session struct {
	Primary   *dataset.Dataset `json:"primary"`
	Reference *dataset.Dataset `json:"reference,omitempty"`

	// CenteredPrimary and CenteredReference align row-for-row with the
	// dataset rows.
	CenteredPrimary   [][]float32 `json:"centered_primary"`
	CenteredReference [][]float32 `json:"centered_reference,omitempty"`

	// DriftScore is the distance between the two datasets' centroids.
	// Zero when there is no reference dataset.
	DriftScore float64 `json:"drift_score"`
}

// NewSession validates the datasets and precomputes centered embeddings.
// reference may be nil for single-dataset sessions.
func NewSession(primary, reference *dataset.Dataset) (*Session, error) {
	if primary == nil || primary.Len() == 0 {
		return nil, fmt.Errorf("session requires a non-empty primary dataset")
	}
	if err := primary.Schema.Validate(); err != nil {
		return nil, fmt.Errorf("primary schema: %w", err)
	}

	session := &Session{Primary: primary}

	if reference == nil {
		centered, err := drift.Center(primary.Embeddings())
		if err != nil {
			return nil, err
		}
		session.CenteredPrimary = centered

		logger.Info("Visualization session created",
			zap.String("primary", primary.Name),
			zap.Int("rows", primary.Len()),
		)

		return session, nil
	}

	if reference.Len() == 0 {
		return nil, fmt.Errorf("reference dataset %q is empty", reference.Name)
	}
	if !schemaEqual(reference.Schema, primary.Schema) {
		return nil, fmt.Errorf("reference dataset %q does not share the primary schema", reference.Name)
	}

	primaryEmbeddings := primary.Embeddings()
	referenceEmbeddings := reference.Embeddings()

	if len(primaryEmbeddings[0]) != len(referenceEmbeddings[0]) {
		return nil, fmt.Errorf("embedding dimension mismatch: primary %d, reference %d",
			len(primaryEmbeddings[0]), len(referenceEmbeddings[0]))
	}

	centeredPrimary, centeredReference, err := drift.CenterJoint(primaryEmbeddings, referenceEmbeddings)
	if err != nil {
		return nil, err
	}

	score, err := drift.CentroidDistance(primaryEmbeddings, referenceEmbeddings)
	if err != nil {
		return nil, err
	}

	session.Reference = reference
	session.CenteredPrimary = centeredPrimary
	session.CenteredReference = centeredReference
	session.DriftScore = score

	logger.Info("Visualization session created",
		zap.String("primary", primary.Name),
		zap.String("reference", reference.Name),
		zap.Int("primary_rows", primary.Len()),
		zap.Int("reference_rows", reference.Len()),
		zap.Float64("drift_score", score),
	)

	return session, nil
}

// BuildRAGSession turns the indexed corpus and the recorded queries into a
// two-dataset session: corpus chunks as the reference collection, queries
// as the primary one.
func BuildRAGSession(corpus *index.Corpus, records []models.QueryRecord) (*Session, error) {
	if corpus == nil || corpus.Len() == 0 {
		return nil, fmt.Errorf("corpus is empty")
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no recorded queries to visualize")
	}

	schema := dataset.Schema{
		EmbeddingColumn: "embedding",
		TextColumn:      "text",
	}

	corpusRows := make([]dataset.Row, 0, corpus.Len())
	for _, r := range corpus.Records() {
		corpusRows = append(corpusRows, dataset.Row{
			ID:        r.ID,
			Text:      r.Text,
			Embedding: r.Embedding,
		})
	}

	queryRows := make([]dataset.Row, 0, len(records))
	for _, r := range records {
		if len(r.QueryEmbedding) == 0 {
			continue
		}
		queryRows = append(queryRows, dataset.Row{
			ID:        r.ID,
			Timestamp: r.CreatedAt,
			Text:      r.QueryText,
			Embedding: r.QueryEmbedding,
		})
	}
	if len(queryRows) == 0 {
		return nil, fmt.Errorf("no recorded queries carry embeddings")
	}

	queries, err := dataset.New("queries", schema, queryRows)
	if err != nil {
		return nil, err
	}
	chunks, err := dataset.New("corpus", schema, corpusRows)
	if err != nil {
		return nil, err
	}

	return NewSession(queries, chunks)
}

func schemaEqual(a, b dataset.Schema) bool {
	if a.EmbeddingColumn != b.EmbeddingColumn ||
		a.TextColumn != b.TextColumn ||
		a.PredictionColumn != b.PredictionColumn ||
		a.ActualColumn != b.ActualColumn ||
		a.TimestampColumn != b.TimestampColumn {
		return false
	}
	if len(a.TagColumns) != len(b.TagColumns) {
		return false
	}
	for i := range a.TagColumns {
		if a.TagColumns[i] != b.TagColumns[i] {
			return false
		}
	}
	return true
}
