package vector

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/raglens/raglens/internal/index"
	"github.com/raglens/raglens/pkg/logger"
)

// Hit is one retrieved context with its similarity score.
type Hit struct {
	ID    string
	Text  string
	Score float64
}

// Searcher finds the topK records most similar to a query embedding.
type Searcher interface {
	Search(ctx context.Context, embedding []float32, topK int) ([]Hit, error)
}

// LocalSearcher does an exact cosine-similarity scan over an in-memory
// corpus. Results are ordered by descending score, ties broken by ID.
type LocalSearcher struct {
	corpus *index.Corpus
}

func NewLocalSearcher(corpus *index.Corpus) (*LocalSearcher, error) {
	if corpus.Len() == 0 {
		return nil, fmt.Errorf("corpus is empty")
	}
	return &LocalSearcher{corpus: corpus}, nil
}

func (s *LocalSearcher) Search(ctx context.Context, embedding []float32, topK int) ([]Hit, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}
	if len(embedding) != s.corpus.Dimension() {
		return nil, fmt.Errorf("query dimension %d does not match corpus dimension %d", len(embedding), s.corpus.Dimension())
	}

	records := s.corpus.Records()
	hits := make([]Hit, 0, len(records))
	for _, r := range records {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		hits = append(hits, Hit{
			ID:    r.ID,
			Text:  r.Text,
			Score: CosineSimilarity(embedding, r.Embedding),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})

	if topK > len(hits) {
		topK = len(hits)
	}
	hits = hits[:topK]

	logger.Debug("Local vector search completed",
		zap.Int("topK", topK),
		zap.Int("scanned", s.corpus.Len()),
	)

	return hits, nil
}

// CosineSimilarity returns 0 for mismatched lengths or zero-norm vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
