package dataset

import (
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"

	"github.com/raglens/raglens/pkg/logger"
)

// reviewRow mirrors the column layout of the review datasets: a timestamped
// review text with its embedding, the classifier's predicted sentiment, the
// ground-truth label, and two categorical features.
type reviewRow struct {
	ID        string    `parquet:"id"`
	Timestamp int64     `parquet:"timestamp"`
	Text      string    `parquet:"text"`
	Embedding []float32 `parquet:"text_vector"`
	Predicted string    `parquet:"pred_label"`
	Actual    string    `parquet:"label"`
	Category  string    `parquet:"category"`
	Language  string    `parquet:"language"`
}

// ReviewSchema is the column-role binding for datasets read by
// ReadReviewParquet.
func ReviewSchema() Schema {
	return Schema{
		EmbeddingColumn:  "text_vector",
		TextColumn:       "text",
		PredictionColumn: "pred_label",
		ActualColumn:     "label",
		TimestampColumn:  "timestamp",
		TagColumns:       []string{"category", "language"},
	}
}

// ReadReviewParquet loads a review dataset from a parquet file.
func ReadReviewParquet(path, name string) (*Dataset, error) {
	parquetRows, err := parquet.ReadFile[reviewRow](path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet file %s: %w", path, err)
	}

	rows := make([]Row, 0, len(parquetRows))
	for i, pr := range parquetRows {
		id := pr.ID
		if id == "" {
			id = fmt.Sprintf("%s-%d", name, i)
		}

		rows = append(rows, Row{
			ID:             id,
			Timestamp:      time.Unix(pr.Timestamp, 0).UTC(),
			Text:           pr.Text,
			Embedding:      pr.Embedding,
			PredictedLabel: pr.Predicted,
			ActualLabel:    pr.Actual,
			Tags: map[string]string{
				"category": pr.Category,
				"language": pr.Language,
			},
		})
	}

	ds, err := New(name, ReviewSchema(), rows)
	if err != nil {
		return nil, fmt.Errorf("invalid dataset %s: %w", name, err)
	}

	logger.Info("Parquet dataset loaded",
		zap.String("path", path),
		zap.String("name", name),
		zap.Int("rows", ds.Len()),
	)

	return ds, nil
}
