package dataset

import (
	"fmt"
	"time"
)

// Row is one observation: free text, its embedding, optional model labels,
// categorical tags, and a timestamp.
type Row struct {
	ID             string            `json:"id"`
	Timestamp      time.Time         `json:"timestamp,omitempty"`
	Text           string            `json:"text"`
	Embedding      []float32         `json:"embedding"`
	PredictedLabel string            `json:"predicted_label,omitempty"`
	ActualLabel    string            `json:"actual_label,omitempty"`
	Tags           map[string]string `json:"tags,omitempty"`
}

// Schema assigns roles to the columns of a dataset: which column holds the
// embedding, which the model prediction, which the ground truth, and so on.
type Schema struct {
	EmbeddingColumn  string   `json:"embedding_column"`
	TextColumn       string   `json:"text_column,omitempty"`
	PredictionColumn string   `json:"prediction_column,omitempty"`
	ActualColumn     string   `json:"actual_column,omitempty"`
	TimestampColumn  string   `json:"timestamp_column,omitempty"`
	TagColumns       []string `json:"tag_columns,omitempty"`
}

func (s Schema) Validate() error {
	if s.EmbeddingColumn == "" {
		return fmt.Errorf("schema requires an embedding column")
	}
	return nil
}

type Dataset struct {
	Name   string `json:"name"`
	Schema Schema `json:"schema"`
	Rows   []Row  `json:"rows"`
}

func New(name string, schema Schema, rows []Row) (*Dataset, error) {
	if name == "" {
		return nil, fmt.Errorf("dataset requires a name")
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}

	dim := 0
	for i, row := range rows {
		if len(row.Embedding) == 0 {
			return nil, fmt.Errorf("row %d has no embedding", i)
		}
		if dim == 0 {
			dim = len(row.Embedding)
		} else if len(row.Embedding) != dim {
			return nil, fmt.Errorf("row %d has dimension %d, dataset dimension is %d", i, len(row.Embedding), dim)
		}
	}

	return &Dataset{Name: name, Schema: schema, Rows: rows}, nil
}

func (d *Dataset) Len() int {
	return len(d.Rows)
}

// Embeddings returns the embedding column as a vector collection.
func (d *Dataset) Embeddings() [][]float32 {
	out := make([][]float32, len(d.Rows))
	for i, row := range d.Rows {
		out[i] = row.Embedding
	}
	return out
}
