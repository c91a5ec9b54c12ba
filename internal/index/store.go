package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/raglens/raglens/pkg/logger"
)

const (
	docStoreFile    = "docstore.json"
	vectorStoreFile = "vectorstore.json"
)

// Record is one indexed chunk: free text plus its embedding vector.
type Record struct {
	ID        string
	Text      string
	Embedding []float32
}

// Corpus is an in-memory view of a persisted index. Records are kept in
// ascending ID order so iteration is deterministic.
type Corpus struct {
	records []Record
	byID    map[string]int
	dim     int
}

func NewCorpus(records []Record) (*Corpus, error) {
	c := &Corpus{
		records: make([]Record, len(records)),
		byID:    make(map[string]int, len(records)),
	}
	copy(c.records, records)

	sort.Slice(c.records, func(i, j int) bool {
		return c.records[i].ID < c.records[j].ID
	})

	for i, r := range c.records {
		if _, ok := c.byID[r.ID]; ok {
			return nil, fmt.Errorf("duplicate record id %q", r.ID)
		}
		c.byID[r.ID] = i

		if len(r.Embedding) == 0 {
			return nil, fmt.Errorf("record %q has no embedding", r.ID)
		}
		if c.dim == 0 {
			c.dim = len(r.Embedding)
		} else if len(r.Embedding) != c.dim {
			return nil, fmt.Errorf("record %q has dimension %d, corpus dimension is %d", r.ID, len(r.Embedding), c.dim)
		}
	}

	return c, nil
}

func (c *Corpus) Records() []Record {
	return c.records
}

func (c *Corpus) Get(id string) (Record, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Record{}, false
	}
	return c.records[i], true
}

func (c *Corpus) Len() int {
	return len(c.records)
}

func (c *Corpus) Dimension() int {
	return c.dim
}

// Load reads a persisted index from dir: docstore.json maps record ids to
// text, vectorstore.json maps the same ids to embedding vectors.
func Load(dir string) (*Corpus, error) {
	docs, err := readStringMap(filepath.Join(dir, docStoreFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read doc store: %w", err)
	}

	vectors, err := readVectorMap(filepath.Join(dir, vectorStoreFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read vector store: %w", err)
	}

	records := make([]Record, 0, len(docs))
	for id, text := range docs {
		embedding, ok := vectors[id]
		if !ok {
			return nil, fmt.Errorf("record %q has no embedding in vector store", id)
		}
		records = append(records, Record{ID: id, Text: text, Embedding: embedding})
	}

	for id := range vectors {
		if _, ok := docs[id]; !ok {
			return nil, fmt.Errorf("vector store entry %q has no document", id)
		}
	}

	corpus, err := NewCorpus(records)
	if err != nil {
		return nil, err
	}

	logger.Info("Index loaded",
		zap.String("dir", dir),
		zap.Int("records", corpus.Len()),
		zap.Int("dimension", corpus.Dimension()),
	)

	return corpus, nil
}

// Save persists the corpus to dir in the same two-file layout Load expects.
func Save(dir string, corpus *Corpus) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create index dir: %w", err)
	}

	docs := make(map[string]string, corpus.Len())
	vectors := make(map[string][]float32, corpus.Len())
	for _, r := range corpus.Records() {
		docs[r.ID] = r.Text
		vectors[r.ID] = r.Embedding
	}

	if err := writeJSON(filepath.Join(dir, docStoreFile), docs); err != nil {
		return fmt.Errorf("failed to write doc store: %w", err)
	}
	if err := writeJSON(filepath.Join(dir, vectorStoreFile), vectors); err != nil {
		return fmt.Errorf("failed to write vector store: %w", err)
	}

	logger.Info("Index saved", zap.String("dir", dir), zap.Int("records", corpus.Len()))

	return nil
}

func readStringMap(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return m, nil
}

func readVectorMap(path string) (map[string][]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m map[string][]float32
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return m, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
