package retrieval

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/raglens/raglens/internal/index"
	"github.com/raglens/raglens/internal/storage/sqlite"
	"github.com/raglens/raglens/internal/vector"
)

// fakeEmbedder maps known texts to fixed vectors.
type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("no embedding for %q", text)
}

// fakeResponder echoes the contexts it was given.
type fakeResponder struct{}

func (f *fakeResponder) Answer(ctx context.Context, query string, contexts []string) (string, error) {
	return "answered from: " + strings.Join(contexts, " | "), nil
}

func testEngine(t *testing.T) (*Engine, *sqlite.Client) {
	t.Helper()

	db, err := sqlite.NewClient(filepath.Join(t.TempDir(), "retrieval.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.InitSchema(); err != nil {
		t.Fatal(err)
	}

	corpus, err := index.NewCorpus([]index.Record{
		{ID: "c-1", Text: "cats are mammals", Embedding: []float32{1, 0, 0}},
		{ID: "c-2", Text: "rust prevention for cars", Embedding: []float32{0, 1, 0}},
		{ID: "c-3", Text: "dogs are mammals too", Embedding: []float32{0.9, 0.1, 0}},
	})
	if err != nil {
		t.Fatal(err)
	}

	searcher, err := vector.NewLocalSearcher(corpus)
	if err != nil {
		t.Fatal(err)
	}

	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"are cats mammals": {1, 0, 0},
	}}

	return NewEngine(db, searcher, embedder, &fakeResponder{}, 2), db
}

func TestProcessQuery(t *testing.T) {
	engine, db := testEngine(t)

	resp, err := engine.ProcessQuery(context.Background(), QueryRequest{Query: "are cats mammals"})
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}

	if resp.ID == "" {
		t.Error("expected a query id")
	}
	if len(resp.Contexts) != 2 {
		t.Fatalf("expected 2 contexts, got %d", len(resp.Contexts))
	}

	ids := []string{resp.Contexts[0].RecordID, resp.Contexts[1].RecordID}
	if diff := cmp.Diff([]string{"c-1", "c-3"}, ids); diff != "" {
		t.Errorf("context order mismatch (-want +got):\n%s", diff)
	}
	if resp.Contexts[0].Score < resp.Contexts[1].Score {
		t.Error("contexts not ordered by descending score")
	}
	if !strings.Contains(resp.Response, "cats are mammals") {
		t.Errorf("unexpected response %q", resp.Response)
	}

	// Record is persisted with contexts and embedding.
	record, err := db.GetQueryRecord(resp.ID)
	if err != nil {
		t.Fatalf("GetQueryRecord: %v", err)
	}
	if record.QueryText != "are cats mammals" {
		t.Errorf("persisted query text %q", record.QueryText)
	}
	if len(record.Contexts) != 2 {
		t.Errorf("persisted contexts = %d, want 2", len(record.Contexts))
	}
	if diff := cmp.Diff([]float32{1, 0, 0}, record.QueryEmbedding); diff != "" {
		t.Errorf("persisted embedding mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessQueryEmbedFailure(t *testing.T) {
	engine, _ := testEngine(t)

	_, err := engine.ProcessQuery(context.Background(), QueryRequest{Query: "unembeddable"})
	if err == nil {
		t.Fatal("expected error when embedding fails")
	}
}
