package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testRecords() []Record {
	return []Record{
		{ID: "doc-b", Text: "second chunk", Embedding: []float32{0, 1, 0}},
		{ID: "doc-a", Text: "first chunk", Embedding: []float32{1, 0, 0}},
		{ID: "doc-c", Text: "third chunk", Embedding: []float32{0, 0, 1}},
	}
}

func TestNewCorpusSortsAndIndexes(t *testing.T) {
	corpus, err := NewCorpus(testRecords())
	if err != nil {
		t.Fatalf("NewCorpus: %v", err)
	}

	if corpus.Len() != 3 {
		t.Fatalf("expected 3 records, got %d", corpus.Len())
	}
	if corpus.Dimension() != 3 {
		t.Errorf("expected dimension 3, got %d", corpus.Dimension())
	}

	ids := make([]string, 0, corpus.Len())
	for _, r := range corpus.Records() {
		ids = append(ids, r.ID)
	}
	want := []string{"doc-a", "doc-b", "doc-c"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Errorf("record order mismatch (-want +got):\n%s", diff)
	}

	r, ok := corpus.Get("doc-b")
	if !ok {
		t.Fatal("expected doc-b to exist")
	}
	if r.Text != "second chunk" {
		t.Errorf("unexpected text %q", r.Text)
	}

	if _, ok := corpus.Get("missing"); ok {
		t.Error("expected missing id to be absent")
	}
}

func TestNewCorpusRejectsDimensionMismatch(t *testing.T) {
	records := []Record{
		{ID: "a", Text: "a", Embedding: []float32{1, 0}},
		{ID: "b", Text: "b", Embedding: []float32{1, 0, 0}},
	}
	if _, err := NewCorpus(records); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestNewCorpusRejectsDuplicateIDs(t *testing.T) {
	records := []Record{
		{ID: "a", Text: "a", Embedding: []float32{1}},
		{ID: "a", Text: "other", Embedding: []float32{2}},
	}
	if _, err := NewCorpus(records); err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	corpus, err := NewCorpus(testRecords())
	if err != nil {
		t.Fatalf("NewCorpus: %v", err)
	}

	if err := Save(dir, corpus); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if diff := cmp.Diff(corpus.Records(), loaded.Records()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMissingFiles(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("expected error for empty dir")
	}
}

func TestLoadRejectsDanglingVector(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "docstore.json"), `{"a": "text"}`)
	writeFile(t, filepath.Join(dir, "vectorstore.json"), `{"a": [1, 0], "b": [0, 1]}`)

	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for vector without document")
	}
}

func TestLoadRejectsMissingVector(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "docstore.json"), `{"a": "text", "b": "more"}`)
	writeFile(t, filepath.Join(dir, "vectorstore.json"), `{"a": [1, 0]}`)

	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for document without vector")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
