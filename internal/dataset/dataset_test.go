package dataset

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validRows() []Row {
	return []Row{
		{ID: "r-1", Text: "great product", Embedding: []float32{1, 0}, PredictedLabel: "positive", ActualLabel: "positive", Timestamp: time.Unix(1700000000, 0)},
		{ID: "r-2", Text: "terrible", Embedding: []float32{0, 1}, PredictedLabel: "negative", ActualLabel: "positive", Timestamp: time.Unix(1700000100, 0)},
	}
}

func TestNewDataset(t *testing.T) {
	ds, err := New("primary", ReviewSchema(), validRows())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if ds.Len() != 2 {
		t.Errorf("Len = %d, want 2", ds.Len())
	}

	embeddings := ds.Embeddings()
	if len(embeddings) != 2 || len(embeddings[0]) != 2 {
		t.Errorf("unexpected embeddings %v", embeddings)
	}
}

func TestNewDatasetValidation(t *testing.T) {
	if _, err := New("", ReviewSchema(), validRows()); err == nil {
		t.Error("expected error for missing name")
	}

	if _, err := New("primary", Schema{}, validRows()); err == nil {
		t.Error("expected error for schema without embedding column")
	}

	rows := validRows()
	rows[1].Embedding = nil
	if _, err := New("primary", ReviewSchema(), rows); err == nil {
		t.Error("expected error for row without embedding")
	}

	rows = validRows()
	rows[1].Embedding = []float32{1, 2, 3}
	if _, err := New("primary", ReviewSchema(), rows); err == nil {
		t.Error("expected error for mixed dimensions")
	}
}

func TestUnzip(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "index.zip")

	writeZip(t, archivePath, map[string]string{
		"index/docstore.json":    `{"a": "text"}`,
		"index/vectorstore.json": `{"a": [1.0, 0.0]}`,
	})

	destDir := filepath.Join(dir, "out")
	if err := Unzip(archivePath, destDir); err != nil {
		t.Fatalf("Unzip: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(destDir, "index", "docstore.json"))
	if err != nil {
		t.Fatalf("extracted file missing: %v", err)
	}
	if string(data) != `{"a": "text"}` {
		t.Errorf("unexpected content %q", data)
	}
}

func TestUnzipRejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "evil.zip")

	writeZip(t, archivePath, map[string]string{
		"../escaped.txt": "should not land outside",
	})

	if err := Unzip(archivePath, filepath.Join(dir, "out")); err == nil {
		t.Fatal("expected error for path traversal entry")
	}
}

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()

	out, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()

	w := zip.NewWriter(out)
	for name, content := range entries {
		f, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}
