package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeEmbedder struct {
	calls [][]string
}

func (f *fakeEmbedder) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = []float32{float32(len(texts[i])), 1}
	}
	return embeddings, nil
}

const sampleHTML = `<html>
<head><style>body { color: red; }</style></head>
<body>
<nav>Home | About</nav>
<script>console.log("noise")</script>
<p>Retrieval systems index documents as embeddings. Queries are matched against them.</p>
<p>Retrieval quality determines answer quality. Evaluate it continuously.</p>
<footer>Copyright</footer>
</body>
</html>`

func TestChunkDocumentStripsMarkup(t *testing.T) {
	p := NewProcessor(&fakeEmbedder{}, 1000, 0)

	chunks, err := p.ChunkDocument(sampleHTML)
	if err != nil {
		t.Fatalf("ChunkDocument: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}

	for _, fragment := range []string{"console.log", "color: red", "Home | About", "Copyright"} {
		if strings.Contains(chunks[0], fragment) {
			t.Errorf("chunk still contains %q", fragment)
		}
	}
	if !strings.Contains(chunks[0], "Retrieval systems index documents as embeddings.") {
		t.Errorf("chunk lost body text: %q", chunks[0])
	}
}

func TestChunkDocumentSplitsWithOverlap(t *testing.T) {
	var sentences []string
	for i := 0; i < 8; i++ {
		sentences = append(sentences, fmt.Sprintf("Sentence number %d carries some content.", i))
	}
	html := "<html><body><p>" + strings.Join(sentences, " ") + "</p></body></html>"

	p := NewProcessor(&fakeEmbedder{}, 120, 45)

	chunks, err := p.ChunkDocument(html)
	if err != nil {
		t.Fatalf("ChunkDocument: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i, chunk := range chunks {
		if len(chunk) > 120+45 {
			t.Errorf("chunk %d too large: %d chars", i, len(chunk))
		}
	}

	// Each chunk after the first starts with the tail of its predecessor.
	for i := 1; i < len(chunks); i++ {
		first := strings.SplitAfter(chunks[i], ".")[0]
		if !strings.Contains(chunks[i-1], first) {
			t.Errorf("chunk %d does not overlap its predecessor: %q", i, first)
		}
	}
}

func TestProcessDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "doc.html"), sampleHTML)
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored, not html")

	embedder := &fakeEmbedder{}
	p := NewProcessor(embedder, 1000, 0)

	corpus, err := p.ProcessDirectory(context.Background(), dir)
	if err != nil {
		t.Fatalf("ProcessDirectory: %v", err)
	}
	if corpus.Len() != 1 {
		t.Errorf("expected 1 record, got %d", corpus.Len())
	}
	if len(embedder.calls) != 1 {
		t.Fatalf("expected a single batch embedding call, got %d", len(embedder.calls))
	}

	for _, r := range corpus.Records() {
		if r.ID == "" || len(r.Embedding) != 2 {
			t.Errorf("malformed record %+v", r)
		}
	}
}

func TestProcessDirectoryEmpty(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "empty.html"), "<html><body></body></html>")

	p := NewProcessor(&fakeEmbedder{}, 1000, 0)
	if _, err := p.ProcessDirectory(context.Background(), dir); err == nil {
		t.Fatal("expected error when no content is extracted")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
