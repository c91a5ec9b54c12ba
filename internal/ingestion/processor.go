package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jdkato/prose/v2"
	"go.uber.org/zap"

	"github.com/raglens/raglens/internal/index"
	"github.com/raglens/raglens/pkg/logger"
	"github.com/raglens/raglens/pkg/utils"
)

// BatchEmbedder produces one embedding per input text.
type BatchEmbedder interface {
	GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Processor builds a persisted index from raw HTML documents.
type Processor struct {
	embedder     BatchEmbedder
	chunkSize    int
	chunkOverlap int
}

func NewProcessor(embedder BatchEmbedder, chunkSize, chunkOverlap int) *Processor {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	return &Processor{
		embedder:     embedder,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// ProcessDirectory ingests every .html file under dir into a corpus.
func (p *Processor) ProcessDirectory(ctx context.Context, dir string) (*index.Corpus, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var chunks []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".html") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		docChunks, err := p.ChunkDocument(string(content))
		if err != nil {
			logger.Warn("Failed to chunk document", zap.String("path", path), zap.Error(err))
			continue
		}

		logger.Info("Document chunked",
			zap.String("path", path),
			zap.Int("chunks", len(docChunks)),
		)

		chunks = append(chunks, docChunks...)
	}

	if len(chunks) == 0 {
		return nil, fmt.Errorf("no content extracted from %s", dir)
	}

	embeddings, err := p.embedder.GenerateBatchEmbeddings(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, expected %d", len(embeddings), len(chunks))
	}

	records := make([]index.Record, len(chunks))
	for i, text := range chunks {
		records[i] = index.Record{
			ID:        utils.HashString(text),
			Text:      text,
			Embedding: embeddings[i],
		}
	}

	corpus, err := index.NewCorpus(records)
	if err != nil {
		return nil, err
	}

	logger.Info("Corpus built", zap.Int("records", corpus.Len()))

	return corpus, nil
}

// ChunkDocument strips HTML down to text and splits it into overlapping
// sentence-aligned chunks.
func (p *Processor) ChunkDocument(htmlContent string) ([]string, error) {
	text := p.cleanHTML(htmlContent)
	if text == "" {
		return nil, fmt.Errorf("no content extracted from HTML")
	}
	return p.chunkText(text)
}

func (p *Processor) cleanHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	doc.Find("script, style, nav, footer, header, aside").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	text := doc.Find("body").Text()

	text = regexp.MustCompile(`\s+`).ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	return text
}

// chunkText packs whole sentences into chunks of roughly chunkSize
// characters, carrying the trailing sentences of each chunk into the next
// as overlap.
func (p *Processor) chunkText(text string) ([]string, error) {
	doc, err := prose.NewDocument(text, prose.WithTagging(false), prose.WithExtraction(false))
	if err != nil {
		return nil, fmt.Errorf("failed to segment text: %w", err)
	}

	sentences := doc.Sentences()
	if len(sentences) == 0 {
		return nil, nil
	}

	var chunks []string
	var current []string
	currentSize := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, " "))

		// Keep trailing sentences up to the overlap budget.
		var kept []string
		keptSize := 0
		for i := len(current) - 1; i >= 0; i-- {
			size := len(current[i]) + 1
			if keptSize+size > p.chunkOverlap {
				break
			}
			kept = append([]string{current[i]}, kept...)
			keptSize += size
		}
		current = kept
		currentSize = keptSize
	}

	for _, sentence := range sentences {
		size := len(sentence.Text) + 1
		if currentSize+size > p.chunkSize && len(current) > 0 {
			flush()
		}
		current = append(current, sentence.Text)
		currentSize += size
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	return chunks, nil
}
