package milvus

import (
	"context"
	"testing"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/raglens/raglens/internal/index"
)

// fakeMilvus models the key-replacing semantics of upsert: a record id maps
// to exactly one stored row no matter how often it is written. Embedding
// client.Client keeps the unused interface surface out of the test.
type fakeMilvus struct {
	client.Client
	rows map[string]string
}

func (f *fakeMilvus) Upsert(ctx context.Context, collName string, partitionName string, columns ...entity.Column) (entity.Column, error) {
	var ids, texts []string
	for _, col := range columns {
		switch col.Name() {
		case "record_id":
			ids = col.(*entity.ColumnVarChar).Data()
		case "text":
			texts = col.(*entity.ColumnVarChar).Data()
		}
	}
	for i, id := range ids {
		f.rows[id] = texts[i]
	}
	return nil, nil
}

func (f *fakeMilvus) Flush(ctx context.Context, collName string, async bool, opts ...client.FlushOption) error {
	return nil
}

func TestSyncIsIdempotent(t *testing.T) {
	corpus, err := index.NewCorpus([]index.Record{
		{ID: "c-1", Text: "chunk one", Embedding: []float32{1, 0}},
		{ID: "c-2", Text: "chunk two", Embedding: []float32{0, 1}},
	})
	if err != nil {
		t.Fatal(err)
	}

	fake := &fakeMilvus{rows: map[string]string{}}
	m := &Client{client: fake, collectionName: "corpus", vectorDim: 2}

	// A second sync of the same corpus, as on every process start, must not
	// grow the collection.
	for i := 0; i < 2; i++ {
		if err := m.Sync(context.Background(), corpus); err != nil {
			t.Fatalf("Sync #%d: %v", i+1, err)
		}
	}

	if len(fake.rows) != 2 {
		t.Fatalf("expected 2 stored rows after re-sync, got %d", len(fake.rows))
	}
	if fake.rows["c-1"] != "chunk one" || fake.rows["c-2"] != "chunk two" {
		t.Errorf("unexpected stored rows %v", fake.rows)
	}
}

func TestSyncEmptyCorpus(t *testing.T) {
	fake := &fakeMilvus{rows: map[string]string{}}
	m := &Client{client: fake, collectionName: "corpus", vectorDim: 2}

	corpus := &index.Corpus{}
	if err := m.Sync(context.Background(), corpus); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(fake.rows) != 0 {
		t.Errorf("expected no rows, got %d", len(fake.rows))
	}
}
