package handlers

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

type fakeInvalidator struct {
	calls int
	err   error
}

func (f *fakeInvalidator) InvalidateEmbeddings(ctx context.Context) error {
	f.calls++
	return f.err
}

func cacheApp(invalidator EmbeddingInvalidator) *fiber.App {
	app := fiber.New()
	app.Delete("/api/v1/cache/embeddings", NewCacheHandler(invalidator).FlushEmbeddings)
	return app
}

func TestFlushEmbeddings(t *testing.T) {
	fake := &fakeInvalidator{}
	app := cacheApp(fake)

	resp, err := app.Test(httptest.NewRequest("DELETE", "/api/v1/cache/embeddings", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusOK)
	}
	if fake.calls != 1 {
		t.Errorf("expected 1 invalidation call, got %d", fake.calls)
	}
}

func TestFlushEmbeddingsWithoutCache(t *testing.T) {
	app := cacheApp(nil)

	resp, err := app.Test(httptest.NewRequest("DELETE", "/api/v1/cache/embeddings", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusConflict {
		t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusConflict)
	}
}

func TestFlushEmbeddingsFailure(t *testing.T) {
	fake := &fakeInvalidator{err: fmt.Errorf("connection refused")}
	app := cacheApp(fake)

	resp, err := app.Test(httptest.NewRequest("DELETE", "/api/v1/cache/embeddings", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusInternalServerError)
	}
}
