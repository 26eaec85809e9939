package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/yoockh/bookbot/internal/catalog"
	"github.com/yoockh/bookbot/internal/vectorindex"
)

type lengthEmbedder struct {
	calls atomic.Int32
	fail  bool
}

func (e *lengthEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	if e.fail {
		return nil, errors.New("embedding quota exceeded")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), float32(strings.Count(t, " "))}
	}
	return out, nil
}

func sampleBooks(n int) []catalog.Book {
	books := make([]catalog.Book, n)
	for i := range books {
		books[i] = catalog.Book{
			ID:       catalog.FlexString(fmt.Sprint(i + 1)),
			Title:    fmt.Sprintf("Book %d", i+1),
			Summary:  strings.Repeat("word ", i+1),
			Genre:    []string{"Drama"},
			Tone:     []string{"Calm"},
			Audience: "Adult",
		}
	}
	return books
}

func TestIngestLoadsAllBatches(t *testing.T) {
	emb := &lengthEmbedder{}
	idx := vectorindex.NewMemory(2)
	svc := NewIngestService(emb, idx, 3, 2, nil)

	n, err := svc.Load(context.Background(), sampleBooks(10))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if n != 10 {
		t.Fatalf("loaded = %d", n)
	}
	if got := emb.calls.Load(); got != 4 {
		t.Fatalf("embed calls = %d, want 4 batches", got)
	}
	count, _ := idx.Count(context.Background())
	if count != 10 {
		t.Fatalf("index count = %d", count)
	}

	// reloading replaces rather than duplicates
	if _, err := svc.Load(context.Background(), sampleBooks(10)); err != nil {
		t.Fatalf("reload: %v", err)
	}
	count, _ = idx.Count(context.Background())
	if count != 10 {
		t.Fatalf("index count after reload = %d", count)
	}
}

func TestIngestStopsOnEmbedFailure(t *testing.T) {
	svc := NewIngestService(&lengthEmbedder{fail: true}, vectorindex.NewMemory(2), 5, 1, nil)
	n, err := svc.Load(context.Background(), sampleBooks(6))
	if err == nil || !strings.Contains(err.Error(), "embedding quota exceeded") {
		t.Fatalf("expected embed error, got %v", err)
	}
	if n != 0 {
		t.Fatalf("loaded = %d, want 0", n)
	}
}
