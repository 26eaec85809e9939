package vectorindex

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryQueryOrdersByDistance(t *testing.T) {
	idx := NewMemory(3)
	ctx := context.Background()
	err := idx.Upsert(ctx, []Document{
		{ID: "1", Title: "Far", Text: "far away", Embedding: []float32{10, 10, 10}},
		{ID: "2", Title: "Near", Text: "close by", Embedding: []float32{1, 0, 0}},
		{ID: "3", Title: "Middle", Text: "in between", Embedding: []float32{3, 0, 0}},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := idx.Query(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "2" || got[0].Distance != 0 {
		t.Fatalf("first match = %+v", got[0])
	}
	if got[1].ID != "3" || got[1].Distance != 2 {
		t.Fatalf("second match = %+v", got[1])
	}
	if got[0].Document != "close by" || got[0].Title != "Near" {
		t.Fatalf("document fields not carried: %+v", got[0])
	}
}

func TestMemoryUpsertReplacesByID(t *testing.T) {
	idx := NewMemory(2)
	ctx := context.Background()
	_ = idx.Upsert(ctx, []Document{{ID: "a", Title: "Old", Embedding: []float32{0, 1}}})
	_ = idx.Upsert(ctx, []Document{{ID: "a", Title: "New", Embedding: []float32{1, 0}}})

	n, _ := idx.Count(ctx)
	if n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}
	got, err := idx.Query(ctx, []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0].Title != "New" || got[0].Distance != 0 {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestMemoryRejectsWrongDimension(t *testing.T) {
	idx := NewMemory(3)
	err := idx.Upsert(context.Background(), []Document{{ID: "x", Embedding: []float32{1, 2}}})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected dimension error, got %v", err)
	}
	if _, err := idx.Query(context.Background(), []float32{1}, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected dimension error on query, got %v", err)
	}
}

func TestMemoryQueryHonoursCancellation(t *testing.T) {
	idx := NewMemory(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := idx.Query(ctx, []float32{1}, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
