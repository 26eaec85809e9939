// Package vectorindex stores embedded book documents and answers nearest
// neighbour queries by L2 distance.
package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

type Document struct {
	ID        string
	Title     string
	Author    string
	Genre     []string
	Tone      []string
	Text      string
	Metadata  map[string]any
	Embedding []float32
}

// ID is a book id. Integer ids are written to JSON as numbers, anything
// else as a string.
type ID string

func (id ID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(strconv.FormatInt(n, 10)), nil
	}
	return json.Marshal(string(id))
}

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// Match is one query hit. Smaller Distance is closer.
type Match struct {
	ID       ID      `json:"id"`
	Title    string  `json:"title"`
	Document string  `json:"document"`
	Distance float64 `json:"distance"`
}

type Index interface {
	// Upsert inserts or replaces documents keyed by ID.
	Upsert(ctx context.Context, docs []Document) error
	// Query returns up to k matches ordered by ascending distance.
	Query(ctx context.Context, embedding []float32, k int) ([]Match, error)
	Count(ctx context.Context) (int64, error)
}

var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

func checkDim(dim int, v []float32) error {
	if len(v) == 0 {
		return errors.New("embedding vector is empty")
	}
	if dim > 0 && len(v) != dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), dim)
	}
	return nil
}
