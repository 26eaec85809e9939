// Package tools exposes the book search and summary lookups that the chat
// model may call, together with their JSON schemas.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/yoockh/bookbot/internal/providers/llm"
	"github.com/yoockh/bookbot/internal/vectorindex"
)

const (
	SearchBooks    = "search_books"
	GetBookSummary = "get_book_summary"

	DefaultK = 4
	MinK     = 1
	MaxK     = 10
)

type SummaryLookup interface {
	Summary(title string) (string, bool)
}

type SearchResult struct {
	Results []vectorindex.Match `json:"results"`
}

type SummaryResult struct {
	Title   string  `json:"title"`
	Summary *string `json:"summary"`
}

type errorResult struct {
	Error string `json:"error"`
}

// Dispatcher executes tool calls by name.
type Dispatcher struct {
	embedder  llm.Embedder
	index     vectorindex.Index
	summaries SummaryLookup
}

func NewDispatcher(embedder llm.Embedder, index vectorindex.Index, summaries SummaryLookup) *Dispatcher {
	return &Dispatcher{embedder: embedder, index: index, summaries: summaries}
}

func (d *Dispatcher) Definitions() []llm.Tool {
	return []llm.Tool{
		{
			Name:        SearchBooks,
			Description: "Semantic search over the book catalog.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{"type": "string", "description": "What the user is looking for."},
					"k":     map[string]any{"type": "integer", "default": DefaultK, "minimum": MinK, "maximum": MaxK},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        GetBookSummary,
			Description: "Return the full summary for an exact title.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title": map[string]any{"type": "string"},
				},
				"required": []string{"title"},
			},
		},
	}
}

// Call runs the named tool and returns its JSON payload. A failing tool
// yields {"error": "..."} with failed set, never a Go error, so the model
// can see what went wrong.
func (d *Dispatcher) Call(ctx context.Context, name, arguments string) (payload string, failed bool) {
	result, err := d.call(ctx, name, arguments)
	if err != nil {
		result = errorResult{Error: err.Error()}
		failed = true
	}
	b, merr := json.Marshal(result)
	if merr != nil {
		b, _ = json.Marshal(errorResult{Error: merr.Error()})
		failed = true
	}
	return string(b), failed
}

func (d *Dispatcher) call(ctx context.Context, name, arguments string) (any, error) {
	switch name {
	case SearchBooks:
		var args struct {
			Query string          `json:"query"`
			K     json.RawMessage `json:"k"`
		}
		if err := decode(arguments, &args); err != nil {
			return nil, err
		}
		k, err := parseK(args.K)
		if err != nil {
			return nil, err
		}
		return d.SearchBooks(ctx, args.Query, k)
	case GetBookSummary:
		var args struct {
			Title string `json:"title"`
		}
		if err := decode(arguments, &args); err != nil {
			return nil, err
		}
		return d.GetBookSummary(args.Title), nil
	default:
		return nil, fmt.Errorf("unknown tool %q", name)
	}
}

func (d *Dispatcher) SearchBooks(ctx context.Context, query string, k int) (SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return SearchResult{}, errors.New("query is required")
	}
	k = clampK(k)

	vecs, err := d.embedder.Embed(ctx, []string{query})
	if err != nil {
		return SearchResult{}, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return SearchResult{}, fmt.Errorf("embed query: got %d vectors", len(vecs))
	}
	matches, err := d.index.Query(ctx, vecs[0], k)
	if err != nil {
		return SearchResult{}, fmt.Errorf("query index: %w", err)
	}
	if matches == nil {
		matches = []vectorindex.Match{}
	}
	return SearchResult{Results: matches}, nil
}

// GetBookSummary never fails: an unknown title has a nil summary.
func (d *Dispatcher) GetBookSummary(title string) SummaryResult {
	out := SummaryResult{Title: title}
	if s, ok := d.summaries.Summary(title); ok {
		out.Summary = &s
	}
	return out
}

// parseK accepts k as an integer, a float such as 4.0, or a numeric
// string. Fractions are truncated; absent or null means DefaultK.
func parseK(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return DefaultK, nil
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, fmt.Errorf("invalid arguments: k: %w", err)
		}
		text = strings.TrimSpace(text)
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid arguments: k must be a number, got %s", raw)
	}
	// bound before converting so huge values cannot overflow int
	return clampK(int(math.Max(math.Min(f, MaxK), MinK-1))), nil
}

func clampK(k int) int {
	switch {
	case k < MinK:
		return MinK
	case k > MaxK:
		return MaxK
	default:
		return k
	}
}

func decode(arguments string, v any) error {
	if strings.TrimSpace(arguments) == "" {
		arguments = "{}"
	}
	if err := json.Unmarshal([]byte(arguments), v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
