package vectorindex

import (
	"context"
	"math"
	"sort"
	"sync"
)

// Memory is a brute-force index kept in process. It backs tests and local
// runs without Postgres.
type Memory struct {
	mu   sync.RWMutex
	dim  int
	docs []Document
	pos  map[string]int
}

func NewMemory(dim int) *Memory {
	return &Memory{dim: dim, pos: map[string]int{}}
}

func (m *Memory) Upsert(ctx context.Context, docs []Document) error {
	for _, d := range docs {
		if err := checkDim(m.dim, d.Embedding); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range docs {
		d.Embedding = append([]float32(nil), d.Embedding...)
		if i, ok := m.pos[d.ID]; ok {
			m.docs[i] = d
			continue
		}
		m.pos[d.ID] = len(m.docs)
		m.docs = append(m.docs, d)
	}
	return nil
}

func (m *Memory) Query(ctx context.Context, embedding []float32, k int) ([]Match, error) {
	if err := checkDim(m.dim, embedding); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []Match{}, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Match, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, Match{
			ID:       ID(d.ID),
			Title:    d.Title,
			Document: d.Text,
			Distance: l2(d.Embedding, embedding),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if k < len(out) {
		out = out[:k]
	}
	return out, nil
}

func (m *Memory) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.docs)), nil
}

func l2(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
