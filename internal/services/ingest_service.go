package services

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/bookbot/internal/catalog"
	"github.com/yoockh/bookbot/internal/logger"
	"github.com/yoockh/bookbot/internal/providers/llm"
	"github.com/yoockh/bookbot/internal/vectorindex"
	"golang.org/x/sync/errgroup"
)

type IngestService interface {
	// Load embeds and upserts books, returning how many were indexed.
	Load(ctx context.Context, books []catalog.Book) (int, error)
}

type ingestService struct {
	embedder    llm.Embedder
	index       vectorindex.Index
	batchSize   int
	concurrency int
	log         *logrus.Logger
}

func NewIngestService(embedder llm.Embedder, index vectorindex.Index, batchSize, concurrency int, log *logrus.Logger) IngestService {
	if batchSize <= 0 {
		batchSize = 64
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	if log == nil {
		log = logger.Discard()
	}
	return &ingestService{embedder: embedder, index: index, batchSize: batchSize, concurrency: concurrency, log: log}
}

func (s *ingestService) Load(ctx context.Context, books []catalog.Book) (int, error) {
	var loaded atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for start := 0; start < len(books); start += s.batchSize {
		end := start + s.batchSize
		if end > len(books) {
			end = len(books)
		}
		batch := books[start:end]
		first := start

		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, b := range batch {
				texts[i] = b.Document()
			}
			vecs, err := s.embedder.Embed(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed batch at %d: %w", first, err)
			}
			if len(vecs) != len(batch) {
				return fmt.Errorf("embed batch at %d: got %d vectors for %d books", first, len(vecs), len(batch))
			}

			docs := make([]vectorindex.Document, len(batch))
			for i, b := range batch {
				docs[i] = vectorindex.Document{
					ID:        string(b.ID),
					Title:     b.Title,
					Author:    b.Author,
					Genre:     b.Genre,
					Tone:      b.Tone,
					Text:      texts[i],
					Metadata:  b.Metadata(),
					Embedding: vecs[i],
				}
			}
			if err := s.index.Upsert(gctx, docs); err != nil {
				return fmt.Errorf("upsert batch at %d: %w", first, err)
			}

			n := loaded.Add(int64(len(batch)))
			s.log.WithFields(logrus.Fields{"batch_start": first, "batch_size": len(batch), "loaded": n}).Info("books indexed")
			return nil
		})
	}

	err := g.Wait()
	return int(loaded.Load()), err
}
