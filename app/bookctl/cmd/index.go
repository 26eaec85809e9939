package cmd

import (
	"context"

	"github.com/yoockh/bookbot/config"
	"github.com/yoockh/bookbot/internal/bootstrap"
	"github.com/yoockh/bookbot/internal/catalog"
	"github.com/yoockh/bookbot/internal/providers/llm"
	"github.com/yoockh/bookbot/internal/services"
	"github.com/yoockh/bookbot/internal/vectorindex"
)

// openIndex connects the embedder and index named in settings. The memory
// index starts empty, so it is filled from booksPath first.
func openIndex(ctx context.Context, booksPath string) (llm.Embedder, vectorindex.Index, func(), error) {
	if err := settings.ValidateIndexer(); err != nil {
		return nil, nil, nil, err
	}
	cleanup := func() {}
	if settings.VectorIndex == config.IndexPGVector {
		if err := config.InitPostgres(settings.PostgresURI); err != nil {
			return nil, nil, nil, err
		}
		cleanup = config.ClosePostgres
	}

	emb := bootstrap.OpenAI(settings)
	idx, err := bootstrap.VectorIndex(ctx, settings, config.PostgresDB)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}

	if settings.VectorIndex == config.IndexMemory && booksPath != "" {
		cat, err := catalog.Load(booksPath)
		if err != nil {
			cleanup()
			return nil, nil, nil, err
		}
		if _, err := services.NewIngestService(emb, idx, 0, 0, log).Load(ctx, cat.Books()); err != nil {
			cleanup()
			return nil, nil, nil, err
		}
	}
	return emb, idx, cleanup, nil
}
