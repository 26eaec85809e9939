// Package bootstrap turns Settings into the concrete clients both binaries
// share: the model, embedder, image generator, vector index, cover store and
// speech recognizer.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/bookbot/config"
	"github.com/yoockh/bookbot/internal/providers/llm"
	"github.com/yoockh/bookbot/internal/providers/openai"
	"github.com/yoockh/bookbot/internal/providers/stt"
	"github.com/yoockh/bookbot/internal/services"
	"github.com/yoockh/bookbot/internal/storage"
	"github.com/yoockh/bookbot/internal/vectorindex"
	"gorm.io/gorm"
)

// Closers collects clients to shut down in reverse order.
type Closers []io.Closer

func (c *Closers) Add(cl io.Closer) { *c = append(*c, cl) }

func (c Closers) Close() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OpenAI builds the client used for embeddings and images, and for chat when
// LLM_PROVIDER=openai.
func OpenAI(cfg config.Settings) *openai.Client {
	return openai.New(openai.Config{
		BaseURL:        cfg.OpenAIBaseURL,
		APIKey:         cfg.OpenAIAPIKey,
		ChatModel:      cfg.ChatModel,
		EmbeddingModel: cfg.EmbeddingModel,
		ImageModel:     cfg.ImageModel,
	})
}

// ChatModel picks the tool-calling backend.
func ChatModel(ctx context.Context, cfg config.Settings, oa *openai.Client) (llm.Provider, error) {
	switch cfg.LLMProvider {
	case config.ProviderVertex:
		model := cfg.ChatModel
		if model == "" || model == "gpt-4o-mini" {
			model = "gemini-2.0-flash"
		}
		v, err := llm.NewVertexGemini(ctx, cfg.VertexProject, cfg.VertexLocation, model, cfg.GoogleCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("vertex gemini: %w", err)
		}
		return v, nil
	default:
		return oa, nil
	}
}

// VectorIndex opens the configured index. The pgvector index is migrated
// before use; db may be nil only for the memory index.
func VectorIndex(ctx context.Context, cfg config.Settings, db *gorm.DB) (vectorindex.Index, error) {
	switch cfg.VectorIndex {
	case config.IndexMemory:
		return vectorindex.NewMemory(cfg.EmbeddingDim), nil
	default:
		if db == nil {
			return nil, errors.New("pgvector index needs a postgres connection")
		}
		idx := vectorindex.NewPGVector(db, cfg.EmbeddingDim)
		if err := idx.Migrate(ctx); err != nil {
			return nil, err
		}
		return idx, nil
	}
}

// Covers writes to COVER_PATH and, with COVER_BUCKET set, to GCS as well.
// The returned closers own the GCS client.
func Covers(ctx context.Context, cfg config.Settings, log *logrus.Logger, closers *Closers) services.CoverSaver {
	var local storage.Uploader
	localName := ""
	if cfg.CoverPath != "" {
		local = storage.NewLocalDir(filepath.Dir(cfg.CoverPath))
		localName = filepath.Base(cfg.CoverPath)
	}

	var remote storage.Uploader
	if cfg.CoverBucket != "" {
		gcs, err := storage.NewGCSUploader(ctx, cfg.CoverBucket, cfg.GoogleCredentialsFile, false)
		if err != nil {
			log.WithError(err).Warn("GCS cover upload disabled")
		} else {
			closers.Add(gcs)
			remote = gcs
		}
	}

	if local == nil && remote == nil {
		return nil
	}
	return storage.NewCoverStore(local, localName, remote, "covers")
}

// Speech returns nil when Google Speech cannot be reached with the
// configured credentials; /chat/speech then answers 503.
func Speech(ctx context.Context, cfg config.Settings, log *logrus.Logger, closers *Closers) stt.Provider {
	g, err := stt.NewGoogleSpeech(ctx, cfg.GoogleCredentialsFile)
	if err != nil {
		log.WithError(err).Warn("speech recognition disabled")
		return nil
	}
	closers.Add(g)
	return g
}
