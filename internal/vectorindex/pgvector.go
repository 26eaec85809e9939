package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/yoockh/bookbot/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultDim = 1536

// PGVector keeps documents in the books table and ranks them with the
// pgvector L2 operator.
type PGVector struct {
	db  *gorm.DB
	dim int
}

func NewPGVector(db *gorm.DB, dim int) *PGVector {
	if dim <= 0 {
		dim = defaultDim
	}
	return &PGVector{db: db, dim: dim}
}

// Migrate creates the extension and table, and resizes the embedding column
// when the configured dimension differs from the model default.
func (p *PGVector) Migrate(ctx context.Context) error {
	db := p.db.WithContext(ctx)
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("create pgvector extension: %w", err)
	}
	if err := db.AutoMigrate(&models.Book{}); err != nil {
		return fmt.Errorf("auto migrate books: %w", err)
	}
	if p.dim != defaultDim {
		stmt := fmt.Sprintf("ALTER TABLE books ALTER COLUMN embedding TYPE vector(%d)", p.dim)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("resize embedding column: %w", err)
		}
	}
	return nil
}

func (p *PGVector) Upsert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	rows := make([]models.Book, 0, len(docs))
	for _, d := range docs {
		if err := checkDim(p.dim, d.Embedding); err != nil {
			return fmt.Errorf("book %s: %w", d.ID, err)
		}
		meta, err := json.Marshal(d.Metadata)
		if err != nil {
			return fmt.Errorf("book %s metadata: %w", d.ID, err)
		}
		rows = append(rows, models.Book{
			ID:        d.ID,
			Title:     d.Title,
			Author:    d.Author,
			Genre:     pq.StringArray(d.Genre),
			Tone:      pq.StringArray(d.Tone),
			Document:  d.Text,
			Embedding: pgvector.NewVector(d.Embedding),
			Metadata:  datatypes.JSON(meta),
		})
	}
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "author", "genre", "tone", "document", "embedding", "metadata"}),
	}).Create(&rows).Error
}

type pgHit struct {
	ID       ID
	Title    string
	Document string
	Distance float64
}

func (p *PGVector) Query(ctx context.Context, embedding []float32, k int) ([]Match, error) {
	if err := checkDim(p.dim, embedding); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []Match{}, nil
	}
	vec := pgvector.NewVector(embedding)

	var hits []pgHit
	err := p.db.WithContext(ctx).
		Model(&models.Book{}).
		Select("id, title, document, embedding <-> ? AS distance", vec).
		Where("embedding IS NOT NULL").
		Order("distance").
		Limit(k).
		Scan(&hits).Error
	if err != nil {
		return nil, err
	}

	out := make([]Match, 0, len(hits))
	for _, h := range hits {
		out = append(out, Match(h))
	}
	return out, nil
}

func (p *PGVector) Count(ctx context.Context) (int64, error) {
	var n int64
	err := p.db.WithContext(ctx).Model(&models.Book{}).Count(&n).Error
	return n, err
}
