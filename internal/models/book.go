package models

import (
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// Book is one indexed catalog entry. Document holds the text that was
// embedded; Metadata keeps the remaining source fields as JSON.
type Book struct {
	ID        string          `gorm:"column:id;type:text;primaryKey" json:"id"`
	Title     string          `gorm:"column:title;type:text;index" json:"title"`
	Author    string          `gorm:"column:author;type:text" json:"author"`
	Genre     pq.StringArray  `gorm:"column:genre;type:text[]" json:"genre"`
	Tone      pq.StringArray  `gorm:"column:tone;type:text[]" json:"tone"`
	Document  string          `gorm:"column:document;type:text" json:"document"`
	Embedding pgvector.Vector `gorm:"column:embedding;type:vector(1536)" json:"-"`
	Metadata  datatypes.JSON  `gorm:"column:metadata;type:jsonb" json:"metadata"`
}

func (Book) TableName() string { return "books" }
