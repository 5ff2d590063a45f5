package model

import (
	"encoding/json"
	"time"

	"github.com/pgvector/pgvector-go"
)

// FAQChunk is the pgvector row layout of faq_chunks.
type FAQChunk struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	DocumentID     uint            `gorm:"not null;index" json:"document_id"`
	Content        string          `gorm:"type:text;not null" json:"content"`
	Embedding      pgvector.Vector `gorm:"type:vector;not null" json:"-"`
	EmbeddingModel string          `gorm:"size:128;not null;index" json:"embedding_model"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (FAQChunk) TableName() string { return "faq_chunks" }

// PortableChunk is the faq_chunks layout for databases without a vector
// type. Embedding holds a JSON array of float32.
type PortableChunk struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	DocumentID     uint      `gorm:"not null;index" json:"document_id"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	Embedding      string    `gorm:"type:longtext;not null" json:"-"`
	EmbeddingModel string    `gorm:"size:128;not null;index" json:"embedding_model"`
	CreatedAt      time.Time `json:"created_at"`
}

func (PortableChunk) TableName() string { return "faq_chunks" }

// EmbeddingVector returns nil when the stored JSON cannot be parsed.
func (c *PortableChunk) EmbeddingVector() []float32 {
	if c.Embedding == "" {
		return nil
	}
	var v []float32
	if err := json.Unmarshal([]byte(c.Embedding), &v); err != nil {
		return nil
	}
	return v
}

func (c *PortableChunk) SetEmbedding(vec []float32) {
	if len(vec) == 0 {
		c.Embedding = "[]"
		return
	}
	b, _ := json.Marshal(vec)
	c.Embedding = string(b)
}
