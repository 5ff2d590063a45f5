package model

import "time"

// FAQDocument is maintained by clinic staff; ingestion only reads it.
type FAQDocument struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Source    string    `gorm:"type:text;not null" json:"source"`
	Category  string    `gorm:"size:64;index" json:"category"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (FAQDocument) TableName() string { return "faq_documents" }
