package models

import (
	"time"

	"gorm.io/datatypes"
)

// Document is one docstore document when the postgres backend is selected.
type Document struct {
	Path       string         `gorm:"primaryKey;size:512" json:"path"`
	Collection string         `gorm:"size:512;not null;index" json:"collection"`
	DocID      string         `gorm:"size:255;not null" json:"doc_id"`
	Data       datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'" json:"data"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (Document) TableName() string {
	return "documents"
}
