package papers

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Paper is immutable after upload; one paper may have many analyses.
type Paper struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title      string         `gorm:"column:title" json:"title"`
	Authors    datatypes.JSON `gorm:"column:authors;type:jsonb" json:"authors"`
	Year       *int           `gorm:"column:year" json:"year,omitempty"`
	Venue      string         `gorm:"column:venue" json:"venue,omitempty"`
	Filename   string         `gorm:"column:filename;not null" json:"filename"`
	MimeType   string         `gorm:"column:mime_type" json:"mime_type"`
	SizeBytes  int64          `gorm:"column:size_bytes" json:"size_bytes"`
	PageCount  int            `gorm:"column:page_count" json:"page_count"`
	StorageKey string         `gorm:"column:storage_key;not null" json:"storage_key"`
	SHA256     string         `gorm:"column:sha256;index" json:"sha256"`
	CreatedAt  time.Time      `gorm:"not null;index" json:"uploaded_at"`
	UpdatedAt  time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Paper) TableName() string { return "paper" }

func (p *Paper) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PaperSummary is a listing row.
type PaperSummary struct {
	Paper
	AnalysisCount int64 `json:"analysis_count"`
}
