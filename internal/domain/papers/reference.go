package papers

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	CategoryFoundational = "foundational"
	CategoryRecent       = "recent"
	CategoryGap          = "gap"
)

func ValidCategory(c string) bool {
	return c == CategoryFoundational || c == CategoryRecent || c == CategoryGap
}

type Reference struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ResearchIdeaID uuid.UUID      `gorm:"type:uuid;not null;index" json:"research_idea_id"`
	Title          string         `gorm:"column:title;not null" json:"title"`
	Authors        datatypes.JSON `gorm:"column:authors;type:jsonb" json:"authors"`
	Year           *int           `gorm:"column:year" json:"year,omitempty"`
	Venue          string         `gorm:"column:venue" json:"venue,omitempty"`
	Abstract       string         `gorm:"column:abstract" json:"abstract,omitempty"`
	URL            string         `gorm:"column:url" json:"url,omitempty"`
	Citations      int            `gorm:"column:citations" json:"citations"`
	Source         string         `gorm:"column:source" json:"source,omitempty"`
	Category       string         `gorm:"column:category;not null" json:"category"`
	Summary        string         `gorm:"column:summary" json:"summary"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
}

func (Reference) TableName() string { return "reference" }

func (r *Reference) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
