package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ProfileStatusPending = "pending"
	ProfileStatusReady   = "ready"
	ProfileStatusError   = "error"
)

var ExperienceLevels = []string{"undergraduate", "masters", "phd", "postdoc", "faculty", "industry"}

type UserProfile struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Description     string         `gorm:"column:description" json:"description,omitempty"`
	ExperienceLevel string         `gorm:"column:experience_level" json:"experience_level,omitempty"`
	ScholarURL      string         `gorm:"column:scholar_url" json:"scholar_url,omitempty"`
	ScholarData     datatypes.JSON `gorm:"column:scholar_data;type:jsonb" json:"scholar_data,omitempty"`
	Profile         datatypes.JSON `gorm:"column:profile;type:jsonb" json:"profile,omitempty"`
	Status          string         `gorm:"column:status;not null;default:'pending'" json:"profile_status"`
	Error           string         `gorm:"column:error" json:"error,omitempty"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
}

func (UserProfile) TableName() string { return "user_profile" }

func (p *UserProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = ProfileStatusPending
	}
	return nil
}

// StructuredProfile is the builder's output and the personalization input
// for reading and scoring.
type StructuredProfile struct {
	ExpertiseLevel  string   `json:"expertise_level"`
	ResearchAreas   []string `json:"research_areas"`
	SpecificTopics  []string `json:"specific_topics"`
	TechnicalSkills []string `json:"technical_skills"`
	ResearchStyle   string   `json:"research_style"`
	ResourceAccess  string   `json:"resource_access"`
	NoveltyWeight   float64  `json:"novelty_weight"`
	DoabilityWeight float64  `json:"doability_weight"`
}

// ScholarProfile is the scraped Google Scholar page.
type ScholarProfile struct {
	ScholarID      string               `json:"scholar_id"`
	Name           string               `json:"name"`
	Affiliation    string               `json:"affiliation"`
	Interests      []string             `json:"interests"`
	HIndex         int                  `json:"h_index"`
	TotalCitations int                  `json:"total_citations"`
	Publications   []ScholarPublication `json:"publications"`
}

type ScholarPublication struct {
	Title     string `json:"title"`
	Authors   string `json:"authors"`
	Venue     string `json:"venue"`
	Year      int    `json:"year,omitempty"`
	Citations int    `json:"citations"`
}
