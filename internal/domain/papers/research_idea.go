package papers

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ResearchIdea struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AnalysisID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_research_idea_analysis_rank,priority:1" json:"analysis_id"`
	Rank       int       `gorm:"column:rank;not null;uniqueIndex:idx_research_idea_analysis_rank,priority:2" json:"rank"`
	// SourceIndex is the position in the analysis' candidate list.
	SourceIndex int `gorm:"column:source_index;not null" json:"source_index"`

	Title       string         `gorm:"column:title;not null" json:"title"`
	Description string         `gorm:"column:description" json:"description"`
	Rationale   string         `gorm:"column:rationale" json:"rationale"`
	TopicTags   datatypes.JSON `gorm:"column:topic_tags;type:jsonb" json:"topic_tags"`

	NoveltyScore    float64 `gorm:"column:novelty_score" json:"novelty_score"`
	DoabilityScore  float64 `gorm:"column:doability_score" json:"doability_score"`
	TopicMatchScore float64 `gorm:"column:topic_match_score" json:"topic_match_score"`
	CompositeScore  float64 `gorm:"column:composite_score;index" json:"composite_score"`

	NoveltyAssessment   datatypes.JSON `gorm:"column:novelty_assessment;type:jsonb" json:"novelty_assessment"`
	DoabilityAssessment datatypes.JSON `gorm:"column:doability_assessment;type:jsonb" json:"doability_assessment"`
	LiteratureSynthesis datatypes.JSON `gorm:"column:literature_synthesis;type:jsonb" json:"literature_synthesis"`

	SearchFailed bool   `gorm:"column:search_failed;not null;default:false" json:"search_failed"`
	SearchError  string `gorm:"column:search_error" json:"search_error,omitempty"`

	References []Reference `gorm:"foreignKey:ResearchIdeaID;constraint:OnDelete:CASCADE" json:"references,omitempty"`
	CreatedAt  time.Time   `gorm:"not null" json:"created_at"`
}

func (ResearchIdea) TableName() string { return "research_idea" }

func (r *ResearchIdea) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

type NoveltyAssessment struct {
	Explored     string  `json:"explored"`
	Maturity     string  `json:"maturity"`
	Gap          string  `json:"gap"`
	NoveltyScore float64 `json:"novelty_score"`
	// LiteratureMissing is set when the search for this idea failed and
	// the assessment ran without literature context.
	LiteratureMissing bool `json:"literature_missing,omitempty"`
}

type DoabilityAssessment struct {
	DataAvailability      string  `json:"data_availability"`
	MethodologyComplexity string  `json:"methodology_complexity"`
	Timeline              string  `json:"timeline"`
	ExpertiseLevel        string  `json:"expertise_level"`
	DoabilityScore        float64 `json:"doability_score"`
}

type KeyPaper struct {
	PaperIndex int    `json:"paper_index"`
	Category   string `json:"category"`
	Summary    string `json:"summary"`
}

type LiteratureSynthesis struct {
	Overview          string     `json:"overview"`
	KeyPapers         []KeyPaper `json:"key_papers"`
	WhatsMissing      string     `json:"whats_missing"`
	SuggestedApproach string     `json:"suggested_approach"`
}
