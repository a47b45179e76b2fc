package papers

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AnalysisStatus string

const (
	StatusUploaded   AnalysisStatus = "uploaded"
	StatusParsing    AnalysisStatus = "parsing"
	StatusReading    AnalysisStatus = "reading"
	StatusIdeasReady AnalysisStatus = "ideas_ready"
	StatusSearching  AnalysisStatus = "searching"
	StatusComplete   AnalysisStatus = "complete"
	StatusError      AnalysisStatus = "error"
)

// Only these forward edges exist; error is reachable from every
// non-terminal state.
var transitions = map[AnalysisStatus][]AnalysisStatus{
	StatusUploaded:   {StatusParsing},
	StatusParsing:    {StatusReading},
	StatusReading:    {StatusIdeasReady},
	StatusIdeasReady: {StatusSearching},
	StatusSearching:  {StatusComplete},
}

func (s AnalysisStatus) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// Running reports whether a worker owns the analysis in this state.
func (s AnalysisStatus) Running() bool {
	switch s {
	case StatusParsing, StatusReading, StatusSearching:
		return true
	default:
		return false
	}
}

func (s AnalysisStatus) Valid() bool {
	_, ok := transitions[s]
	return ok || s.Terminal()
}

func CanTransition(from, to AnalysisStatus) bool {
	if from.Terminal() {
		return false
	}
	if to == StatusError {
		return from.Valid()
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Nominal progress floors per state.
var progressFloor = map[AnalysisStatus]int{
	StatusUploaded:   0,
	StatusParsing:    10,
	StatusReading:    20,
	StatusIdeasReady: 50,
	StatusSearching:  50,
	StatusComplete:   100,
}

func ProgressFloor(s AnalysisStatus) int { return progressFloor[s] }

type Analysis struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	PaperID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"paper_id"`
	Paper       *Paper     `gorm:"constraint:OnDelete:CASCADE;foreignKey:PaperID;references:ID" json:"paper,omitempty"`
	UserID      *uuid.UUID `gorm:"type:uuid;column:user_id;index" json:"user_id,omitempty"`

	Topics          datatypes.JSON `gorm:"column:topics;type:jsonb" json:"topics"`
	ProfileSnapshot datatypes.JSON `gorm:"column:profile_snapshot;type:jsonb" json:"profile_snapshot,omitempty"`
	Extraction      datatypes.JSON `gorm:"column:extraction;type:jsonb" json:"extraction,omitempty"`
	CandidateIdeas  datatypes.JSON `gorm:"column:candidate_ideas;type:jsonb" json:"candidate_ideas,omitempty"`
	SelectedIdeas   datatypes.JSON `gorm:"column:selected_ideas;type:jsonb" json:"selected_ideas,omitempty"`
	Diversity       datatypes.JSON `gorm:"column:diversity;type:jsonb" json:"diversity,omitempty"`

	Status       AnalysisStatus `gorm:"column:status;not null;index" json:"status"`
	Progress     int            `gorm:"column:progress;not null;default:0" json:"progress"`
	ErrorKind    string         `gorm:"column:error_kind" json:"error_kind,omitempty"`
	ErrorMessage string         `gorm:"column:error_message" json:"error_message,omitempty"`
	JobID        *uuid.UUID     `gorm:"type:uuid;column:job_id" json:"job_id,omitempty"`

	StartedAt   *time.Time `gorm:"column:started_at;index" json:"started_at,omitempty"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

func (Analysis) TableName() string { return "analysis" }

func (a *Analysis) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = StatusUploaded
	}
	return nil
}

// Extraction is the structured reading of a paper.
type Extraction struct {
	Summary     string   `json:"summary"`
	Concepts    []string `json:"concepts"`
	Findings    []string `json:"findings"`
	Limitations []string `json:"limitations"`
	Datasets    []string `json:"datasets"`
	FutureWork  []string `json:"future_work"`
}

// CandidateIdea is one generated follow-up direction, before scoring.
type CandidateIdea struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Rationale   string   `json:"rationale"`
	TopicTags   []string `json:"topic_tags"`
}

// DiversityReport records what the post-ranking duplicate check did.
type DiversityReport struct {
	Checked      bool     `json:"checked"`
	Duplicates   [][2]int `json:"duplicates,omitempty"`
	Replacements int      `json:"replacements"`
	Note         string   `json:"note,omitempty"`
}
