package handlers

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/paperlens-backend/internal/domain"
	"github.com/yungbote/paperlens-backend/internal/services"
)

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type statusView struct {
	AnalysisID  uuid.UUID            `json:"analysis_id"`
	PaperID     uuid.UUID            `json:"paper_id"`
	Status      types.AnalysisStatus `json:"status"`
	Progress    int                  `json:"progress"`
	JobID       *uuid.UUID           `json:"job_id,omitempty"`
	Error       *errorDetail         `json:"error"`
	StartedAt   *time.Time           `json:"started_at,omitempty"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
}

func newStatusView(a *types.Analysis) statusView {
	v := statusView{
		AnalysisID:  a.ID,
		PaperID:     a.PaperID,
		Status:      a.Status,
		Progress:    a.Progress,
		JobID:       a.JobID,
		StartedAt:   a.StartedAt,
		CompletedAt: a.CompletedAt,
	}
	if a.Status == types.AnalysisError {
		v.Error = &errorDetail{Kind: a.ErrorKind, Message: a.ErrorMessage}
	}
	return v
}

type candidateView struct {
	Index int `json:"index"`
	types.CandidateIdea
}

type resultsView struct {
	Ready        bool                   `json:"ready"`
	AnalysisID   uuid.UUID              `json:"analysis_id"`
	Status       types.AnalysisStatus   `json:"status"`
	Progress     int                    `json:"progress"`
	Error        *errorDetail           `json:"error,omitempty"`
	Filename     string                 `json:"filename,omitempty"`
	Title        string                 `json:"title,omitempty"`
	PaperSummary string                 `json:"paper_summary,omitempty"`
	Extraction   *types.Extraction      `json:"extraction,omitempty"`
	Topics       []string               `json:"topics,omitempty"`
	Candidates   []candidateView        `json:"candidate_ideas,omitempty"`
	Ideas        []*types.ResearchIdea  `json:"ideas,omitempty"`
	Diversity    *types.DiversityReport `json:"diversity,omitempty"`
}

func newResultsView(r *services.AnalysisResults) resultsView {
	a := r.Analysis
	v := resultsView{
		Ready:      r.Ready,
		AnalysisID: a.ID,
		Status:     a.Status,
		Progress:   a.Progress,
		Topics:     decodeStrings(a.Topics),
	}
	if a.Status == types.AnalysisError {
		v.Error = &errorDetail{Kind: a.ErrorKind, Message: a.ErrorMessage}
	}
	if !r.Ready {
		return v
	}
	if r.Paper != nil {
		v.Filename = r.Paper.Filename
		v.Title = r.Paper.Title
	}
	if r.Extraction != nil {
		v.Extraction = r.Extraction
		v.PaperSummary = r.Extraction.Summary
	}
	for i, c := range r.Candidates {
		v.Candidates = append(v.Candidates, candidateView{Index: i, CandidateIdea: c})
	}
	v.Ideas = r.Ranked
	v.Diversity = r.Diversity
	return v
}

type profileView struct {
	UserID          uuid.UUID       `json:"user_id"`
	Description     string          `json:"description,omitempty"`
	ExperienceLevel string          `json:"experience_level,omitempty"`
	ScholarURL      string          `json:"scholar_url,omitempty"`
	Status          string          `json:"profile_status"`
	Profile         json.RawMessage `json:"profile,omitempty"`
	ScholarData     json.RawMessage `json:"scholar_data,omitempty"`
	Error           string          `json:"error,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func newProfileView(p *types.UserProfile) profileView {
	return profileView{
		UserID:          p.ID,
		Description:     p.Description,
		ExperienceLevel: p.ExperienceLevel,
		ScholarURL:      p.ScholarURL,
		Status:          p.Status,
		Profile:         rawJSON(p.Profile),
		ScholarData:     rawJSON(p.ScholarData),
		Error:           p.Error,
		UpdatedAt:       p.UpdatedAt,
	}
}

func rawJSON(j datatypes.JSON) json.RawMessage {
	if len(j) == 0 || string(j) == "null" {
		return nil
	}
	return json.RawMessage(j)
}

func decodeStrings(j datatypes.JSON) []string {
	var out []string
	if len(j) == 0 {
		return out
	}
	_ = json.Unmarshal(j, &out)
	return out
}
