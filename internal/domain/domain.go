package domain

import (
	"github.com/yungbote/paperlens-backend/internal/domain/jobs"
	"github.com/yungbote/paperlens-backend/internal/domain/papers"
	"github.com/yungbote/paperlens-backend/internal/domain/user"
)

type (
	JobRun = jobs.JobRun

	Paper               = papers.Paper
	PaperSummary        = papers.PaperSummary
	Analysis            = papers.Analysis
	AnalysisStatus      = papers.AnalysisStatus
	Extraction          = papers.Extraction
	CandidateIdea       = papers.CandidateIdea
	DiversityReport     = papers.DiversityReport
	ResearchIdea        = papers.ResearchIdea
	Reference           = papers.Reference
	NoveltyAssessment   = papers.NoveltyAssessment
	DoabilityAssessment = papers.DoabilityAssessment
	LiteratureSynthesis = papers.LiteratureSynthesis
	KeyPaper            = papers.KeyPaper

	UserProfile        = user.UserProfile
	StructuredProfile  = user.StructuredProfile
	ScholarProfile     = user.ScholarProfile
	ScholarPublication = user.ScholarPublication
)

const (
	AnalysisUploaded   = papers.StatusUploaded
	AnalysisParsing    = papers.StatusParsing
	AnalysisReading    = papers.StatusReading
	AnalysisIdeasReady = papers.StatusIdeasReady
	AnalysisSearching  = papers.StatusSearching
	AnalysisComplete   = papers.StatusComplete
	AnalysisError      = papers.StatusError
)

func ProgressFloorOf(s AnalysisStatus) int { return papers.ProgressFloor(s) }

func CanTransition(from, to AnalysisStatus) bool { return papers.CanTransition(from, to) }
