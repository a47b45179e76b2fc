package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/paperlens-backend/internal/data/repos"
	types "github.com/yungbote/paperlens-backend/internal/domain"
	"github.com/yungbote/paperlens-backend/internal/domain/jobs"
	"github.com/yungbote/paperlens-backend/internal/domain/user"
	"github.com/yungbote/paperlens-backend/internal/modules/research"
	"github.com/yungbote/paperlens-backend/internal/pkg/dbctx"
	"github.com/yungbote/paperlens-backend/internal/pkg/errkind"
	pkgerrors "github.com/yungbote/paperlens-backend/internal/pkg/errors"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
)

const maxTopics = 20

type AnalyzeInput struct {
	PaperID uuid.UUID
	// AnalysisID picks an uploaded analysis; nil reuses the paper's latest
	// unstarted analysis or creates one.
	AnalysisID *uuid.UUID
	Topics     []string
	UserID     *uuid.UUID
}

// AnalysisResults is what a client can see of an analysis. Ready is set for
// ideas_ready (raw candidates) and complete (ranked ideas).
type AnalysisResults struct {
	Ready      bool
	Analysis   *types.Analysis
	Paper      *types.Paper
	Extraction *types.Extraction
	Candidates []types.CandidateIdea
	Ranked     []*types.ResearchIdea
	Diversity  *types.DiversityReport
}

type AnalysisService interface {
	// Analyze records topics on an uploaded analysis and enqueues the
	// reader stage.
	Analyze(dbc dbctx.Context, in AnalyzeInput) (*types.Analysis, *types.JobRun, error)
	// Search records the selected candidate ideas, moves the analysis to
	// searching and enqueues the searcher stage. A rejected selection
	// leaves the analysis untouched.
	Search(dbc dbctx.Context, analysisID uuid.UUID, indices []int) (*types.Analysis, *types.JobRun, error)
	GetAnalysis(dbc dbctx.Context, id uuid.UUID) (*types.Analysis, error)
	Results(dbc dbctx.Context, id uuid.UUID) (*AnalysisResults, error)
	ListPapers(dbc dbctx.Context, limit, offset int) ([]*types.PaperSummary, error)
	ListAnalyses(dbc dbctx.Context, paperID uuid.UUID) ([]*types.Analysis, error)
}

type analysisService struct {
	db       *gorm.DB
	log      *logger.Logger
	papers   repos.PaperRepo
	analyses repos.AnalysisRepo
	ideas    repos.ResearchIdeaRepo
	profiles repos.UserProfileRepo
	jobs     JobService
	notify   JobNotifier
}

func NewAnalysisService(
	db *gorm.DB,
	baseLog *logger.Logger,
	r repos.Repos,
	jobService JobService,
	notify JobNotifier,
) AnalysisService {
	return &analysisService{
		db:       db,
		log:      baseLog.With("service", "AnalysisService"),
		papers:   r.Paper,
		analyses: r.Analysis,
		ideas:    r.ResearchIdea,
		profiles: r.UserProfile,
		jobs:     jobService,
		notify:   notify,
	}
}

// NormalizeTopics trims, drops blanks and removes case-insensitive repeats,
// keeping first-seen order.
func NormalizeTopics(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]bool{}
	for _, t := range in {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

func (s *analysisService) Analyze(dbc dbctx.Context, in AnalyzeInput) (*types.Analysis, *types.JobRun, error) {
	topics := NormalizeTopics(in.Topics)
	if len(topics) == 0 {
		return nil, nil, errkind.Validationf("analyze", "at least one topic must be selected")
	}
	if len(topics) > maxTopics {
		return nil, nil, errkind.Validationf("analyze", "at most %d topics, got %d", maxTopics, len(topics))
	}
	if in.PaperID == uuid.Nil && in.AnalysisID != nil && *in.AnalysisID != uuid.Nil {
		a, err := s.analyses.GetByID(dbc, *in.AnalysisID)
		if err != nil {
			return nil, nil, fmt.Errorf("load analysis: %w", err)
		}
		in.PaperID = a.PaperID
	}
	if in.PaperID == uuid.Nil {
		return nil, nil, errkind.Validationf("analyze", "paper_id or analysis_id is required")
	}
	if _, err := s.papers.GetByID(dbc, in.PaperID); err != nil {
		return nil, nil, fmt.Errorf("load paper: %w", err)
	}
	snapshot, err := s.profileSnapshot(dbc, in.UserID)
	if err != nil {
		return nil, nil, err
	}

	var (
		analysis *types.Analysis
		job      *types.JobRun
	)
	err = dbctx.InTx(dbc, s.db, func(inner dbctx.Context) error {
		a, err := s.pickAnalysis(inner, in)
		if err != nil {
			return err
		}
		j, err := s.jobs.Enqueue(inner, jobs.TypePaperRead, jobs.EntityAnalysis, &a.ID, map[string]any{
			"analysis_id": a.ID.String(),
		})
		if err != nil {
			return err
		}
		updates := map[string]interface{}{
			"topics":           mustJSON(topics),
			"profile_snapshot": snapshot,
			"job_id":           j.ID,
		}
		if in.UserID != nil {
			updates["user_id"] = *in.UserID
		}
		ok, err := s.analyses.ClaimUnstarted(inner, a.ID, updates)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("analysis %s already started: %w", a.ID, pkgerrors.ErrConflict)
		}
		analysis, job = a, j
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if err := s.jobs.Dispatch(dbctx.Context{Ctx: dbc.Ctx}, job.ID); err != nil {
		return nil, nil, err
	}

	fresh, err := s.analyses.GetByID(dbctx.Context{Ctx: dbc.Ctx}, analysis.ID)
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("analysis queued", "analysis_id", fresh.ID, "paper_id", fresh.PaperID, "job_id", job.ID, "topics", len(topics))
	return fresh, job, nil
}

func (s *analysisService) pickAnalysis(dbc dbctx.Context, in AnalyzeInput) (*types.Analysis, error) {
	if in.AnalysisID != nil && *in.AnalysisID != uuid.Nil {
		a, err := s.analyses.GetByID(dbc, *in.AnalysisID)
		if err != nil {
			return nil, fmt.Errorf("load analysis: %w", err)
		}
		if a.PaperID != in.PaperID {
			return nil, errkind.Validationf("analyze", "analysis %s does not belong to paper %s", a.ID, in.PaperID)
		}
		if a.Status != types.AnalysisUploaded || a.JobID != nil {
			return nil, fmt.Errorf("analysis %s is %s: %w", a.ID, a.Status, pkgerrors.ErrConflict)
		}
		return a, nil
	}
	a, err := s.analyses.LatestUnstarted(dbc, in.PaperID)
	if err != nil {
		return nil, err
	}
	if a != nil && a.JobID == nil {
		return a, nil
	}
	a = &types.Analysis{
		ID:       uuid.New(),
		PaperID:  in.PaperID,
		Status:   types.AnalysisUploaded,
		Progress: types.ProgressFloorOf(types.AnalysisUploaded),
	}
	if err := s.analyses.Create(dbc, a); err != nil {
		return nil, fmt.Errorf("create analysis: %w", err)
	}
	return a, nil
}

// profileSnapshot freezes the user's structured profile onto the analysis
// so later profile edits don't change a running analysis. Profiles that are
// not ready yet are ignored.
func (s *analysisService) profileSnapshot(dbc dbctx.Context, userID *uuid.UUID) (datatypes.JSON, error) {
	if userID == nil || *userID == uuid.Nil {
		return nil, nil
	}
	p, err := s.profiles.GetByID(dbc, *userID)
	if errors.Is(err, pkgerrors.ErrNotFound) {
		return nil, errkind.Validationf("analyze", "unknown user %s", *userID)
	}
	if err != nil {
		return nil, err
	}
	if p.Status != user.ProfileStatusReady || len(p.Profile) == 0 {
		s.log.Debug("profile not ready; analyzing without personalization", "user_id", p.ID, "profile_status", p.Status)
		return nil, nil
	}
	return p.Profile, nil
}

func (s *analysisService) Search(dbc dbctx.Context, analysisID uuid.UUID, indices []int) (*types.Analysis, *types.JobRun, error) {
	a, err := s.analyses.GetByID(dbc, analysisID)
	if err != nil {
		return nil, nil, err
	}
	if a.Status != types.AnalysisIdeasReady {
		return nil, nil, fmt.Errorf("analysis %s is %s, ideas are not ready for selection: %w", a.ID, a.Status, pkgerrors.ErrConflict)
	}
	var candidates []types.CandidateIdea
	if err := decode(a.CandidateIdeas, &candidates); err != nil {
		return nil, nil, fmt.Errorf("decode candidate ideas: %w", err)
	}
	if err := research.ValidateSelection(indices, len(candidates)); err != nil {
		return nil, nil, err
	}

	var job *types.JobRun
	err = dbctx.InTx(dbc, s.db, func(inner dbctx.Context) error {
		j, err := s.jobs.Enqueue(inner, jobs.TypeIdeaSearch, jobs.EntityAnalysis, &a.ID, map[string]any{
			"analysis_id": a.ID.String(),
		})
		if err != nil {
			return err
		}
		ok, err := s.analyses.Transition(inner, a.ID, types.AnalysisIdeasReady, types.AnalysisSearching, map[string]interface{}{
			"selected_ideas": mustJSON(indices),
			"started_at":     time.Now(),
			"job_id":         j.ID,
			"progress":       types.ProgressFloorOf(types.AnalysisSearching),
		})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("analysis %s left ideas_ready concurrently: %w", a.ID, pkgerrors.ErrConflict)
		}
		job = j
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if err := s.jobs.Dispatch(dbctx.Context{Ctx: dbc.Ctx}, job.ID); err != nil {
		return nil, nil, err
	}

	fresh, err := s.analyses.GetByID(dbctx.Context{Ctx: dbc.Ctx}, a.ID)
	if err != nil {
		return nil, nil, err
	}
	if s.notify != nil {
		s.notify.AnalysisStatus(fresh)
	}
	s.log.Info("search queued", "analysis_id", a.ID, "job_id", job.ID, "selected", len(indices))
	return fresh, job, nil
}

func (s *analysisService) GetAnalysis(dbc dbctx.Context, id uuid.UUID) (*types.Analysis, error) {
	return s.analyses.GetByID(dbc, id)
}

func (s *analysisService) Results(dbc dbctx.Context, id uuid.UUID) (*AnalysisResults, error) {
	a, err := s.analyses.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	out := &AnalysisResults{Analysis: a}
	if a.Status != types.AnalysisIdeasReady && a.Status != types.AnalysisComplete {
		return out, nil
	}
	paper, err := s.papers.GetByID(dbc, a.PaperID)
	if err != nil && !errors.Is(err, pkgerrors.ErrNotFound) {
		return nil, err
	}
	out.Paper = paper

	var extraction types.Extraction
	if err := decode(a.Extraction, &extraction); err != nil {
		return nil, fmt.Errorf("decode extraction: %w", err)
	}
	out.Extraction = &extraction

	if a.Status != types.AnalysisComplete {
		if err := decode(a.CandidateIdeas, &out.Candidates); err != nil {
			return nil, fmt.Errorf("decode candidate ideas: %w", err)
		}
		out.Ready = true
		return out, nil
	}

	ranked, err := s.ideas.ListByAnalysis(dbc, a.ID)
	if err != nil {
		return nil, err
	}
	out.Ranked = ranked
	if len(a.Diversity) > 0 {
		var d types.DiversityReport
		if err := decode(a.Diversity, &d); err != nil {
			return nil, fmt.Errorf("decode diversity: %w", err)
		}
		out.Diversity = &d
	}
	out.Ready = true
	return out, nil
}

func (s *analysisService) ListPapers(dbc dbctx.Context, limit, offset int) ([]*types.PaperSummary, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.papers.List(dbc, limit, offset)
}

func (s *analysisService) ListAnalyses(dbc dbctx.Context, paperID uuid.UUID) ([]*types.Analysis, error) {
	if _, err := s.papers.GetByID(dbc, paperID); err != nil {
		return nil, err
	}
	return s.analyses.ListByPaper(dbc, paperID)
}

func mustJSON(v any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(b)
}

func decode(raw datatypes.JSON, out any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, out)
}
