package research

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/paperlens-backend/internal/domain"
	"github.com/yungbote/paperlens-backend/internal/modules/research/steps"
	"github.com/yungbote/paperlens-backend/internal/pkg/dbctx"
	"github.com/yungbote/paperlens-backend/internal/pkg/errkind"
	pkgerrors "github.com/yungbote/paperlens-backend/internal/pkg/errors"
	"github.com/yungbote/paperlens-backend/internal/platform/objectstore"
)

type ReadInput struct {
	AnalysisID uuid.UUID
	Report     Reporter
}

type ReadOutput struct {
	// Skipped is set when the analysis was already past the reader stage.
	Skipped bool
	Status  domain.AnalysisStatus
	Ideas   int
}

// Read runs parsing and the reader stage: uploaded -> parsing -> reading ->
// ideas_ready. It resumes an analysis left in parsing or reading by an
// earlier attempt, and is a no-op for anything further along. Nothing is
// written to the analysis besides status and progress until both reader
// steps have succeeded.
func (u Usecases) Read(ctx context.Context, in ReadInput) (ReadOutput, error) {
	dbc := dbctx.Context{Ctx: ctx}
	a, err := u.deps.Analyses.GetByID(dbc, in.AnalysisID)
	if err != nil {
		return ReadOutput{}, err
	}
	status := a.Status
	switch status {
	case domain.AnalysisUploaded:
		ok, err := u.deps.Analyses.Transition(dbc, a.ID, domain.AnalysisUploaded, domain.AnalysisParsing, map[string]interface{}{
			"started_at": u.deps.Now(),
			"progress":   domain.ProgressFloorOf(domain.AnalysisParsing),
		})
		if err != nil {
			return ReadOutput{}, err
		}
		if !ok {
			return ReadOutput{}, fmt.Errorf("analysis %s left uploaded concurrently: %w", a.ID, pkgerrors.ErrConflict)
		}
		status = domain.AnalysisParsing
	case domain.AnalysisParsing, domain.AnalysisReading:
		u.deps.Log.Info("resuming reader stage", "analysis_id", a.ID, "status", status)
	default:
		return ReadOutput{Skipped: true, Status: status}, nil
	}

	prog := u.newProgress(a.ID, a.Progress, in.Report)
	prog.report(ctx, "parsing", domain.ProgressFloorOf(domain.AnalysisParsing), "Extracting text from PDF")
	text, err := u.paperText(ctx, a.PaperID)
	if err != nil {
		return ReadOutput{}, err
	}

	if status == domain.AnalysisParsing {
		ok, err := u.deps.Analyses.Transition(dbc, a.ID, domain.AnalysisParsing, domain.AnalysisReading, nil)
		if err != nil {
			return ReadOutput{}, err
		}
		if !ok {
			return ReadOutput{}, fmt.Errorf("analysis %s left parsing concurrently: %w", a.ID, pkgerrors.ErrConflict)
		}
	}

	topics, err := decodeJSON[[]string](a.Topics, "topics")
	if err != nil {
		return ReadOutput{}, err
	}
	profile, err := decodeJSON[*domain.StructuredProfile](a.ProfileSnapshot, "profile_snapshot")
	if err != nil {
		return ReadOutput{}, err
	}

	prog.report(ctx, "reading", 25, "Extracting concepts and findings")
	extraction, err := steps.Extract(ctx, u.readerDeps(), text)
	if err != nil {
		return ReadOutput{}, err
	}

	prog.report(ctx, "reading", 35, "Generating research ideas")
	ideas, err := steps.GenerateIdeas(ctx, u.readerDeps(), steps.IdeasInput{
		Extraction: extraction,
		Topics:     topics,
		Profile:    profile,
	})
	if err != nil {
		return ReadOutput{}, err
	}

	ok, err := u.deps.Analyses.Transition(dbc, a.ID, domain.AnalysisReading, domain.AnalysisIdeasReady, map[string]interface{}{
		"extraction":      mustJSON(extraction),
		"candidate_ideas": mustJSON(ideas),
		"progress":        domain.ProgressFloorOf(domain.AnalysisIdeasReady),
	})
	if err != nil {
		return ReadOutput{}, err
	}
	if !ok {
		return ReadOutput{}, fmt.Errorf("analysis %s left reading concurrently: %w", a.ID, pkgerrors.ErrConflict)
	}
	if in.Report != nil {
		in.Report("ideas_ready", domain.ProgressFloorOf(domain.AnalysisIdeasReady), fmt.Sprintf("%d ideas ready", len(ideas)))
	}
	return ReadOutput{Status: domain.AnalysisIdeasReady, Ideas: len(ideas)}, nil
}

func (u Usecases) paperText(ctx context.Context, paperID uuid.UUID) (string, error) {
	paper, err := u.deps.Papers.GetByID(dbctx.Context{Ctx: ctx}, paperID)
	if err != nil {
		return "", fmt.Errorf("load paper: %w", err)
	}
	data, err := objectstore.ReadAll(ctx, u.deps.Store, paper.StorageKey)
	if err != nil {
		return "", fmt.Errorf("read paper %s: %w", paper.ID, err)
	}
	res, err := u.deps.PDF.Extract(ctx, data)
	if err != nil {
		return "", err
	}
	if res.Text == "" {
		return "", errkind.Parse("pdf_extract", fmt.Errorf("paper %s has no text", paper.ID))
	}
	if res.OCR {
		u.deps.Log.Info("paper text recovered by OCR", "paper_id", paper.ID)
	}
	return res.Text, nil
}
