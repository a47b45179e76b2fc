package testutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/paperlens-backend/internal/domain"
)

func SeedPaper(tb testing.TB, ctx context.Context, tx *gorm.DB, title string) *types.Paper {
	tb.Helper()
	p := &types.Paper{
		ID:         uuid.New(),
		Title:      title,
		Authors:    JSON(tb, []string{"A. Author"}),
		Filename:   "paper.pdf",
		MimeType:   "application/pdf",
		StorageKey: "papers/" + uuid.NewString() + ".pdf",
		PageCount:  2,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed paper: %v", err)
	}
	return p
}

func SeedAnalysis(tb testing.TB, ctx context.Context, tx *gorm.DB, paperID uuid.UUID, status types.AnalysisStatus, topics []string) *types.Analysis {
	tb.Helper()
	a := &types.Analysis{
		ID:      uuid.New(),
		PaperID: paperID,
		Topics:  JSON(tb, topics),
		Status:  status,
	}
	if status.Running() {
		a.StartedAt = PtrTime(time.Now())
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed analysis: %v", err)
	}
	return a
}

// SeedIdeasReady seeds an analysis holding an extraction and candidates.
func SeedIdeasReady(tb testing.TB, ctx context.Context, tx *gorm.DB, paperID uuid.UUID, topics []string, ideas []types.CandidateIdea) *types.Analysis {
	tb.Helper()
	a := SeedAnalysis(tb, ctx, tx, paperID, types.AnalysisStatus("ideas_ready"), topics)
	a.Extraction = JSON(tb, types.Extraction{Summary: "s", Concepts: []string{"attention"}})
	a.CandidateIdeas = JSON(tb, ideas)
	a.Progress = 50
	if err := tx.WithContext(ctx).Save(a).Error; err != nil {
		tb.Fatalf("seed ideas_ready analysis: %v", err)
	}
	return a
}

func SeedJobRun(tb testing.TB, ctx context.Context, tx *gorm.DB, job *types.JobRun) *types.JobRun {
	tb.Helper()
	if job.Payload == nil {
		job.Payload = datatypes.JSON([]byte("{}"))
	}
	if job.Result == nil {
		job.Result = datatypes.JSON([]byte("{}"))
	}
	if err := tx.WithContext(ctx).Create(job).Error; err != nil {
		tb.Fatalf("seed job run: %v", err)
	}
	return job
}

func JSON(tb testing.TB, v any) datatypes.JSON {
	tb.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		tb.Fatalf("marshal fixture: %v", err)
	}
	return datatypes.JSON(b)
}

func PtrUUID(id uuid.UUID) *uuid.UUID { return &id }
func PtrTime(t time.Time) *time.Time  { return &t }
