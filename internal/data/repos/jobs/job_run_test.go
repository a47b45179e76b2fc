package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/paperlens-backend/internal/data/repos/testutil"
	types "github.com/yungbote/paperlens-backend/internal/domain"
	"github.com/yungbote/paperlens-backend/internal/pkg/dbctx"
)

func TestJobRunRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewJobRunRepo(db, testutil.Logger(t))

	now := time.Now()
	entityID := uuid.New()

	dead := testutil.SeedJobRun(t, ctx, tx, &types.JobRun{
		JobType: "paper_read", EntityType: "analysis", EntityID: testutil.PtrUUID(uuid.New()),
		Status: "dead", Stage: "failed", LastErrorAt: testutil.PtrTime(now.Add(-5 * time.Hour)),
		CreatedAt: now.Add(-5 * time.Hour),
	})
	queued := testutil.SeedJobRun(t, ctx, tx, &types.JobRun{
		JobType: "paper_read", EntityType: "analysis", EntityID: testutil.PtrUUID(entityID),
		Status: "queued", Stage: "queued", CreatedAt: now.Add(-3 * time.Hour),
	})
	failed := testutil.SeedJobRun(t, ctx, tx, &types.JobRun{
		JobType: "idea_search", EntityType: "analysis", EntityID: testutil.PtrUUID(uuid.New()),
		Status: "failed", Stage: "failed", LastErrorAt: testutil.PtrTime(now.Add(-2 * time.Hour)),
		CreatedAt: now.Add(-2 * time.Hour),
	})
	stale := testutil.SeedJobRun(t, ctx, tx, &types.JobRun{
		JobType: "idea_search", EntityType: "analysis", EntityID: testutil.PtrUUID(uuid.New()),
		Status: "running", Stage: "running", HeartbeatAt: testutil.PtrTime(now.Add(-10 * time.Hour)),
		CreatedAt: now.Add(-1 * time.Hour),
	})

	if ok, err := repo.ExistsRunnable(dbc, "paper_read", "analysis", &entityID); err != nil || !ok {
		t.Fatalf("ExistsRunnable: ok=%v err=%v", ok, err)
	}
	latest, err := repo.GetLatestByEntity(dbc, "analysis", entityID, "")
	if err != nil || latest == nil || latest.ID != queued.ID {
		t.Fatalf("GetLatestByEntity: got=%v err=%v", latest, err)
	}

	want := []uuid.UUID{queued.ID, failed.ID, stale.ID}
	for i, id := range want {
		job, err := repo.ClaimNextRunnable(dbc, 5, 30*time.Second, 30*time.Minute)
		if err != nil {
			t.Fatalf("ClaimNextRunnable[%d]: %v", i, err)
		}
		if job == nil || job.ID != id {
			t.Fatalf("ClaimNextRunnable[%d]: got=%v want=%s", i, job, id)
		}
		if job.Status != "running" || job.Attempts != 1 {
			t.Fatalf("claimed job state: status=%s attempts=%d", job.Status, job.Attempts)
		}
	}
	if job, err := repo.ClaimNextRunnable(dbc, 5, 30*time.Second, 30*time.Minute); err != nil || job != nil {
		t.Fatalf("expected nothing runnable (dead=%s), got=%v err=%v", dead.ID, job, err)
	}

	ok, err := repo.UpdateFieldsUnlessStatus(dbc, queued.ID, []string{"canceled"}, map[string]interface{}{"stage": "reading"})
	if err != nil || !ok {
		t.Fatalf("UpdateFieldsUnlessStatus: ok=%v err=%v", ok, err)
	}
	counts, err := repo.CountByStatus(dbc)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts["running"] != 3 || counts["dead"] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}
