package papers

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/paperlens-backend/internal/data/repos/dbutil"
	types "github.com/yungbote/paperlens-backend/internal/domain"
	"github.com/yungbote/paperlens-backend/internal/domain/papers"
	"github.com/yungbote/paperlens-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/paperlens-backend/internal/pkg/errors"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
)

type AnalysisRepo interface {
	Create(dbc dbctx.Context, a *types.Analysis) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Analysis, error)
	ListByPaper(dbc dbctx.Context, paperID uuid.UUID) ([]*types.Analysis, error)
	LatestUnstarted(dbc dbctx.Context, paperID uuid.UUID) (*types.Analysis, error)
	// ClaimUnstarted applies updates to an uploaded analysis that has no
	// job yet. ok is false when the analysis was already started.
	ClaimUnstarted(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) (bool, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// Transition moves id from -> to only if the row is still in from.
	// ok is false when another writer got there first.
	Transition(dbc dbctx.Context, id uuid.UUID, from, to types.AnalysisStatus, updates map[string]interface{}) (bool, error)
	// Fail moves any non-terminal analysis to error.
	Fail(dbc dbctx.Context, id uuid.UUID, kind, message string) (bool, error)
	ListStale(dbc dbctx.Context, startedBefore time.Time, limit int) ([]*types.Analysis, error)
}

type analysisRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnalysisRepo(db *gorm.DB, baseLog *logger.Logger) AnalysisRepo {
	return &analysisRepo{db: db, log: baseLog.With("repo", "AnalysisRepo")}
}

func (r *analysisRepo) Create(dbc dbctx.Context, a *types.Analysis) error {
	return dbutil.MapError(dbutil.Conn(dbc, r.db).Create(a).Error)
}

func (r *analysisRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Analysis, error) {
	var a types.Analysis
	if err := dbutil.Conn(dbc, r.db).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, dbutil.MapError(err)
	}
	return &a, nil
}

func (r *analysisRepo) ListByPaper(dbc dbctx.Context, paperID uuid.UUID) ([]*types.Analysis, error) {
	var out []*types.Analysis
	err := dbutil.Conn(dbc, r.db).
		Where("paper_id = ?", paperID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *analysisRepo) LatestUnstarted(dbc dbctx.Context, paperID uuid.UUID) (*types.Analysis, error) {
	var a types.Analysis
	err := dbutil.Conn(dbc, r.db).
		Where("paper_id = ? AND status = ?", paperID, papers.StatusUploaded).
		Order("created_at DESC").
		Limit(1).
		Find(&a).Error
	if err != nil {
		return nil, err
	}
	if a.ID == uuid.Nil {
		return nil, nil
	}
	return &a, nil
}

func (r *analysisRepo) ClaimUnstarted(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := dbutil.Conn(dbc, r.db).
		Model(&types.Analysis{}).
		Where("id = ? AND status = ? AND job_id IS NULL", id, papers.StatusUploaded).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *analysisRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return dbutil.Conn(dbc, r.db).
		Model(&types.Analysis{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *analysisRepo) Transition(dbc dbctx.Context, id uuid.UUID, from, to types.AnalysisStatus, updates map[string]interface{}) (bool, error) {
	if !papers.CanTransition(from, to) {
		return false, fmt.Errorf("analysis %s -> %s: %w", from, to, pkgerrors.ErrIllegalTransition)
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := dbutil.Conn(dbc, r.db).
		Model(&types.Analysis{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *analysisRepo) Fail(dbc dbctx.Context, id uuid.UUID, kind, message string) (bool, error) {
	now := time.Now()
	res := dbutil.Conn(dbc, r.db).
		Model(&types.Analysis{}).
		Where("id = ? AND status NOT IN ?", id, []types.AnalysisStatus{papers.StatusComplete, papers.StatusError}).
		Updates(map[string]interface{}{
			"status":        papers.StatusError,
			"error_kind":    kind,
			"error_message": message,
			"completed_at":  now,
			"updated_at":    now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *analysisRepo) ListStale(dbc dbctx.Context, startedBefore time.Time, limit int) ([]*types.Analysis, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []*types.Analysis
	err := dbutil.Conn(dbc, r.db).
		Where("status IN ? AND started_at IS NOT NULL AND started_at < ?",
			[]types.AnalysisStatus{papers.StatusParsing, papers.StatusReading, papers.StatusSearching}, startedBefore).
		Order("started_at ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
