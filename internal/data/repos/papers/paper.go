package papers

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/paperlens-backend/internal/data/repos/dbutil"
	types "github.com/yungbote/paperlens-backend/internal/domain"
	"github.com/yungbote/paperlens-backend/internal/pkg/dbctx"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
)

type PaperRepo interface {
	Create(dbc dbctx.Context, paper *types.Paper) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Paper, error)
	List(dbc dbctx.Context, limit, offset int) ([]*types.PaperSummary, error)
}

type paperRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPaperRepo(db *gorm.DB, baseLog *logger.Logger) PaperRepo {
	return &paperRepo{db: db, log: baseLog.With("repo", "PaperRepo")}
}

func (r *paperRepo) Create(dbc dbctx.Context, paper *types.Paper) error {
	return dbutil.MapError(dbutil.Conn(dbc, r.db).Create(paper).Error)
}

func (r *paperRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Paper, error) {
	var p types.Paper
	if err := dbutil.Conn(dbc, r.db).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, dbutil.MapError(err)
	}
	return &p, nil
}

// List returns papers newest first with their analysis counts.
func (r *paperRepo) List(dbc dbctx.Context, limit, offset int) ([]*types.PaperSummary, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var out []*types.PaperSummary
	err := dbutil.Conn(dbc, r.db).
		Model(&types.Paper{}).
		Select("paper.*, (SELECT COUNT(*) FROM analysis WHERE analysis.paper_id = paper.id) AS analysis_count").
		Order("paper.created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
