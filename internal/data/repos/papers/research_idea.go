package papers

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/paperlens-backend/internal/data/repos/dbutil"
	types "github.com/yungbote/paperlens-backend/internal/domain"
	"github.com/yungbote/paperlens-backend/internal/pkg/dbctx"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
)

type ResearchIdeaRepo interface {
	// ReplaceForAnalysis deletes any earlier idea rows (and their references)
	// for the analysis and inserts ideas with their References.
	ReplaceForAnalysis(dbc dbctx.Context, analysisID uuid.UUID, ideas []*types.ResearchIdea) error
	ListByAnalysis(dbc dbctx.Context, analysisID uuid.UUID) ([]*types.ResearchIdea, error)
}

type researchIdeaRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewResearchIdeaRepo(db *gorm.DB, baseLog *logger.Logger) ResearchIdeaRepo {
	return &researchIdeaRepo{db: db, log: baseLog.With("repo", "ResearchIdeaRepo")}
}

func (r *researchIdeaRepo) ReplaceForAnalysis(dbc dbctx.Context, analysisID uuid.UUID, ideas []*types.ResearchIdea) error {
	transaction := dbutil.Conn(dbc, r.db)
	sub := transaction.Model(&types.ResearchIdea{}).Select("id").Where("analysis_id = ?", analysisID)
	if err := transaction.Where("research_idea_id IN (?)", sub).Delete(&types.Reference{}).Error; err != nil {
		return err
	}
	if err := transaction.Where("analysis_id = ?", analysisID).Delete(&types.ResearchIdea{}).Error; err != nil {
		return err
	}
	if len(ideas) == 0 {
		return nil
	}
	for _, idea := range ideas {
		idea.AnalysisID = analysisID
	}
	// Create also inserts the References association.
	return dbutil.MapError(transaction.Create(&ideas).Error)
}

func (r *researchIdeaRepo) ListByAnalysis(dbc dbctx.Context, analysisID uuid.UUID) ([]*types.ResearchIdea, error) {
	var out []*types.ResearchIdea
	err := dbutil.Conn(dbc, r.db).
		Preload("References", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("analysis_id = ?", analysisID).
		Order("rank ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
