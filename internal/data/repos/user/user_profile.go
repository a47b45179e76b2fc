package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/paperlens-backend/internal/data/repos/dbutil"
	types "github.com/yungbote/paperlens-backend/internal/domain"
	"github.com/yungbote/paperlens-backend/internal/pkg/dbctx"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
)

type UserProfileRepo interface {
	Create(dbc dbctx.Context, p *types.UserProfile) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.UserProfile, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type userProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserProfileRepo(db *gorm.DB, baseLog *logger.Logger) UserProfileRepo {
	return &userProfileRepo{db: db, log: baseLog.With("repo", "UserProfileRepo")}
}

func (r *userProfileRepo) Create(dbc dbctx.Context, p *types.UserProfile) error {
	return dbutil.MapError(dbutil.Conn(dbc, r.db).Create(p).Error)
}

func (r *userProfileRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.UserProfile, error) {
	var p types.UserProfile
	if err := dbutil.Conn(dbc, r.db).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, dbutil.MapError(err)
	}
	return &p, nil
}

func (r *userProfileRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := dbutil.Conn(dbc, r.db).Model(&types.UserProfile{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return dbutil.MapError(gorm.ErrRecordNotFound)
	}
	return nil
}
