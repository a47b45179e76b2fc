package services

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/paperlens-backend/internal/data/repos"
	types "github.com/yungbote/paperlens-backend/internal/domain"
	"github.com/yungbote/paperlens-backend/internal/domain/jobs"
	"github.com/yungbote/paperlens-backend/internal/domain/user"
	"github.com/yungbote/paperlens-backend/internal/pkg/dbctx"
	"github.com/yungbote/paperlens-backend/internal/pkg/errkind"
	pkgerrors "github.com/yungbote/paperlens-backend/internal/pkg/errors"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
)

const maxDescriptionLen = 5000

type ProfileInput struct {
	Description     string
	ExperienceLevel string
	ScholarURL      string
}

type ProfileService interface {
	// Save creates the profile, or replaces its inputs when id names an
	// existing one, and enqueues a rebuild.
	Save(dbc dbctx.Context, id *uuid.UUID, in ProfileInput) (*types.UserProfile, *types.JobRun, error)
	// Update is Save for a profile that must already exist.
	Update(dbc dbctx.Context, id uuid.UUID, in ProfileInput) (*types.UserProfile, *types.JobRun, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*types.UserProfile, error)
}

type profileService struct {
	db       *gorm.DB
	log      *logger.Logger
	profiles repos.UserProfileRepo
	jobs     JobService
}

func NewProfileService(db *gorm.DB, baseLog *logger.Logger, profiles repos.UserProfileRepo, jobService JobService) ProfileService {
	return &profileService{
		db:       db,
		log:      baseLog.With("service", "ProfileService"),
		profiles: profiles,
		jobs:     jobService,
	}
}

func (in ProfileInput) normalized() (ProfileInput, error) {
	in.Description = strings.TrimSpace(in.Description)
	in.ExperienceLevel = strings.ToLower(strings.TrimSpace(in.ExperienceLevel))
	in.ScholarURL = strings.TrimSpace(in.ScholarURL)

	if in.Description == "" && in.ScholarURL == "" {
		return in, errkind.Validationf("profile", "a description or a scholar_url is required")
	}
	if len(in.Description) > maxDescriptionLen {
		return in, errkind.Validationf("profile", "description exceeds %d characters", maxDescriptionLen)
	}
	if in.ExperienceLevel != "" && !slices.Contains(user.ExperienceLevels, in.ExperienceLevel) {
		return in, errkind.Validationf("profile", "experience_level must be one of %s", strings.Join(user.ExperienceLevels, ", "))
	}
	if in.ScholarURL != "" {
		u, err := url.Parse(in.ScholarURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || !strings.Contains(u.Host, "scholar.google.") {
			return in, errkind.Validationf("profile", "scholar_url must be a Google Scholar profile URL")
		}
		if u.Query().Get("user") == "" {
			return in, errkind.Validationf("profile", "scholar_url has no user parameter")
		}
	}
	return in, nil
}

func (s *profileService) Save(dbc dbctx.Context, id *uuid.UUID, in ProfileInput) (*types.UserProfile, *types.JobRun, error) {
	in, err := in.normalized()
	if err != nil {
		return nil, nil, err
	}
	return s.save(dbc, id, in, false)
}

func (s *profileService) Update(dbc dbctx.Context, id uuid.UUID, in ProfileInput) (*types.UserProfile, *types.JobRun, error) {
	in, err := in.normalized()
	if err != nil {
		return nil, nil, err
	}
	return s.save(dbc, &id, in, true)
}

func (s *profileService) save(dbc dbctx.Context, id *uuid.UUID, in ProfileInput, mustExist bool) (*types.UserProfile, *types.JobRun, error) {
	var (
		profileID uuid.UUID
		job       *types.JobRun
	)
	err := dbctx.InTx(dbc, s.db, func(inner dbctx.Context) error {
		var existing *types.UserProfile
		if id != nil && *id != uuid.Nil {
			p, err := s.profiles.GetByID(inner, *id)
			switch {
			case err == nil:
				existing = p
			case errors.Is(err, pkgerrors.ErrNotFound) && !mustExist:
			default:
				return err
			}
		}

		if existing == nil {
			p := &types.UserProfile{
				Description:     in.Description,
				ExperienceLevel: in.ExperienceLevel,
				ScholarURL:      in.ScholarURL,
				Status:          user.ProfileStatusPending,
			}
			if id != nil {
				p.ID = *id
			}
			if err := s.profiles.Create(inner, p); err != nil {
				return fmt.Errorf("create profile: %w", err)
			}
			profileID = p.ID
		} else {
			if err := s.profiles.UpdateFields(inner, existing.ID, map[string]interface{}{
				"description":      in.Description,
				"experience_level": in.ExperienceLevel,
				"scholar_url":      in.ScholarURL,
				"status":           user.ProfileStatusPending,
				"error":            "",
			}); err != nil {
				return fmt.Errorf("update profile: %w", err)
			}
			profileID = existing.ID
		}

		j, err := s.jobs.Enqueue(inner, jobs.TypeProfileBuild, jobs.EntityUserProfile, &profileID, map[string]any{
			"profile_id": profileID.String(),
		})
		if err != nil {
			return err
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
	p, err := s.profiles.GetByID(dbctx.Context{Ctx: dbc.Ctx}, profileID)
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("profile build queued", "user_id", p.ID, "job_id", job.ID, "scholar", p.ScholarURL != "")
	return p, job, nil
}

func (s *profileService) Get(dbc dbctx.Context, id uuid.UUID) (*types.UserProfile, error) {
	return s.profiles.GetByID(dbc, id)
}
