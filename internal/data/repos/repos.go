package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/paperlens-backend/internal/data/repos/jobs"
	"github.com/yungbote/paperlens-backend/internal/data/repos/papers"
	"github.com/yungbote/paperlens-backend/internal/data/repos/user"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
)

type PaperRepo = papers.PaperRepo
type AnalysisRepo = papers.AnalysisRepo
type ResearchIdeaRepo = papers.ResearchIdeaRepo

type UserProfileRepo = user.UserProfileRepo

type JobRunRepo = jobs.JobRunRepo

type Repos struct {
	Paper        PaperRepo
	Analysis     AnalysisRepo
	ResearchIdea ResearchIdeaRepo
	UserProfile  UserProfileRepo
	JobRun       JobRunRepo
}

func New(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Paper:        papers.NewPaperRepo(db, log),
		Analysis:     papers.NewAnalysisRepo(db, log),
		ResearchIdea: papers.NewResearchIdeaRepo(db, log),
		UserProfile:  user.NewUserProfileRepo(db, log),
		JobRun:       jobs.NewJobRunRepo(db, log),
	}
}
