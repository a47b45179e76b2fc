package profile_build

import (
	"github.com/yungbote/paperlens-backend/internal/data/repos"
	"github.com/yungbote/paperlens-backend/internal/domain/jobs"
	"github.com/yungbote/paperlens-backend/internal/modules/research"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
)

type Pipeline struct {
	log         *logger.Logger
	research    research.Usecases
	profiles    repos.UserProfileRepo
	maxAttempts int
}

func New(baseLog *logger.Logger, uc research.Usecases, profiles repos.UserProfileRepo, maxAttempts int) *Pipeline {
	log := baseLog.With("job", jobs.TypeProfileBuild)
	if maxAttempts <= 0 {
		maxAttempts = jobs.DefaultMaxAttempts
	}
	return &Pipeline{log: log, research: uc.WithLog(log), profiles: profiles, maxAttempts: maxAttempts}
}

func (p *Pipeline) Type() string { return jobs.TypeProfileBuild }
