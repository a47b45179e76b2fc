package idea_search

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/paperlens-backend/internal/domain/jobs"
	"github.com/yungbote/paperlens-backend/internal/jobs/pipeline/analysisjob"
	"github.com/yungbote/paperlens-backend/internal/modules/research"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
)

// Projector mirrors a completed analysis somewhere else. Failures are
// logged and never fail the job.
type Projector interface {
	ProjectAnalysis(ctx context.Context, analysisID uuid.UUID) error
}

// Pipeline runs the searcher stage for one analysis.
type Pipeline struct {
	log       *logger.Logger
	research  research.Usecases
	stage     analysisjob.Deps
	projector Projector
}

// New builds the pipeline; projector may be nil.
func New(baseLog *logger.Logger, uc research.Usecases, stage analysisjob.Deps, projector Projector) *Pipeline {
	log := baseLog.With("job", jobs.TypeIdeaSearch)
	stage.Log = log
	return &Pipeline{log: log, research: uc.WithLog(log), stage: stage, projector: projector}
}

func (p *Pipeline) Type() string { return jobs.TypeIdeaSearch }
