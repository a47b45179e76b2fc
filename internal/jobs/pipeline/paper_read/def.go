package paper_read

import (
	"github.com/yungbote/paperlens-backend/internal/domain/jobs"
	"github.com/yungbote/paperlens-backend/internal/jobs/pipeline/analysisjob"
	"github.com/yungbote/paperlens-backend/internal/modules/research"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
)

// Pipeline runs text extraction and the reader stage for one analysis.
type Pipeline struct {
	log      *logger.Logger
	research research.Usecases
	stage    analysisjob.Deps
}

func New(baseLog *logger.Logger, uc research.Usecases, stage analysisjob.Deps) *Pipeline {
	log := baseLog.With("job", jobs.TypePaperRead)
	stage.Log = log
	return &Pipeline{log: log, research: uc.WithLog(log), stage: stage}
}

func (p *Pipeline) Type() string { return jobs.TypePaperRead }
