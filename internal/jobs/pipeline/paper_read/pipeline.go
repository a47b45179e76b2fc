package paper_read

import (
	"github.com/yungbote/paperlens-backend/internal/jobs/pipeline/analysisjob"
	jobrt "github.com/yungbote/paperlens-backend/internal/jobs/runtime"
	"github.com/yungbote/paperlens-backend/internal/modules/research"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	run, err := analysisjob.Begin(jc, p.stage)
	if err != nil {
		analysisjob.FailBegin(jc, err)
		return nil
	}

	out, err := p.research.Read(run.Ctx, research.ReadInput{
		AnalysisID: run.AnalysisID(),
		Report:     run.Report,
	})
	if err != nil {
		run.Finish("reading", nil, err)
		return nil
	}
	if out.Skipped {
		p.log.Info("analysis already past the reader stage", "analysis_id", run.AnalysisID(), "status", out.Status)
	}
	run.Finish(string(out.Status), map[string]any{
		"analysis_id": run.AnalysisID().String(),
		"status":      out.Status,
		"ideas":       out.Ideas,
		"skipped":     out.Skipped,
	}, nil)
	return nil
}
