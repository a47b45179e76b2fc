package idea_search

import (
	"context"

	"github.com/yungbote/paperlens-backend/internal/domain"
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

	out, err := p.research.Search(run.Ctx, research.SearchInput{
		AnalysisID: run.AnalysisID(),
		Report:     run.Report,
	})
	if err != nil {
		run.Finish("searching", nil, err)
		return nil
	}

	if p.projector != nil && !out.Skipped && out.Status == domain.AnalysisComplete {
		if perr := p.projector.ProjectAnalysis(context.WithoutCancel(jc.Ctx), run.AnalysisID()); perr != nil {
			p.log.Warn("graph projection failed", "analysis_id", run.AnalysisID(), "error", perr)
		}
	}
	run.Finish(string(out.Status), map[string]any{
		"analysis_id":    run.AnalysisID().String(),
		"status":         out.Status,
		"ranked":         out.Ranked,
		"search_failed":  out.Failed,
		"diversity_note": out.Diversity.Note,
		"skipped":        out.Skipped,
	}, nil)
	return nil
}
