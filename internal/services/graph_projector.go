package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/paperlens-backend/internal/data/graph"
	"github.com/yungbote/paperlens-backend/internal/data/repos"
	types "github.com/yungbote/paperlens-backend/internal/domain"
	"github.com/yungbote/paperlens-backend/internal/pkg/dbctx"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
	"github.com/yungbote/paperlens-backend/internal/platform/neo4jdb"
)

// GraphProjector mirrors completed analyses into neo4j.
type GraphProjector interface {
	ProjectAnalysis(ctx context.Context, analysisID uuid.UUID) error
}

type graphProjector struct {
	log      *logger.Logger
	client   *neo4jdb.Client
	papers   repos.PaperRepo
	analyses repos.AnalysisRepo
	ideas    repos.ResearchIdeaRepo
	write    func(ctx context.Context, g graph.AnalysisGraph) error
}

// NewGraphProjector returns nil when client is nil so callers can skip
// projection entirely.
func NewGraphProjector(baseLog *logger.Logger, client *neo4jdb.Client, r repos.Repos) GraphProjector {
	if client == nil {
		return nil
	}
	log := baseLog.With("service", "GraphProjector")
	return &graphProjector{
		log:      log,
		client:   client,
		papers:   r.Paper,
		analyses: r.Analysis,
		ideas:    r.ResearchIdea,
		write: func(ctx context.Context, g graph.AnalysisGraph) error {
			return graph.UpsertAnalysisGraph(ctx, client, log, g)
		},
	}
}

func (p *graphProjector) ProjectAnalysis(ctx context.Context, analysisID uuid.UUID) error {
	dbc := dbctx.Context{Ctx: ctx}
	a, err := p.analyses.GetByID(dbc, analysisID)
	if err != nil {
		return err
	}
	if a.Status != types.AnalysisComplete {
		return fmt.Errorf("project analysis %s: status is %s", a.ID, a.Status)
	}
	paper, err := p.papers.GetByID(dbc, a.PaperID)
	if err != nil {
		return err
	}
	ideas, err := p.ideas.ListByAnalysis(dbc, a.ID)
	if err != nil {
		return err
	}
	var topics []string
	if err := decode(a.Topics, &topics); err != nil {
		return fmt.Errorf("decode topics: %w", err)
	}

	start := time.Now()
	g := graph.BuildAnalysisGraph(paper, a, ideas, topics, start)
	if err := p.write(ctx, g); err != nil {
		return fmt.Errorf("neo4j upsert: %w", err)
	}
	p.log.Debug("analysis projected",
		"analysis_id", a.ID,
		"ideas", len(g.Ideas),
		"references", len(g.References),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
