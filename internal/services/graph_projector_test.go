package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/paperlens-backend/internal/data/graph"
	"github.com/yungbote/paperlens-backend/internal/data/repos/testutil"
	types "github.com/yungbote/paperlens-backend/internal/domain"
	"github.com/yungbote/paperlens-backend/internal/pkg/dbctx"
)

func TestNewGraphProjectorWithoutClient(t *testing.T) {
	e := newEnv(t)
	assert.Nil(t, NewGraphProjector(e.log, nil, e.repos))
}

func TestProjectAnalysis(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	var written []graph.AnalysisGraph
	p := &graphProjector{
		log:      e.log,
		papers:   e.repos.Paper,
		analyses: e.repos.Analysis,
		ideas:    e.repos.ResearchIdea,
		write: func(ctx context.Context, g graph.AnalysisGraph) error {
			written = append(written, g)
			return nil
		},
	}

	paper := testutil.SeedPaper(t, ctx, e.db, "Graphs")
	pending := testutil.SeedAnalysis(t, ctx, e.db, paper.ID, types.AnalysisSearching, []string{"nlp"})
	require.Error(t, p.ProjectAnalysis(ctx, pending.ID), "only complete analyses are projected")

	done := testutil.SeedAnalysis(t, ctx, e.db, paper.ID, types.AnalysisComplete, []string{"nlp", "graphs"})
	require.NoError(t, e.repos.ResearchIdea.ReplaceForAnalysis(dbc, done.ID, []*types.ResearchIdea{
		{Rank: 1, Title: "Idea A", References: []types.Reference{{Title: "Prior", Category: "recent"}}},
	}))
	require.NoError(t, p.ProjectAnalysis(ctx, done.ID))
	require.Len(t, written, 1)
	g := written[0]
	assert.Equal(t, done.ID.String(), g.Analysis["id"])
	assert.Equal(t, paper.ID.String(), g.Paper["id"])
	assert.Len(t, g.Ideas, 1)
	assert.Len(t, g.References, 1)
	assert.Len(t, g.Topics, 2)

	p.write = func(ctx context.Context, g graph.AnalysisGraph) error { return errors.New("neo4j down") }
	assert.ErrorContains(t, p.ProjectAnalysis(ctx, done.ID), "neo4j down")
}
