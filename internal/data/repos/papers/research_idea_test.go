package papers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/paperlens-backend/internal/data/repos/testutil"
	types "github.com/yungbote/paperlens-backend/internal/domain"
	"github.com/yungbote/paperlens-backend/internal/pkg/dbctx"
)

func TestResearchIdeaRepoReplace(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewResearchIdeaRepo(db, testutil.Logger(t))

	paper := testutil.SeedPaper(t, ctx, tx, "P")
	a := testutil.SeedAnalysis(t, ctx, tx, paper.ID, types.AnalysisSearching, []string{"NLP"})

	mk := func(rank int, title string) *types.ResearchIdea {
		return &types.ResearchIdea{
			Rank:  rank,
			Title: title,
			References: []types.Reference{
				{Title: "ref " + title, Category: "recent"},
			},
		}
	}
	require.NoError(t, repo.ReplaceForAnalysis(dbc, a.ID, []*types.ResearchIdea{mk(1, "a"), mk(2, "b")}))
	require.NoError(t, repo.ReplaceForAnalysis(dbc, a.ID, []*types.ResearchIdea{mk(2, "y"), mk(1, "x")}))

	ideas, err := repo.ListByAnalysis(dbc, a.ID)
	require.NoError(t, err)
	require.Len(t, ideas, 2)
	assert.Equal(t, "x", ideas[0].Title)
	assert.Equal(t, 1, ideas[0].Rank)
	require.Len(t, ideas[0].References, 1)
	assert.Equal(t, "ref x", ideas[0].References[0].Title)

	var refCount int64
	require.NoError(t, tx.Model(&types.Reference{}).Count(&refCount).Error)
	assert.Equal(t, int64(2), refCount, "old references are removed with their ideas")
}

func TestResearchIdeaRepoRankUnique(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewResearchIdeaRepo(db, testutil.Logger(t))

	paper := testutil.SeedPaper(t, ctx, tx, "P")
	a := testutil.SeedAnalysis(t, ctx, tx, paper.ID, types.AnalysisSearching, nil)
	err := repo.ReplaceForAnalysis(dbctx.Context{Ctx: ctx, Tx: tx}, a.ID, []*types.ResearchIdea{
		{Rank: 1, Title: "a"}, {Rank: 1, Title: "b"},
	})
	assert.Error(t, err)
}
