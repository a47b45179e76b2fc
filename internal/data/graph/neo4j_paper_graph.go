package graph

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	types "github.com/yungbote/paperlens-backend/internal/domain"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
	"github.com/yungbote/paperlens-backend/internal/platform/neo4jdb"
)

// AnalysisGraph is the node and edge payload for one completed analysis.
type AnalysisGraph struct {
	Paper      map[string]any
	Analysis   map[string]any
	Ideas      []map[string]any
	References []map[string]any
	Topics     []map[string]any
}

// BuildAnalysisGraph flattens a completed analysis into neo4j parameters.
// References are keyed by normalized title so papers cited by several
// ideas collapse into one node.
func BuildAnalysisGraph(paper *types.Paper, a *types.Analysis, ideas []*types.ResearchIdea, topics []string, now time.Time) AnalysisGraph {
	synced := now.UTC().Format(time.RFC3339Nano)
	g := AnalysisGraph{
		Paper: map[string]any{
			"id":          paper.ID.String(),
			"title":       truncateString(paper.Title, 400),
			"filename":    paper.Filename,
			"page_count":  paper.PageCount,
			"sha256":      paper.SHA256,
			"uploaded_at": paper.CreatedAt.UTC().Format(time.RFC3339Nano),
			"synced_at":   synced,
		},
		Analysis: map[string]any{
			"id":        a.ID.String(),
			"paper_id":  paper.ID.String(),
			"status":    string(a.Status),
			"synced_at": synced,
			"completed_at": func() string {
				if a.CompletedAt == nil {
					return ""
				}
				return a.CompletedAt.UTC().Format(time.RFC3339Nano)
			}(),
		},
	}

	for _, t := range topics {
		key := normalizeKey(t)
		if key == "" {
			continue
		}
		g.Topics = append(g.Topics, map[string]any{"key": key, "name": strings.TrimSpace(t)})
	}

	for _, idea := range ideas {
		if idea == nil || idea.ID == uuid.Nil {
			continue
		}
		g.Ideas = append(g.Ideas, map[string]any{
			"id":                idea.ID.String(),
			"analysis_id":       a.ID.String(),
			"rank":              idea.Rank,
			"title":             truncateString(idea.Title, 400),
			"description":       truncateString(idea.Description, 1600),
			"novelty_score":     idea.NoveltyScore,
			"doability_score":   idea.DoabilityScore,
			"topic_match_score": idea.TopicMatchScore,
			"composite_score":   idea.CompositeScore,
			"search_failed":     idea.SearchFailed,
			"synced_at":         synced,
		})
		for _, ref := range idea.References {
			key := normalizeKey(ref.Title)
			if key == "" {
				continue
			}
			year := 0
			if ref.Year != nil {
				year = *ref.Year
			}
			g.References = append(g.References, map[string]any{
				"key":       key,
				"idea_id":   idea.ID.String(),
				"title":     truncateString(ref.Title, 400),
				"year":      year,
				"venue":     ref.Venue,
				"url":       ref.URL,
				"citations": ref.Citations,
				"category":  ref.Category,
				"source":    ref.Source,
				"synced_at": synced,
			})
		}
	}
	return g
}

// UpsertAnalysisGraph writes Paper -> Analysis -> Idea -> Reference and
// Idea -> Topic edges. Re-running it for the same analysis is idempotent.
func UpsertAnalysisGraph(ctx context.Context, client *neo4jdb.Client, log *logger.Logger, g AnalysisGraph) error {
	if client == nil || client.Driver == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)

	// Best-effort schema init.
	{
		stmts := []string{
			`CREATE CONSTRAINT paper_id_unique IF NOT EXISTS FOR (p:Paper) REQUIRE p.id IS UNIQUE`,
			`CREATE CONSTRAINT analysis_id_unique IF NOT EXISTS FOR (a:Analysis) REQUIRE a.id IS UNIQUE`,
			`CREATE CONSTRAINT idea_id_unique IF NOT EXISTS FOR (i:Idea) REQUIRE i.id IS UNIQUE`,
			`CREATE CONSTRAINT reference_key_unique IF NOT EXISTS FOR (r:Reference) REQUIRE r.key IS UNIQUE`,
			`CREATE CONSTRAINT topic_key_unique IF NOT EXISTS FOR (t:Topic) REQUIRE t.key IS UNIQUE`,
		}
		for _, q := range stmts {
			if res, err := session.Run(ctx, q, nil); err != nil {
				if log != nil {
					log.Warn("neo4j schema init failed (continuing)", "error", err)
				}
			} else {
				_, _ = res.Consume(ctx)
			}
		}
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		run := func(q string, params map[string]any) error {
			res, err := tx.Run(ctx, q, params)
			if err != nil {
				return err
			}
			_, err = res.Consume(ctx)
			return err
		}

		if err := run(`
MERGE (p:Paper {id: $paper.id})
SET p += $paper
MERGE (a:Analysis {id: $analysis.id})
SET a += $analysis
MERGE (p)-[:HAS_ANALYSIS]->(a)
`, map[string]any{"paper": g.Paper, "analysis": g.Analysis}); err != nil {
			return nil, err
		}

		// A redelivered completion may have re-ranked ideas; drop old ones.
		if err := run(`
MATCH (a:Analysis {id: $id})-[:PROPOSED]->(i:Idea)
WHERE NOT i.id IN $keep
DETACH DELETE i
`, map[string]any{"id": g.Analysis["id"], "keep": ideaIDs(g.Ideas)}); err != nil {
			return nil, err
		}

		if len(g.Ideas) > 0 {
			if err := run(`
UNWIND $ideas AS i
MERGE (idea:Idea {id: i.id})
SET idea += i
WITH idea, i
MATCH (a:Analysis {id: i.analysis_id})
MERGE (a)-[:PROPOSED]->(idea)
`, map[string]any{"ideas": g.Ideas}); err != nil {
				return nil, err
			}
		}

		if len(g.References) > 0 {
			if err := run(`
UNWIND $refs AS r
MERGE (ref:Reference {key: r.key})
SET ref.title = r.title,
    ref.year = r.year,
    ref.venue = r.venue,
    ref.url = r.url,
    ref.citations = r.citations,
    ref.source = r.source,
    ref.synced_at = r.synced_at
WITH ref, r
MATCH (idea:Idea {id: r.idea_id})
MERGE (idea)-[e:CITES]->(ref)
SET e.category = r.category
`, map[string]any{"refs": g.References}); err != nil {
				return nil, err
			}
		}

		if len(g.Topics) > 0 {
			if err := run(`
UNWIND $topics AS t
MERGE (topic:Topic {key: t.key})
SET topic.name = t.name
WITH topic
MATCH (a:Analysis {id: $id})
MERGE (a)-[:ABOUT_TOPIC]->(topic)
`, map[string]any{"topics": g.Topics, "id": g.Analysis["id"]}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

func ideaIDs(ideas []map[string]any) []string {
	out := make([]string, 0, len(ideas))
	for _, i := range ideas {
		if id, ok := i["id"].(string); ok {
			out = append(out, id)
		}
	}
	return out
}

func normalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func truncateString(s string, max int) string {
	if max <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	if max <= 1 {
		return s[:max]
	}
	return strings.TrimSpace(s[:max-1]) + "…"
}
