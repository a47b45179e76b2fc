package steps

import (
	"context"
	"errors"
	"strings"

	"github.com/yungbote/paperlens-backend/internal/domain"
	"github.com/yungbote/paperlens-backend/internal/modules/research/prompts"
	"github.com/yungbote/paperlens-backend/internal/platform/llm"
	"github.com/yungbote/paperlens-backend/internal/platform/pdftext"
)

type extractionResponse struct {
	domain.Extraction
}

func (r *extractionResponse) Validate() error {
	if strings.TrimSpace(r.Summary) == "" {
		return errors.New("summary is required")
	}
	if len(nonEmpty(r.Concepts)) == 0 {
		return errors.New("concepts must not be empty")
	}
	if len(nonEmpty(r.Findings)) == 0 {
		return errors.New("findings must not be empty")
	}
	return nil
}

// Extract runs the structured reading of a paper.
func Extract(ctx context.Context, deps LLMDeps, paperText string) (domain.Extraction, error) {
	p, err := prompts.Build(prompts.PromptExtract, prompts.Input{
		PaperText: pdftext.Truncate(paperText, PaperTextLimit),
	})
	if err != nil {
		return domain.Extraction{}, err
	}
	var out extractionResponse
	if err := llm.GenerateJSON(ctx, deps.LLM, "extract", llm.Request{System: p.System, Prompt: p.User, Model: deps.Model}, &out); err != nil {
		return domain.Extraction{}, err
	}
	ex := out.Extraction
	ex.Summary = strings.TrimSpace(ex.Summary)
	ex.Concepts = capList(nonEmpty(ex.Concepts), maxConcepts)
	ex.Findings = capList(nonEmpty(ex.Findings), maxFindings)
	ex.Limitations = nonEmpty(ex.Limitations)
	ex.Datasets = nonEmpty(ex.Datasets)
	ex.FutureWork = nonEmpty(ex.FutureWork)
	deps.Log.Info("extraction done", "concepts", len(ex.Concepts), "findings", len(ex.Findings))
	return ex, nil
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func capList(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
