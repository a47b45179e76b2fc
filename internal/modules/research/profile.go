package research

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/paperlens-backend/internal/domain"
	"github.com/yungbote/paperlens-backend/internal/domain/user"
	"github.com/yungbote/paperlens-backend/internal/modules/research/steps"
	"github.com/yungbote/paperlens-backend/internal/pkg/dbctx"
	"github.com/yungbote/paperlens-backend/internal/pkg/errkind"
)

type BuildProfileInput struct {
	ProfileID uuid.UUID
	Report    Reporter
}

type BuildProfileOutput struct {
	Profile domain.StructuredProfile
	// ScrapeFailed is set when the Scholar page could not be read and the
	// profile was built from the description alone.
	ScrapeFailed bool
}

// BuildProfile scrapes the Scholar page when one is given, runs the
// profile prompt and stores the structured result as ready.
func (u Usecases) BuildProfile(ctx context.Context, in BuildProfileInput) (BuildProfileOutput, error) {
	dbc := dbctx.Context{Ctx: ctx}
	prof, err := u.deps.Profiles.GetByID(dbc, in.ProfileID)
	if err != nil {
		return BuildProfileOutput{}, err
	}
	report := func(stage string, pct int, msg string) {
		if in.Report != nil {
			in.Report(stage, pct, msg)
		}
	}

	var (
		out     BuildProfileOutput
		scraped *domain.ScholarProfile
	)
	if url := strings.TrimSpace(prof.ScholarURL); url != "" {
		if u.deps.Scholar == nil {
			return out, errkind.Validationf("profile_build", "scholar scraping is not configured")
		}
		report("scrape", 20, "Reading Google Scholar profile")
		scraped, err = u.deps.Scholar.Scrape(ctx, url)
		if err != nil {
			if strings.TrimSpace(prof.Description) == "" {
				return out, err
			}
			u.deps.Log.Warn("scholar scrape failed; building from description", "profile_id", prof.ID, "error", err)
			out.ScrapeFailed = true
			scraped = nil
		}
	}

	report("profile", 60, "Building research profile")
	sp, err := steps.BuildProfile(ctx, u.readerDeps(), steps.ProfileInput{
		Description:     prof.Description,
		ExperienceLevel: prof.ExperienceLevel,
		Scholar:         scraped,
	})
	if err != nil {
		return out, err
	}
	out.Profile = sp

	updates := map[string]interface{}{
		"profile": mustJSON(sp),
		"status":  user.ProfileStatusReady,
		"error":   "",
	}
	if scraped != nil {
		updates["scholar_data"] = mustJSON(scraped)
	}
	if err := u.deps.Profiles.UpdateFields(dbc, prof.ID, updates); err != nil {
		return out, err
	}
	report("done", 100, "Profile ready")
	return out, nil
}
