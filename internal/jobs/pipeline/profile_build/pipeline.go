package profile_build

import (
	"context"
	"fmt"

	"github.com/yungbote/paperlens-backend/internal/domain/user"
	jobrt "github.com/yungbote/paperlens-backend/internal/jobs/runtime"
	"github.com/yungbote/paperlens-backend/internal/modules/research"
	"github.com/yungbote/paperlens-backend/internal/pkg/dbctx"
	"github.com/yungbote/paperlens-backend/internal/pkg/errkind"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	profileID, ok := jc.PayloadUUID("profile_id")
	if !ok {
		jc.FailPermanent("validate", fmt.Errorf("missing profile_id"))
		return nil
	}

	jc.Progress("profile", 5, "Building research profile")
	out, err := p.research.BuildProfile(jc.Ctx, research.BuildProfileInput{
		ProfileID: profileID,
		Report:    jc.Progress,
	})
	if err != nil {
		kind := errkind.KindOf(err)
		if jc.Ctx.Err() != nil || (kind == errkind.KindInternal && jc.Job.Attempts < p.maxAttempts) {
			p.log.Warn("profile build failed; job will be retried", "profile_id", profileID, "error", err)
			jc.Fail("profile", err)
			return nil
		}
		p.log.Error("profile build failed", "profile_id", profileID, "kind", kind, "error", err)
		if uerr := p.profiles.UpdateFields(dbctx.Context{Ctx: context.WithoutCancel(jc.Ctx)}, profileID, map[string]interface{}{
			"status": user.ProfileStatusError,
			"error":  fmt.Sprintf("%s: %s", kind, err.Error()),
		}); uerr != nil {
			p.log.Error("recording profile failure failed", "profile_id", profileID, "error", uerr)
		}
		jc.FailPermanent("profile", err)
		return nil
	}

	jc.Succeed("done", map[string]any{
		"profile_id":    profileID.String(),
		"scrape_failed": out.ScrapeFailed,
	})
	return nil
}
