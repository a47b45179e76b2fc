package jobrun

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/paperlens-backend/internal/domain/jobs"
)

// Workflow runs one attempt of the job whose id is the workflow id.
// Retries happen at the workflow level so each attempt re-reads the row;
// a dead job ends the workflow with a non-retryable error.
func Workflow(ctx workflow.Context) error {
	jobID := strings.TrimSpace(workflow.GetInfo(ctx).WorkflowExecution.ID)
	if jobID == "" {
		return temporal.NewNonRetryableApplicationError("missing job id", ErrTypeDead, nil)
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Hour,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	var out RunResult
	if err := workflow.ExecuteActivity(ctx, ActivityRun, jobID).Get(ctx, &out); err != nil {
		return err
	}
	return outcome(out)
}

func outcome(out RunResult) error {
	switch out.Status {
	case jobs.StatusSucceeded, jobs.StatusCanceled:
		return nil
	case jobs.StatusDead:
		return temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("job %s failed permanently at %s: %s", out.JobID, out.Stage, out.Error), ErrTypeDead, nil)
	default:
		return temporal.NewApplicationError(
			fmt.Sprintf("job %s failed at %s: %s", out.JobID, out.Stage, out.Error), ErrTypeFailed)
	}
}
