package jobrun

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/paperlens-backend/internal/domain/jobs"
)

func TestOutcome(t *testing.T) {
	assert.NoError(t, outcome(RunResult{Status: jobs.StatusSucceeded}))
	assert.NoError(t, outcome(RunResult{Status: jobs.StatusCanceled}))

	var appErr *temporal.ApplicationError
	err := outcome(RunResult{JobID: "j", Status: jobs.StatusDead, Stage: "reading", Error: "parse: no text"})
	require.True(t, errors.As(err, &appErr))
	assert.True(t, appErr.NonRetryable())
	assert.Equal(t, ErrTypeDead, appErr.Type())

	err = outcome(RunResult{JobID: "j", Status: jobs.StatusFailed, Stage: "reading"})
	require.True(t, errors.As(err, &appErr))
	assert.False(t, appErr.NonRetryable())
	assert.Equal(t, ErrTypeFailed, appErr.Type())
}

func TestWorkflowEndsOnDeadJob(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflowWithOptions(Workflow, workflow.RegisterOptions{Name: WorkflowName})
	env.RegisterActivityWithOptions((&Activities{}).Run, activity.RegisterOptions{Name: ActivityRun})
	env.OnActivity(ActivityRun, mock.Anything, mock.Anything).
		Return(RunResult{JobID: "j", Status: jobs.StatusDead, Stage: "validate"}, nil).Once()

	env.ExecuteWorkflow(WorkflowName)
	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.True(t, appErr.NonRetryable())
	env.AssertExpectations(t)
}

func TestWorkflowSucceeds(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflowWithOptions(Workflow, workflow.RegisterOptions{Name: WorkflowName})
	env.RegisterActivityWithOptions((&Activities{}).Run, activity.RegisterOptions{Name: ActivityRun})
	env.OnActivity(ActivityRun, mock.Anything, mock.Anything).
		Return(RunResult{JobID: "j", Status: jobs.StatusSucceeded}, nil).Once()

	env.ExecuteWorkflow(WorkflowName)
	require.True(t, env.IsWorkflowCompleted())
	assert.NoError(t, env.GetWorkflowError())
}
