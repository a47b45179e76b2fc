package jobrun

const (
	WorkflowName = "job_run"
	ActivityRun  = "job_run_execute"

	// ErrTypeDead marks a job the handler failed permanently; Temporal does
	// not retry it.
	ErrTypeDead   = "JobDead"
	ErrTypeFailed = "JobFailed"
)

type RunResult struct {
	JobID    string `json:"job_id"`
	Status   string `json:"status"`
	Stage    string `json:"stage,omitempty"`
	Progress int    `json:"progress,omitempty"`
	Error    string `json:"error,omitempty"`
}
