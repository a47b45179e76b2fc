package services

import (
	"context"

	"github.com/google/uuid"

	types "github.com/yungbote/paperlens-backend/internal/domain"
	"github.com/yungbote/paperlens-backend/internal/realtime"
)

// JobNotifier publishes job lifecycle events on the channel of the entity
// the job works on, so a client watching an analysis sees its jobs.
type JobNotifier interface {
	JobCreated(job *types.JobRun)
	JobProgress(job *types.JobRun, stage string, progress int, message string)
	JobFailed(job *types.JobRun, stage string, errorMessage string)
	JobDone(job *types.JobRun)
	AnalysisStatus(a *types.Analysis)
}

type jobNotifier struct {
	emit SSEEmitter
}

func NewJobNotifier(emit SSEEmitter) JobNotifier {
	return &jobNotifier{emit: emit}
}

func jobChannel(job *types.JobRun) string {
	if job == nil || job.EntityID == nil || *job.EntityID == uuid.Nil {
		return ""
	}
	return job.EntityID.String()
}

func (n *jobNotifier) send(channel string, event realtime.SSEEvent, data map[string]any) {
	if channel == "" {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{Channel: channel, Event: event, Data: data})
}

func (n *jobNotifier) JobCreated(job *types.JobRun) {
	n.send(jobChannel(job), realtime.SSEEventJobCreated, map[string]any{"job": job})
}

func (n *jobNotifier) JobProgress(job *types.JobRun, stage string, progress int, message string) {
	n.send(jobChannel(job), realtime.SSEEventJobProgress, map[string]any{
		"job_id":   job.ID,
		"job_type": job.JobType,
		"stage":    stage,
		"progress": progress,
		"message":  message,
	})
}

func (n *jobNotifier) JobFailed(job *types.JobRun, stage string, errorMessage string) {
	n.send(jobChannel(job), realtime.SSEEventJobFailed, map[string]any{
		"job_id":   job.ID,
		"job_type": job.JobType,
		"stage":    stage,
		"status":   job.Status,
		"error":    errorMessage,
	})
}

func (n *jobNotifier) JobDone(job *types.JobRun) {
	n.send(jobChannel(job), realtime.SSEEventJobDone, map[string]any{
		"job_id":   job.ID,
		"job_type": job.JobType,
		"result":   job.Result,
	})
}

func (n *jobNotifier) AnalysisStatus(a *types.Analysis) {
	if a == nil {
		return
	}
	n.send(a.ID.String(), realtime.SSEEventAnalysisStatus, map[string]any{
		"analysis_id":   a.ID,
		"status":        a.Status,
		"progress":      a.Progress,
		"error_kind":    a.ErrorKind,
		"error_message": a.ErrorMessage,
	})
}
