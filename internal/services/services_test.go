package services

import (
	"context"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/paperlens-backend/internal/data/repos"
	"github.com/yungbote/paperlens-backend/internal/data/repos/testutil"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
	"github.com/yungbote/paperlens-backend/internal/realtime"
)

type recordingEmitter struct {
	mu   sync.Mutex
	msgs []realtime.SSEMessage
}

func (e *recordingEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.msgs = append(e.msgs, msg)
}

func (e *recordingEmitter) events(channel string) []realtime.SSEEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []realtime.SSEEvent
	for _, m := range e.msgs {
		if m.Channel == channel {
			out = append(out, m.Event)
		}
	}
	return out
}

type env struct {
	db     *gorm.DB
	log    *logger.Logger
	repos  repos.Repos
	emit   *recordingEmitter
	notify JobNotifier
	jobs   JobService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.DB(t)
	log := logger.Nop()
	r := repos.New(db, log)
	emit := &recordingEmitter{}
	notify := NewJobNotifier(emit)
	return &env{
		db:     db,
		log:    log,
		repos:  r,
		emit:   emit,
		notify: notify,
		jobs:   NewJobService(db, log, r.JobRun, notify, nil, ""),
	}
}
