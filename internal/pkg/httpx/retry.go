package httpx

import (
	"context"
	"errors"
	"time"

	"github.com/yungbote/paperlens-backend/internal/pkg/errkind"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
)

// Policy bounds retries for one class of failure.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Policies is the retry table shared by every outbound collaborator call.
// Parse failures get a single corrective attempt from the LLM layer instead.
var Policies = map[errkind.Kind]Policy{
	errkind.KindProvider:  {MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 10 * time.Second},
	errkind.KindRateLimit: {MaxAttempts: 3, BaseDelay: 2 * time.Second, MaxDelay: 20 * time.Second},
}

func PolicyFor(kind errkind.Kind) Policy {
	if p, ok := Policies[kind]; ok {
		return p
	}
	return Policy{MaxAttempts: 1}
}

// RetryAfterer is implemented by errors that carry a server-provided delay.
type RetryAfterer interface {
	RetryAfter() time.Duration
}

type noRetry struct{ err error }

func (n *noRetry) Error() string { return n.err.Error() }
func (n *noRetry) Unwrap() error { return n.err }

// NoRetry marks err as not worth another attempt regardless of its kind.
func NoRetry(err error) error {
	if err == nil {
		return nil
	}
	return &noRetry{err: err}
}

// Retrier runs an operation under the kind-keyed policy table.
type Retrier struct {
	Log      *logger.Logger
	Policies map[errkind.Kind]Policy
	// Sleep overrides the backoff wait; nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (r *Retrier) policy(kind errkind.Kind) Policy {
	if r != nil && r.Policies != nil {
		if p, ok := r.Policies[kind]; ok {
			return p
		}
		return Policy{MaxAttempts: 1}
	}
	return PolicyFor(kind)
}

// Do calls fn until it succeeds, the error kind's attempt budget is spent, or
// ctx ends. The attempt counter is shared across kinds.
func (r *Retrier) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	sleep := sleepCtx
	if r != nil && r.Sleep != nil {
		sleep = r.Sleep
	}
	attempt := 0
	for {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		var nr *noRetry
		if errors.As(err, &nr) {
			return err
		}
		kind := errkind.KindOf(err)
		p := r.policy(kind)
		if attempt >= p.MaxAttempts {
			return err
		}
		delay := p.BaseDelay << (attempt - 1)
		var ra RetryAfterer
		if errors.As(err, &ra) && ra.RetryAfter() > delay {
			delay = ra.RetryAfter()
		}
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
		delay = JitterSleep(delay)
		if r != nil && r.Log != nil {
			r.Log.Warn("retrying outbound call", "op", op, "kind", kind, "attempt", attempt, "sleep_ms", delay.Milliseconds(), "error", err)
		}
		if serr := sleep(ctx, delay); serr != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
