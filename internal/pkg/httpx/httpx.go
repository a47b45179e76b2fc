package httpx

import (
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/paperlens-backend/internal/pkg/errkind"
)

func IsRetryableHTTPStatus(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}

// ClassifyStatus maps a non-2xx status from an outbound collaborator onto the
// error taxonomy. 429 is a rate limit, 408 and 5xx are retryable provider
// failures, and any other 4xx is a provider failure that retrying won't fix.
func ClassifyStatus(op string, status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return errkind.RateLimit(op, err)
	case IsRetryableHTTPStatus(status):
		return errkind.Provider(op, err)
	case status >= 400:
		return NoRetry(errkind.Provider(op, err))
	default:
		return errkind.Provider(op, err)
	}
}

// RetryAfterDuration reads Retry-After as either delta-seconds or an HTTP
// date, capped at max.
func RetryAfterDuration(resp *http.Response, fallback, max time.Duration) time.Duration {
	sleepFor := fallback
	if resp != nil {
		if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
				sleepFor = time.Duration(secs) * time.Second
			} else if at, err := http.ParseTime(ra); err == nil {
				if d := time.Until(at); d > 0 {
					sleepFor = d
				}
			}
		}
	}
	if max > 0 && sleepFor > max {
		sleepFor = max
	}
	return sleepFor
}

// JitterSleep spreads base by +/-20% so concurrent idea searches don't retry
// arXiv in lockstep.
func JitterSleep(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	delta := base.Seconds() * 0.2
	low := base.Seconds() - delta
	v := low + rand.Float64()*(2*delta)
	return time.Duration(v * float64(time.Second))
}
