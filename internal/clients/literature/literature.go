// Package literature searches external paper indexes for prior work.
package literature

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yungbote/paperlens-backend/internal/pkg/errkind"
	"github.com/yungbote/paperlens-backend/internal/pkg/httpx"
)

const (
	maxAuthors     = 3
	maxAbstract    = 500
	defaultTimeout = 15 * time.Second
)

type Paper struct {
	Title     string   `json:"title"`
	Authors   []string `json:"authors,omitempty"`
	Abstract  string   `json:"abstract,omitempty"`
	Year      int      `json:"year,omitempty"`
	Citations int      `json:"citations,omitempty"`
	Venue     string   `json:"venue,omitempty"`
	URL       string   `json:"url,omitempty"`
	Source    string   `json:"source,omitempty"`
}

// Searcher is what the research pipeline depends on.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Paper, error)
}

// Source is one upstream index. Sources make exactly one HTTP call per
// Search and leave throttling and retries to Client.
type Source interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]Paper, error)
}

// statusError is a non-2xx answer from an upstream index.
type statusError struct {
	source     string
	status     int
	retryAfter time.Duration
	body       string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("%s: http %d", e.source, e.status)
	}
	return fmt.Sprintf("%s: http %d: %s", e.source, e.status, e.body)
}

func (e *statusError) HTTPStatusCode() int { return e.status }

func (e *statusError) RetryAfter() time.Duration { return e.retryAfter }

// checkResponse converts a non-2xx response into a classified error.
// Classification is shared with the LLM layer through httpx.ClassifyStatus.
func checkResponse(source string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	se := &statusError{
		source:     source,
		status:     resp.StatusCode,
		retryAfter: httpx.RetryAfterDuration(resp, 0, 30*time.Second),
		body:       strings.TrimSpace(string(body)),
	}
	return httpx.ClassifyStatus(source, resp.StatusCode, se)
}

// transportError classifies a failed round trip.
func transportError(ctx context.Context, source string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return errkind.Provider(source, err)
}

var (
	nonAlnum = regexp.MustCompile(`[^\p{L}\p{N}]+`)
	spaces   = regexp.MustCompile(`\s+`)
)

// NormalizeTitle is the dedupe key for papers reported by several sources.
func NormalizeTitle(title string) string {
	t := strings.ToLower(title)
	t = nonAlnum.ReplaceAllString(t, " ")
	return strings.TrimSpace(spaces.ReplaceAllString(t, " "))
}

func normalizePaper(p Paper) Paper {
	p.Title = strings.TrimSpace(spaces.ReplaceAllString(p.Title, " "))
	p.Abstract = strings.TrimSpace(spaces.ReplaceAllString(p.Abstract, " "))
	if utf8.RuneCountInString(p.Abstract) > maxAbstract {
		p.Abstract = string([]rune(p.Abstract)[:maxAbstract]) + "..."
	}
	if len(p.Authors) > maxAuthors {
		p.Authors = p.Authors[:maxAuthors]
	}
	return p
}

// Merge concatenates result lists, dropping papers without a title and
// later duplicates of the same normalized title.
func Merge(lists ...[]Paper) []Paper {
	seen := map[string]bool{}
	var out []Paper
	for _, list := range lists {
		for _, p := range list {
			key := NormalizeTitle(p.Title)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, normalizePaper(p))
		}
	}
	return out
}

// FilterRecent keeps papers published within the last years years. Papers
// with an unknown year are kept. When the filter would empty a non-empty
// list the original list is returned.
func FilterRecent(papers []Paper, years int, now time.Time) []Paper {
	if years <= 0 || len(papers) == 0 {
		return papers
	}
	cutoff := now.Year() - years
	out := make([]Paper, 0, len(papers))
	for _, p := range papers {
		if p.Year == 0 || p.Year >= cutoff {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return papers
	}
	return out
}

// BuildQuery joins the idea title with its first three tags.
func BuildQuery(title string, tags []string) string {
	parts := []string{strings.TrimSpace(title)}
	for i, t := range tags {
		if i >= 3 {
			break
		}
		if t = strings.TrimSpace(t); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}
