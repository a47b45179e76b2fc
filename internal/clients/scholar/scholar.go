// Package scholar scrapes public Google Scholar profile pages.
package scholar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/yungbote/paperlens-backend/internal/domain"
	"github.com/yungbote/paperlens-backend/internal/pkg/errkind"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
)

const (
	DefaultBaseURL  = "https://scholar.google.com"
	maxPublications = 15
	userAgent       = "Mozilla/5.0 (compatible; paperlens/1.0)"
)

var ErrMissingUserID = errors.New("scholar url has no user= parameter")

type Scraper interface {
	Scrape(ctx context.Context, profileURL string) (*domain.ScholarProfile, error)
}

type Client struct {
	log     *logger.Logger
	baseURL string
	http    *http.Client
}

func New(log *logger.Logger, baseURL string, hc *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if hc == nil {
		hc = &http.Client{Timeout: 20 * time.Second}
	}
	return &Client{log: log.With("component", "ScholarScraper"), baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// UserID returns the user= query value of a profile URL.
func UserID(profileURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(profileURL))
	if err != nil {
		return "", err
	}
	id := strings.TrimSpace(u.Query().Get("user"))
	if id == "" {
		return "", ErrMissingUserID
	}
	return id, nil
}

func (c *Client) Scrape(ctx context.Context, profileURL string) (*domain.ScholarProfile, error) {
	id, err := UserID(profileURL)
	if err != nil {
		return nil, errkind.Validation("scholar_scrape", err)
	}

	q := url.Values{}
	q.Set("user", id)
	q.Set("hl", "en")
	q.Set("cstart", "0")
	q.Set("pagesize", "100")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/citations?"+q.Encode(), nil)
	if err != nil {
		return nil, errkind.Scrape("scholar_scrape", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errkind.Scrape("scholar_scrape", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errkind.Scrape("scholar_scrape", fmt.Errorf("http %d for user %s", resp.StatusCode, id))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errkind.Scrape("scholar_scrape", fmt.Errorf("parse html: %w", err))
	}
	prof := parseProfile(doc)
	prof.ScholarID = id
	if prof.Name == "" {
		return nil, errkind.Scrape("scholar_scrape", fmt.Errorf("no author name on profile page for user %s", id))
	}
	c.log.Info("scholar profile scraped", "scholar_id", id, "publications", len(prof.Publications))
	return prof, nil
}

func parseProfile(doc *goquery.Document) *domain.ScholarProfile {
	prof := &domain.ScholarProfile{
		Name:        text(doc.Find("#gsc_prf_in").First()),
		Affiliation: text(doc.Find(".gsc_prf_il").First()),
	}
	doc.Find("#gsc_prf_int a").Each(func(_ int, s *goquery.Selection) {
		if v := text(s); v != "" {
			prof.Interests = append(prof.Interests, v)
		}
	})

	// Stats table cells: citations (all, since), h-index (all, since), i10 (all, since).
	stats := doc.Find("td.gsc_rsb_std")
	prof.TotalCitations = atoi(text(stats.Eq(0)))
	prof.HIndex = atoi(text(stats.Eq(2)))

	doc.Find("tr.gsc_a_tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		title := text(row.Find("a.gsc_a_at").First())
		if title == "" {
			return true
		}
		gray := row.Find("td.gsc_a_t div.gs_gray")
		pub := domain.ScholarPublication{
			Title:     title,
			Authors:   text(gray.Eq(0)),
			Venue:     text(gray.Eq(1)),
			Citations: atoi(text(row.Find("a.gsc_a_ac").First())),
			Year:      atoi(text(row.Find("td.gsc_a_y span").First())),
		}
		prof.Publications = append(prof.Publications, pub)
		return len(prof.Publications) < maxPublications
	})
	return prof
}

func text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	if err != nil {
		return 0
	}
	return n
}

var _ Scraper = (*Client)(nil)
