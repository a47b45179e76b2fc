package literature

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const ArxivBaseURL = "http://export.arxiv.org/api/query"

type Arxiv struct {
	BaseURL string
	HTTP    *http.Client
}

func NewArxiv(baseURL string, hc *http.Client) *Arxiv {
	if baseURL == "" {
		baseURL = ArxivBaseURL
	}
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Arxiv{BaseURL: baseURL, HTTP: hc}
}

func (a *Arxiv) Name() string { return "arxiv" }

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string       `xml:"id"`
	Title     string       `xml:"title"`
	Summary   string       `xml:"summary"`
	Published string       `xml:"published"`
	Authors   []atomAuthor `xml:"author"`
	Journal   string       `xml:"http://arxiv.org/schemas/atom journal_ref"`
	Category  []atomCat    `xml:"category"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomCat struct {
	Term string `xml:"term,attr"`
}

func (a *Arxiv) Search(ctx context.Context, query string, limit int) ([]Paper, error) {
	q := url.Values{}
	q.Set("search_query", "all:"+query)
	q.Set("start", "0")
	q.Set("max_results", strconv.Itoa(limit))
	q.Set("sortBy", "relevance")
	q.Set("sortOrder", "descending")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/atom+xml")
	resp, err := a.HTTP.Do(req)
	if err != nil {
		return nil, transportError(ctx, a.Name(), err)
	}
	defer resp.Body.Close()
	if err := checkResponse(a.Name(), resp); err != nil {
		return nil, err
	}

	var feed atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, transportError(ctx, a.Name(), fmt.Errorf("decode atom feed: %w", err))
	}
	out := make([]Paper, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		p := Paper{
			Title:    e.Title,
			Abstract: e.Summary,
			URL:      strings.TrimSpace(e.ID),
			Venue:    strings.TrimSpace(e.Journal),
			Source:   a.Name(),
		}
		if p.Venue == "" && len(e.Category) > 0 {
			p.Venue = "arXiv " + e.Category[0].Term
		}
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Published)); err == nil {
			p.Year = t.Year()
		}
		for _, au := range e.Authors {
			if n := strings.TrimSpace(au.Name); n != "" {
				p.Authors = append(p.Authors, n)
			}
		}
		out = append(out, p)
	}
	return out, nil
}
