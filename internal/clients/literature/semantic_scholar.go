package literature

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

const SemanticScholarBaseURL = "https://api.semanticscholar.org"

// SemanticScholar queries the Graph API paper search. An API key is optional
// and only raises the upstream quota.
type SemanticScholar struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func NewSemanticScholar(baseURL, apiKey string, hc *http.Client) *SemanticScholar {
	if baseURL == "" {
		baseURL = SemanticScholarBaseURL
	}
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &SemanticScholar{BaseURL: baseURL, APIKey: apiKey, HTTP: hc}
}

func (s *SemanticScholar) Name() string { return "semantic_scholar" }

type s2Response struct {
	Data []struct {
		Title         string `json:"title"`
		Abstract      string `json:"abstract"`
		Year          int    `json:"year"`
		CitationCount int    `json:"citationCount"`
		Venue         string `json:"venue"`
		URL           string `json:"url"`
		Authors       []struct {
			Name string `json:"name"`
		} `json:"authors"`
	} `json:"data"`
}

func (s *SemanticScholar) Search(ctx context.Context, query string, limit int) ([]Paper, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("fields", "title,abstract,year,citationCount,authors,venue,url")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/graph/v1/paper/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if s.APIKey != "" {
		req.Header.Set("x-api-key", s.APIKey)
	}
	resp, err := s.HTTP.Do(req)
	if err != nil {
		return nil, transportError(ctx, s.Name(), err)
	}
	defer resp.Body.Close()
	if err := checkResponse(s.Name(), resp); err != nil {
		return nil, err
	}

	var body s2Response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, transportError(ctx, s.Name(), fmt.Errorf("decode response: %w", err))
	}
	out := make([]Paper, 0, len(body.Data))
	for _, d := range body.Data {
		p := Paper{
			Title:     d.Title,
			Abstract:  d.Abstract,
			Year:      d.Year,
			Citations: d.CitationCount,
			Venue:     d.Venue,
			URL:       d.URL,
			Source:    s.Name(),
		}
		for _, a := range d.Authors {
			p.Authors = append(p.Authors, a.Name)
		}
		out = append(out, p)
	}
	return out, nil
}
