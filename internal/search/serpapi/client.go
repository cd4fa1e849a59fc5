// Package serpapi discovers job leads through the SerpAPI Google Search
// endpoint. Results from company-owned career pages are tagged DIRECT and
// preferred over job-board aggregators, which carry a higher risk of
// automated filters.
package serpapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mitchellh/mapstructure"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"applyflow/internal/posting"
)

const searchURL = "https://serpapi.com/search.json"

// Domains that host third-party listings rather than company career pages.
var aggregatorDomains = map[string]bool{
	"indeed.com":        true,
	"linkedin.com":      true,
	"glassdoor.com":     true,
	"ziprecruiter.com":  true,
	"monster.com":       true,
	"simplyhired.com":   true,
	"snagajob.com":      true,
	"careerbuilder.com": true,
	"lever.co":          true,
	"greenhouse.io":     true,
	"angel.co":          true,
}

// Params describes one job discovery query.
type Params struct {
	Title      string   `mapstructure:"title" yaml:"title"`
	Location   string   `mapstructure:"location" yaml:"location"`
	Remote     bool     `mapstructure:"remote" yaml:"remote"`
	ExtraTerms []string `mapstructure:"extra-terms" yaml:"extra-terms"`
	MaxResults int      `mapstructure:"max-results" yaml:"max-results"`
}

type Client struct {
	http   *resty.Client
	apiKey string
	engine string
	logger *zap.Logger
}

func New(apiKey string, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("serpapi api key is required")
	}
	http := resty.New().
		SetBaseURL(searchURL).
		SetTimeout(30 * time.Second)
	return &Client{
		http:   http,
		apiKey: apiKey,
		engine: "google",
		logger: logger,
	}, nil
}

// SearchJobs runs a Google search tailored for job discovery and converts
// the organic results into postings.
func (c *Client) SearchJobs(ctx context.Context, params Params) (*posting.Postings, error) {
	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}

	queryParts := []string{params.Title, "job", params.Location}
	if params.Remote {
		queryParts = append(queryParts, "remote")
	}
	queryParts = append(queryParts, params.ExtraTerms...)
	var filled []string
	for _, part := range queryParts {
		if strings.TrimSpace(part) != "" {
			filled = append(filled, part)
		}
	}
	query := strings.Join(filled, " ")

	num := maxResults
	if num > 20 {
		num = 20
	}

	c.logger.Debug("serpapi search request", zap.String("query", query), zap.Int("num", num))

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"engine":  c.engine,
			"q":       query,
			"api_key": c.apiKey,
			"num":     strconv.Itoa(num),
		}).
		Get("")
	if err != nil {
		return nil, fmt.Errorf("serpapi search: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("serpapi search: bad status %s", resp.Status())
	}

	results := ParseResults(resp.Body(), params.Location)
	if len(results.Items) > maxResults {
		results.Items = results.Items[:maxResults]
	}

	c.logger.Info("serpapi search completed",
		zap.String("query", query),
		zap.Int("postings", results.Len()),
	)
	return results, nil
}

// organicResult is the slice of a SerpAPI search hit this client consumes.
type organicResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// ParseResults converts a SerpAPI payload into postings. Company and title
// are split best-effort from the result title; the source domain decides
// the DIRECT/AGGREGATOR tag.
func ParseResults(payload []byte, location string) *posting.Postings {
	var results []organicResult
	cfg := &mapstructure.DecoderConfig{
		Metadata: nil,
		Result:   &results,
		TagName:  "json",
	}
	decoder, _ := mapstructure.NewDecoder(cfg)
	_ = decoder.Decode(gjson.GetBytes(payload, "organic_results").Value())

	postings := &posting.Postings{}
	for _, entry := range results {
		title := strings.TrimSpace(entry.Title)
		if title == "" || entry.Link == "" {
			continue
		}

		domain := normalizeDomain(entry.Link)
		source := posting.SourceDirect
		if isAggregator(domain) {
			source = posting.SourceAggregator
		}

		role, company := splitTitle(title)
		if company == "" {
			company = domain
		}

		postings.Items = append(postings.Items, &posting.Posting{
			Title:       role,
			Company:     company,
			Location:    location,
			Description: strings.TrimSpace(entry.Snippet),
			URL:         entry.Link,
			Source:      source,
		})
	}
	return postings
}

// FilterDirect keeps only results that appear to come from company-owned
// domains.
func FilterDirect(p *posting.Postings) *posting.Postings {
	direct := &posting.Postings{}
	for _, item := range p.Items {
		if item.Source == posting.SourceDirect {
			direct.Items = append(direct.Items, item)
		}
	}
	return direct
}

func normalizeDomain(link string) string {
	parsed, err := url.Parse(link)
	if err != nil {
		return ""
	}
	domain := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(domain, "www.")
}

func isAggregator(domain string) bool {
	if domain == "" {
		return false
	}
	if aggregatorDomains[domain] {
		return true
	}
	for agg := range aggregatorDomains {
		if strings.HasSuffix(domain, "."+agg) {
			return true
		}
	}
	return false
}

var titleSeparators = []string{" - ", " – ", " | ", " at ", " @ "}

// splitTitle breaks a search result title like "Staff Engineer - Acme" into
// role and company.
func splitTitle(title string) (role, company string) {
	for _, sep := range titleSeparators {
		if idx := strings.Index(title, sep); idx > 0 {
			return strings.TrimSpace(title[:idx]), strings.TrimSpace(title[idx+len(sep):])
		}
	}
	return title, ""
}
