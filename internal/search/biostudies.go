// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/expression-engine/internal/httputil"
	"github.com/pdiddy/expression-engine/pkg/types"
)

// biostudiesAPIBase is overridable in tests.
var biostudiesAPIBase = "https://www.ebi.ac.uk/biostudies/api/v1"

// BioStudies searches EBI's BioStudies database, which hosts ArrayExpress
// functional-genomics submissions (E-MTAB accessions).
type BioStudies struct {
	Client *http.Client
}

// Name implements Backend.
func (b *BioStudies) Name() string { return "biostudies" }

type biostudiesResponse struct {
	Hits []biostudiesHit `json:"hits"`
}

type biostudiesHit struct {
	Accession   string `json:"accession"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
}

// Search implements Backend.
func (b *BioStudies) Search(ctx context.Context, query Query, cfg types.SearchConfig) ([]types.SearchResult, error) {
	var terms []string
	if query.FreeText != "" {
		terms = append(terms, query.FreeText)
	}
	terms = append(terms, query.Keywords...)
	if query.Organism != "" {
		terms = append(terms, query.Organism)
	}

	q := url.Values{}
	q.Set("query", strings.Join(terms, " "))
	q.Set("pageSize", fmt.Sprintf("%d", maxResults(cfg)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, biostudiesAPIBase+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	ua := cfg.UserAgent
	if cfg.ContactEmail != "" {
		ua = strings.TrimSpace(ua + " (mailto:" + cfg.ContactEmail + ")")
	}
	req.Header.Set("User-Agent", ua)

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("BioStudies request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("BioStudies returned HTTP %d", resp.StatusCode)
	}

	var br biostudiesResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return nil, fmt.Errorf("parsing BioStudies response: %w", err)
	}

	results := make([]types.SearchResult, 0, len(br.Hits))
	for _, hit := range br.Hits {
		r := types.SearchResult{
			Accession: hit.Accession,
			Title:     strings.TrimSpace(hit.Title),
			Source:    b.Name(),
		}
		if t, err := time.Parse("2006-01-02", hit.ReleaseDate); err == nil {
			r.Released = t
		}
		results = append(results, r)
	}
	return results, nil
}
