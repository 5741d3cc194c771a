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

// geoAPIBase is overridable in tests.
var geoAPIBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// GEO searches NCBI's GEO DataSets database through the E-utilities.
type GEO struct {
	Client *http.Client
}

// Name implements Backend.
func (g *GEO) Name() string { return "geo" }

type geoESearch struct {
	Result struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type geoESummary struct {
	Result map[string]json.RawMessage `json:"result"`
}

type geoRecord struct {
	Accession string `json:"accession"`
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Taxon     string `json:"taxon"`
	NSamples  int    `json:"n_samples"`
	PDat      string `json:"pdat"`
	EntryType string `json:"entrytype"`
}

// Search implements Backend: esearch resolves UIDs for the query, esummary
// fetches the records. Only series entries (GSE) are returned.
func (g *GEO) Search(ctx context.Context, query Query, cfg types.SearchConfig) ([]types.SearchResult, error) {
	var terms []string
	if query.FreeText != "" {
		terms = append(terms, query.FreeText)
	}
	terms = append(terms, query.Keywords...)
	term := strings.Join(terms, " AND ")
	if query.Organism != "" {
		term += fmt.Sprintf(` AND "%s"[Organism]`, query.Organism)
	}
	term += " AND gse[ETYP]"

	q := url.Values{}
	q.Set("db", "gds")
	q.Set("term", term)
	q.Set("retmode", "json")
	q.Set("retmax", fmt.Sprintf("%d", maxResults(cfg)))
	if cfg.NCBIAPIKey != "" {
		q.Set("api_key", cfg.NCBIAPIKey)
	}

	var es geoESearch
	if err := g.get(ctx, "esearch.fcgi", q, cfg, &es); err != nil {
		return nil, fmt.Errorf("esearch: %w", err)
	}
	if len(es.Result.IDList) == 0 {
		return nil, nil
	}

	q = url.Values{}
	q.Set("db", "gds")
	q.Set("id", strings.Join(es.Result.IDList, ","))
	q.Set("retmode", "json")
	if cfg.NCBIAPIKey != "" {
		q.Set("api_key", cfg.NCBIAPIKey)
	}

	var sum geoESummary
	if err := g.get(ctx, "esummary.fcgi", q, cfg, &sum); err != nil {
		return nil, fmt.Errorf("esummary: %w", err)
	}

	var results []types.SearchResult
	for _, uid := range es.Result.IDList {
		raw, ok := sum.Result[uid]
		if !ok {
			continue
		}
		var rec geoRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		r := types.SearchResult{
			Accession: rec.Accession,
			Title:     strings.TrimSpace(rec.Title),
			Summary:   strings.TrimSpace(rec.Summary),
			Organism:  rec.Taxon,
			Samples:   rec.NSamples,
			Source:    g.Name(),
		}
		if t, err := time.Parse("2006/01/02", rec.PDat); err == nil {
			r.Released = t
		}
		results = append(results, r)
	}
	return results, nil
}

func (g *GEO) get(ctx context.Context, endpoint string, q url.Values, cfg types.SearchConfig, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, geoAPIBase+"/"+endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, g.Client, req, 0)
	if err != nil {
		return fmt.Errorf("E-utilities request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("E-utilities returned HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing E-utilities response: %w", err)
	}
	return nil
}

func maxResults(cfg types.SearchConfig) int {
	if cfg.MaxResults > 0 {
		return cfg.MaxResults
	}
	return 20
}
