// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package annotate enriches gene lists with symbol, name, and functional
// summary from the mygene.info batch query API.
package annotate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/expression-engine/internal/httputil"
	"github.com/pdiddy/expression-engine/pkg/types"
)

// apiBase is overridable in tests.
var apiBase = "https://mygene.info/v3"

const defaultBatchSize = 500

// queryScopes covers the identifier kinds counts matrices carry.
const queryScopes = "symbol,ensembl.gene,entrezgene"

// hit is one element of the mygene.info batch response.
type hit struct {
	Query    string `json:"query"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Summary  string `json:"summary"`
	NotFound bool   `json:"notfound"`
}

// Genes queries mygene.info for the given identifiers in batches and
// returns one annotation per resolved gene. Unresolved identifiers are
// counted but not returned.
func Genes(ctx context.Context, client *http.Client, genes []string, cfg types.AnnotateConfig, w io.Writer) ([]types.Annotation, error) {
	if len(genes) == 0 {
		return nil, fmt.Errorf("no genes to annotate")
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	species := cfg.Species
	if species == "" {
		species = "human"
	}

	var (
		annotations []types.Annotation
		missing     int
	)
	for start := 0; start < len(genes); start += batchSize {
		end := start + batchSize
		if end > len(genes) {
			end = len(genes)
		}

		hits, err := queryBatch(ctx, client, genes[start:end], species, cfg)
		if err != nil {
			return nil, fmt.Errorf("annotating genes %d-%d: %w", start+1, end, err)
		}

		seen := make(map[string]bool, len(hits))
		for _, h := range hits {
			if h.NotFound || seen[h.Query] {
				if h.NotFound {
					missing++
				}
				continue
			}
			seen[h.Query] = true
			annotations = append(annotations, types.Annotation{
				Gene:    h.Query,
				Symbol:  h.Symbol,
				Name:    h.Name,
				Summary: h.Summary,
			})
		}
	}

	fmt.Fprintf(w, "annotated %d/%d genes (%d not found)\n", len(annotations), len(genes), missing)
	return annotations, nil
}

func queryBatch(ctx context.Context, client *http.Client, genes []string, species string, cfg types.AnnotateConfig) ([]hit, error) {
	form := url.Values{}
	form.Set("q", strings.Join(genes, ","))
	form.Set("scopes", queryScopes)
	form.Set("fields", "symbol,name,summary")
	form.Set("species", species)
	if cfg.ContactEmail != "" {
		form.Set("email", cfg.ContactEmail)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		apiBase+"/query", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("mygene.info request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mygene.info returned HTTP %d", resp.StatusCode)
	}

	var hits []hit
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return nil, fmt.Errorf("parsing mygene.info response: %w", err)
	}
	return hits, nil
}
