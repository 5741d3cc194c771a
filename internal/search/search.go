// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries expression-data repositories and returns unified,
// deduplicated dataset results.
package search

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/pdiddy/expression-engine/pkg/types"
)

// Backend searches a single repository API. Each backend (NCBI GEO, EBI
// BioStudies) implements this interface.
type Backend interface {
	Name() string
	Search(ctx context.Context, query Query, cfg types.SearchConfig) ([]types.SearchResult, error)
}

// Query holds the search parameters.
type Query struct {
	FreeText string
	Organism string
	Keywords []string
}

// IsEmpty reports whether the query contains no searchable terms.
func (q Query) IsEmpty() bool {
	return q.FreeText == "" && q.Organism == "" && len(q.Keywords) == 0
}

// terms joins the query parts for scoring.
func (q Query) terms() []string {
	var t []string
	t = append(t, strings.Fields(strings.ToLower(q.FreeText))...)
	for _, k := range q.Keywords {
		t = append(t, strings.ToLower(k))
	}
	return t
}

// SearchOutput holds the results and dedup statistics.
type SearchOutput struct {
	Results       []types.SearchResult
	DupsRemoved   int
	BackendErrors []string
}

// Search fans out the query to all backends concurrently, deduplicates
// results by accession and normalized title, ranks them, and returns the
// top N. A failing backend degrades to a warning.
func Search(ctx context.Context, query Query, backends []Backend, cfg types.SearchConfig, recencyBias bool, w io.Writer) (SearchOutput, error) {
	if query.IsEmpty() {
		return SearchOutput{}, fmt.Errorf("query is empty: provide search terms, keywords, or an organism")
	}
	if len(backends) == 0 {
		return SearchOutput{}, fmt.Errorf("no search backends configured")
	}

	type backendResult struct {
		results []types.SearchResult
		err     error
		name    string
	}

	ch := make(chan backendResult, len(backends))
	var wg sync.WaitGroup

	for i, b := range backends {
		if i > 0 && cfg.InterBackendDelay > 0 {
			time.Sleep(cfg.InterBackendDelay)
		}
		wg.Add(1)
		go func(b Backend) {
			defer wg.Done()
			results, err := b.Search(ctx, query, cfg)
			ch <- backendResult{results: results, err: err, name: b.Name()}
		}(b)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	var all []types.SearchResult
	var backendErrors []string
	for br := range ch {
		if br.err != nil {
			msg := fmt.Sprintf("%s: %v", br.name, br.err)
			backendErrors = append(backendErrors, msg)
			fmt.Fprintf(w, "warning: backend %s failed: %v\n", br.name, br.err)
			continue
		}
		all = append(all, br.results...)
	}

	scoreResults(all, query)
	deduped, removed := deduplicate(all)

	if recencyBias && cfg.RecencyBiasWindow > 0 {
		applyRecencyBias(deduped, cfg.RecencyBiasWindow)
	}

	sort.Slice(deduped, func(i, j int) bool {
		return deduped[i].Score > deduped[j].Score
	})

	if cfg.MaxResults > 0 && len(deduped) > cfg.MaxResults {
		deduped = deduped[:cfg.MaxResults]
	}

	return SearchOutput{
		Results:       deduped,
		DupsRemoved:   removed,
		BackendErrors: backendErrors,
	}, nil
}

// scoreResults assigns a term-frequency score over title and summary.
func scoreResults(results []types.SearchResult, query Query) {
	terms := query.terms()
	for i := range results {
		text := strings.ToLower(results[i].Title + " " + results[i].Summary)
		var hits int
		for _, t := range terms {
			if strings.Contains(text, t) {
				hits++
			}
		}
		if len(terms) > 0 {
			results[i].Score += float64(hits) / float64(len(terms))
		}
		if query.Organism != "" && strings.EqualFold(results[i].Organism, query.Organism) {
			results[i].Score += 0.5
		}
	}
}

// deduplicate merges results that share an accession or normalized title.
func deduplicate(results []types.SearchResult) ([]types.SearchResult, int) {
	seen := make(map[string]int) // dedup key → index in deduped
	var deduped []types.SearchResult
	removed := 0

	for _, r := range results {
		key := ""
		if r.Accession != "" {
			key = "acc:" + strings.ToUpper(r.Accession)
		}
		if idx, ok := seen[key]; ok && key != "" {
			mergeInto(&deduped[idx], r)
			removed++
			continue
		}

		titleKey := "title:" + normalizeTitle(r.Title)
		if titleKey != "title:" {
			if idx, ok := seen[titleKey]; ok {
				mergeInto(&deduped[idx], r)
				removed++
				continue
			}
		}

		idx := len(deduped)
		deduped = append(deduped, r)
		if key != "" {
			seen[key] = idx
		}
		if titleKey != "title:" {
			seen[titleKey] = idx
		}
	}
	return deduped, removed
}

// mergeInto fills empty fields of dst from src and keeps the higher score.
func mergeInto(dst *types.SearchResult, src types.SearchResult) {
	if dst.Title == "" && src.Title != "" {
		dst.Title = src.Title
	}
	if dst.Summary == "" && src.Summary != "" {
		dst.Summary = src.Summary
	}
	if dst.Organism == "" && src.Organism != "" {
		dst.Organism = src.Organism
	}
	if dst.Samples == 0 && src.Samples > 0 {
		dst.Samples = src.Samples
	}
	if dst.Released.IsZero() && !src.Released.IsZero() {
		dst.Released = src.Released
	}
	if src.Score > dst.Score {
		dst.Score = src.Score
	}
	if dst.Source != src.Source && !strings.Contains(dst.Source, src.Source) {
		dst.Source = dst.Source + "," + src.Source
	}
}

// normalizeTitle returns a lowercased, punctuation-stripped version of the title.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// applyRecencyBias boosts scores for datasets released within the window.
func applyRecencyBias(results []types.SearchResult, window time.Duration) {
	now := time.Now()
	for i := range results {
		if results[i].Released.IsZero() {
			continue
		}
		age := now.Sub(results[i].Released)
		if age <= window {
			results[i].Score += 0.2 * (1.0 - float64(age)/float64(window))
		}
	}
}
