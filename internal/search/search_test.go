// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/expression-engine/pkg/types"
)

// stubBackend returns canned results or a canned error.
type stubBackend struct {
	name    string
	results []types.SearchResult
	err     error
}

func (s *stubBackend) Name() string { return s.name }

func (s *stubBackend) Search(ctx context.Context, query Query, cfg types.SearchConfig) ([]types.SearchResult, error) {
	return s.results, s.err
}

func TestQueryIsEmpty(t *testing.T) {
	if !(Query{}).IsEmpty() {
		t.Error("zero query should be empty")
	}
	if (Query{FreeText: "luad"}).IsEmpty() {
		t.Error("query with free text should not be empty")
	}
	if (Query{Keywords: []string{"scRNA-seq"}}).IsEmpty() {
		t.Error("query with keywords should not be empty")
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	_, err := Search(context.Background(), Query{}, []Backend{&stubBackend{name: "a"}}, types.SearchConfig{}, false, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "query is empty") {
		t.Fatalf("expected empty-query error, got %v", err)
	}
}

func TestSearchRejectsNoBackends(t *testing.T) {
	_, err := Search(context.Background(), Query{FreeText: "luad"}, nil, types.SearchConfig{}, false, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "no search backends") {
		t.Fatalf("expected no-backends error, got %v", err)
	}
}

func TestSearchDeduplicatesByAccession(t *testing.T) {
	a := &stubBackend{name: "geo", results: []types.SearchResult{
		{Accession: "GSE1", Title: "Lung adenocarcinoma atlas", Source: "geo", Samples: 58},
	}}
	b := &stubBackend{name: "biostudies", results: []types.SearchResult{
		{Accession: "gse1", Title: "", Organism: "Homo sapiens", Source: "biostudies"},
		{Accession: "E-MTAB-2", Title: "Normal lung reference", Source: "biostudies"},
	}}

	out, err := Search(context.Background(), Query{FreeText: "lung"}, []Backend{a, b}, types.SearchConfig{}, false, io.Discard)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(out.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(out.Results))
	}
	if out.DupsRemoved != 1 {
		t.Errorf("DupsRemoved = %d, want 1", out.DupsRemoved)
	}

	var merged *types.SearchResult
	for i := range out.Results {
		if strings.EqualFold(out.Results[i].Accession, "GSE1") {
			merged = &out.Results[i]
		}
	}
	if merged == nil {
		t.Fatal("GSE1 missing from results")
	}
	if merged.Organism != "Homo sapiens" {
		t.Errorf("merge did not fill Organism: %+v", merged)
	}
	if merged.Samples != 58 {
		t.Errorf("merge lost Samples: %+v", merged)
	}
	if !strings.Contains(merged.Source, "geo") || !strings.Contains(merged.Source, "biostudies") {
		t.Errorf("merge did not combine sources: %q", merged.Source)
	}
}

func TestSearchDeduplicatesByTitle(t *testing.T) {
	a := &stubBackend{name: "geo", results: []types.SearchResult{
		{Accession: "GSE1", Title: "Single-Cell Atlas of LUAD!", Source: "geo"},
	}}
	b := &stubBackend{name: "biostudies", results: []types.SearchResult{
		{Accession: "E-MTAB-9", Title: "single cell atlas of luad", Source: "biostudies"},
	}}

	out, err := Search(context.Background(), Query{FreeText: "luad"}, []Backend{a, b}, types.SearchConfig{}, false, io.Discard)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(out.Results) != 1 || out.DupsRemoved != 1 {
		t.Fatalf("got %d results / %d removed, want 1 / 1", len(out.Results), out.DupsRemoved)
	}
}

func TestSearchRanksByScore(t *testing.T) {
	a := &stubBackend{name: "geo", results: []types.SearchResult{
		{Accession: "GSE1", Title: "Mouse cortex", Source: "geo"},
		{Accession: "GSE2", Title: "Lung adenocarcinoma tumor and normal", Summary: "lung tumor scRNA-seq", Source: "geo"},
	}}

	q := Query{FreeText: "lung tumor"}
	out, err := Search(context.Background(), q, []Backend{a}, types.SearchConfig{}, false, io.Discard)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if out.Results[0].Accession != "GSE2" {
		t.Errorf("top result = %s, want GSE2", out.Results[0].Accession)
	}
	if out.Results[0].Score <= out.Results[1].Score {
		t.Errorf("scores not ordered: %v vs %v", out.Results[0].Score, out.Results[1].Score)
	}
}

func TestSearchOrganismBoost(t *testing.T) {
	results := []types.SearchResult{
		{Accession: "GSE1", Title: "lung", Organism: "Homo sapiens"},
		{Accession: "GSE2", Title: "lung", Organism: "Mus musculus"},
	}
	scoreResults(results, Query{FreeText: "lung", Organism: "homo sapiens"})
	if results[0].Score <= results[1].Score {
		t.Errorf("organism match not boosted: %v vs %v", results[0].Score, results[1].Score)
	}
}

func TestSearchMaxResults(t *testing.T) {
	var rs []types.SearchResult
	for i := 0; i < 10; i++ {
		rs = append(rs, types.SearchResult{Accession: fmt.Sprintf("GSE%d", i), Title: "lung"})
	}
	a := &stubBackend{name: "geo", results: rs}

	out, err := Search(context.Background(), Query{FreeText: "lung"}, []Backend{a}, types.SearchConfig{MaxResults: 3}, false, io.Discard)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(out.Results) != 3 {
		t.Errorf("got %d results, want 3", len(out.Results))
	}
}

func TestSearchBackendFailureDegrades(t *testing.T) {
	good := &stubBackend{name: "geo", results: []types.SearchResult{
		{Accession: "GSE1", Title: "lung"},
	}}
	bad := &stubBackend{name: "biostudies", err: fmt.Errorf("HTTP 503")}

	var out strings.Builder
	res, err := Search(context.Background(), Query{FreeText: "lung"}, []Backend{good, bad}, types.SearchConfig{}, false, &out)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Results) != 1 {
		t.Errorf("got %d results, want 1", len(res.Results))
	}
	if len(res.BackendErrors) != 1 || !strings.Contains(res.BackendErrors[0], "biostudies") {
		t.Errorf("BackendErrors = %v", res.BackendErrors)
	}
	if !strings.Contains(out.String(), "warning: backend biostudies failed") {
		t.Errorf("warning not printed:\n%s", out.String())
	}
}

func TestRecencyBias(t *testing.T) {
	now := time.Now()
	results := []types.SearchResult{
		{Accession: "OLD", Released: now.Add(-3 * 365 * 24 * time.Hour)},
		{Accession: "NEW", Released: now.Add(-30 * 24 * time.Hour)},
		{Accession: "UNDATED"},
	}
	applyRecencyBias(results, 2*365*24*time.Hour)

	if results[0].Score != 0 {
		t.Errorf("dataset outside window boosted: %v", results[0].Score)
	}
	if results[1].Score <= 0 {
		t.Errorf("recent dataset not boosted: %v", results[1].Score)
	}
	if results[2].Score != 0 {
		t.Errorf("undated dataset boosted: %v", results[2].Score)
	}
}

func TestNormalizeTitle(t *testing.T) {
	got := normalizeTitle("  Single-Cell   Atlas, of LUAD! ")
	if got != "singlecell atlas of luad" {
		t.Errorf("normalizeTitle = %q", got)
	}
}

func TestGEOSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "esearch"):
			term := r.URL.Query().Get("term")
			if !strings.Contains(term, "gse[ETYP]") {
				t.Errorf("esearch term missing series filter: %q", term)
			}
			io.WriteString(w, `{"esearchresult":{"idlist":["200131907"]}}`)
		case strings.Contains(r.URL.Path, "esummary"):
			io.WriteString(w, `{"result":{"200131907":{
				"accession":"GSE131907",
				"title":"Single-cell atlas of lung adenocarcinoma",
				"summary":"scRNA-seq of LUAD.",
				"taxon":"Homo sapiens",
				"n_samples":58,
				"pdat":"2020/05/01",
				"entrytype":"GSE"}}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	old := geoAPIBase
	geoAPIBase = srv.URL
	defer func() { geoAPIBase = old }()

	g := &GEO{Client: srv.Client()}
	results, err := g.Search(context.Background(), Query{FreeText: "lung adenocarcinoma"}, types.SearchConfig{HTTPConfig: types.HTTPConfig{UserAgent: "test/1"}})
	if err != nil {
		t.Fatalf("GEO.Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	r := results[0]
	if r.Accession != "GSE131907" || r.Organism != "Homo sapiens" || r.Samples != 58 {
		t.Errorf("result = %+v", r)
	}
	if r.Released.IsZero() {
		t.Error("Released not parsed")
	}
}

func TestGEOSearchNoHits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"esearchresult":{"idlist":[]}}`)
	}))
	defer srv.Close()

	old := geoAPIBase
	geoAPIBase = srv.URL
	defer func() { geoAPIBase = old }()

	g := &GEO{Client: srv.Client()}
	results, err := g.Search(context.Background(), Query{FreeText: "nothing"}, types.SearchConfig{})
	if err != nil {
		t.Fatalf("GEO.Search: %v", err)
	}
	if results != nil {
		t.Errorf("expected nil results, got %v", results)
	}
}

func TestBioStudiesSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("query"); !strings.Contains(got, "lung") {
			t.Errorf("query param = %q", got)
		}
		io.WriteString(w, `{"hits":[
			{"accession":"E-MTAB-6149","title":"Lung tumor single cells","release_date":"2019-01-15"},
			{"accession":"E-MTAB-9999","title":"Other study","release_date":"bogus"}]}`)
	}))
	defer srv.Close()

	old := biostudiesAPIBase
	biostudiesAPIBase = srv.URL
	defer func() { biostudiesAPIBase = old }()

	b := &BioStudies{Client: srv.Client()}
	results, err := b.Search(context.Background(), Query{FreeText: "lung"}, types.SearchConfig{HTTPConfig: types.HTTPConfig{UserAgent: "test/1"}})
	if err != nil {
		t.Fatalf("BioStudies.Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Accession != "E-MTAB-6149" || results[0].Source != "biostudies" {
		t.Errorf("result = %+v", results[0])
	}
	if results[0].Released.IsZero() {
		t.Error("release_date not parsed")
	}
	if !results[1].Released.IsZero() {
		t.Error("bogus release_date should stay zero")
	}
}

func TestBioStudiesSearchContactEmail(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		io.WriteString(w, `{"hits":[]}`)
	}))
	defer srv.Close()

	old := biostudiesAPIBase
	biostudiesAPIBase = srv.URL
	defer func() { biostudiesAPIBase = old }()

	b := &BioStudies{Client: srv.Client()}
	cfg := types.SearchConfig{
		HTTPConfig:   types.HTTPConfig{UserAgent: "test/1"},
		ContactEmail: "user@example.com",
	}
	if _, err := b.Search(context.Background(), Query{FreeText: "lung"}, cfg); err != nil {
		t.Fatalf("BioStudies.Search: %v", err)
	}
	if gotUA != "test/1 (mailto:user@example.com)" {
		t.Errorf("User-Agent = %q", gotUA)
	}
}

func TestBioStudiesSearchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	old := biostudiesAPIBase
	biostudiesAPIBase = srv.URL
	defer func() { biostudiesAPIBase = old }()

	b := &BioStudies{Client: srv.Client()}
	_, err := b.Search(context.Background(), Query{FreeText: "lung"}, types.SearchConfig{})
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("expected HTTP 502 error, got %v", err)
	}
}
