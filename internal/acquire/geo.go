// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/expression-engine/pkg/types"
)

// eutilsBase is overridable in tests.
var eutilsBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// E-utilities JSON structures (db=gds).
type esearchResponse struct {
	Result struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type esummaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

type gdsSummary struct {
	Accession string `json:"accession"`
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Taxon     string `json:"taxon"`
	NSamples  int    `json:"n_samples"`
	PDat      string `json:"pdat"`
	Samples   []struct {
		Accession string `json:"accession"`
		Title     string `json:"title"`
	} `json:"samples"`
}

// fetchGEOMetadata retrieves title, summary, organism, and release date for
// a GEO accession through esearch + esummary.
func fetchGEOMetadata(client *http.Client, accession string, ds *types.Dataset, cfg types.AcquisitionConfig) error {
	uid, err := geoUID(client, accession, cfg)
	if err != nil {
		return err
	}

	q := url.Values{}
	q.Set("db", "gds")
	q.Set("id", uid)
	q.Set("retmode", "json")
	if cfg.NCBIAPIKey != "" {
		q.Set("api_key", cfg.NCBIAPIKey)
	}

	var sum esummaryResponse
	if err := eutilsGet(client, "esummary.fcgi", q, cfg, &sum); err != nil {
		return fmt.Errorf("esummary: %w", err)
	}

	raw, ok := sum.Result[uid]
	if !ok {
		return fmt.Errorf("esummary has no record for uid %s", uid)
	}
	var g gdsSummary
	if err := json.Unmarshal(raw, &g); err != nil {
		return fmt.Errorf("parsing esummary record: %w", err)
	}

	ds.Title = strings.TrimSpace(g.Title)
	ds.Summary = strings.TrimSpace(g.Summary)
	ds.Organism = g.Taxon
	if t, parseErr := time.Parse("2006/01/02", g.PDat); parseErr == nil {
		ds.Released = t
	}
	for _, s := range g.Samples {
		ds.Samples = append(ds.Samples, types.Sample{ID: gsmSampleID(s.Title, s.Accession)})
	}
	return nil
}

// gsmSampleID picks the identifier for an esummary sample entry: the title
// when it is a single token (GEO submitters often use the in-matrix sample
// name there), otherwise the GSM accession.
func gsmSampleID(title, accession string) string {
	title = strings.TrimSpace(title)
	if title != "" && !strings.ContainsAny(title, " \t") {
		return title
	}
	return strings.TrimSpace(accession)
}

// geoUID resolves an accession to its E-utilities UID.
func geoUID(client *http.Client, accession string, cfg types.AcquisitionConfig) (string, error) {
	q := url.Values{}
	q.Set("db", "gds")
	q.Set("term", accession+"[ACCN]")
	q.Set("retmode", "json")
	if cfg.NCBIAPIKey != "" {
		q.Set("api_key", cfg.NCBIAPIKey)
	}

	var res esearchResponse
	if err := eutilsGet(client, "esearch.fcgi", q, cfg, &res); err != nil {
		return "", fmt.Errorf("esearch: %w", err)
	}
	if len(res.Result.IDList) == 0 {
		return "", fmt.Errorf("no GEO record found for %s", accession)
	}
	return res.Result.IDList[0], nil
}

func eutilsGet(client *http.Client, endpoint string, q url.Values, cfg types.AcquisitionConfig, out any) error {
	req, err := http.NewRequest(http.MethodGet, eutilsBase+"/"+endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := client.Do(req)
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
