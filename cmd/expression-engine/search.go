package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/expression-engine/internal/search"
	"github.com/pdiddy/expression-engine/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Search expression repositories for candidate datasets",
	Long: `Search queries expression-data repositories (NCBI GEO, EBI BioStudies)
for datasets matching a free-text query or structured parameters. Results
are deduplicated across sources and ranked by relevance.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("query", "", "free-text query")
	searchCmd.Flags().String("organism", "", "filter by organism (e.g. \"Homo sapiens\")")
	searchCmd.Flags().String("keywords", "", "filter by keywords (comma-separated)")
	searchCmd.Flags().Int("max-results", 20, "maximum number of results to return")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	searchCmd.Flags().Bool("recency-bias", false, "boost recently released datasets")
	searchCmd.Flags().Bool("no-geo", false, "disable the NCBI GEO backend")
	searchCmd.Flags().Bool("no-biostudies", false, "disable the EBI BioStudies backend")
	searchCmd.Flags().String("ncbi-api-key", "", "NCBI E-utilities API key (default: .secrets/ncbi-api-key)")
	searchCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	queryText, _ := cmd.Flags().GetString("query")
	if queryText == "" && len(args) > 0 {
		queryText = strings.Join(args, " ")
	}
	organism, _ := cmd.Flags().GetString("organism")
	keywordsFlag, _ := cmd.Flags().GetString("keywords")

	query := search.Query{
		FreeText: queryText,
		Organism: organism,
	}
	if keywordsFlag != "" {
		for _, k := range strings.Split(keywordsFlag, ",") {
			if k = strings.TrimSpace(k); k != "" {
				query.Keywords = append(query.Keywords, k)
			}
		}
	}
	if query.IsEmpty() {
		return fmt.Errorf("provide a query: free text, --organism, or --keywords")
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}
	maxResults, _ := cmd.Flags().GetInt("max-results")
	apiKey, _ := cmd.Flags().GetString("ncbi-api-key")
	noGEO, _ := cmd.Flags().GetBool("no-geo")
	noBioStudies, _ := cmd.Flags().GetBool("no-biostudies")
	recencyBias, _ := cmd.Flags().GetBool("recency-bias")

	cfg := types.SearchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: defaultUserAgent,
		},
		MaxResults:        maxResults,
		EnableGEO:         !noGEO,
		EnableBioStudies:  !noBioStudies,
		NCBIAPIKey:        secretDefault("ncbi-api-key", apiKey),
		ContactEmail:      secretDefault("biostudies-email", ""),
		InterBackendDelay: defaultDelay,
		RecencyBiasWindow: 2 * 365 * 24 * time.Hour,
	}

	client := &http.Client{Timeout: cfg.Timeout}
	var backends []search.Backend
	if cfg.EnableGEO {
		backends = append(backends, &search.GEO{Client: client})
	}
	if cfg.EnableBioStudies {
		backends = append(backends, &search.BioStudies{Client: client})
	}
	if len(backends) == 0 {
		return fmt.Errorf("all search backends disabled")
	}

	out, err := search.Search(context.Background(), query, backends, cfg, recencyBias, os.Stderr)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatSearchOutput(out, jsonOutput)
}

func formatSearchOutput(out search.SearchOutput, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out.Results)
	}

	if len(out.Results) == 0 {
		fmt.Println("No datasets found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-12s  %-50s  %-20s  %-8s  %s\n",
		"Rank", "Accession", "Title", "Organism", "Samples", "Released")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))

	for i, r := range out.Results {
		title := r.Title
		if len(title) > 50 {
			title = title[:47] + "..."
		}
		organism := r.Organism
		if len(organism) > 20 {
			organism = organism[:17] + "..."
		}
		released := ""
		if !r.Released.IsZero() {
			released = r.Released.Format("2006-01-02")
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-12s  %-50s  %-20s  %-8d  %s\n",
			i+1, r.Accession, title, organism, r.Samples, released)
	}

	fmt.Fprintf(os.Stdout, "\n%d results (%d duplicates removed)\n", len(out.Results), out.DupsRemoved)
	return nil
}
