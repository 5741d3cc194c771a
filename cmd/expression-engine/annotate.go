package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/expression-engine/internal/annotate"
	"github.com/pdiddy/expression-engine/internal/diffexp"
	"github.com/pdiddy/expression-engine/internal/results"
	"github.com/pdiddy/expression-engine/pkg/types"
)

var annotateCmd = &cobra.Command{
	Use:   "annotate [genes...]",
	Short: "Look up gene annotations and store them with the results",
	Long: `Annotate queries mygene.info for gene symbols, names, and summaries and
stores the annotations in the results database. Pass gene identifiers
directly, or --from-run to annotate the top genes of a
differential-expression run.`,
	RunE: runAnnotate,
}

func init() {
	annotateCmd.Flags().String("results-dir", "results", "base directory for results")
	annotateCmd.Flags().String("from-run", "", "annotate the top genes of this run ID")
	annotateCmd.Flags().Int("top-n", 100, "number of top genes with --from-run")
	annotateCmd.Flags().String("species", "human", "species filter for annotation matches")
	annotateCmd.Flags().Int("batch-size", 0, "gene IDs per request (default 500)")
	annotateCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")

	rootCmd.AddCommand(annotateCmd)
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	resultsDir, _ := cmd.Flags().GetString("results-dir")
	fromRun, _ := cmd.Flags().GetString("from-run")
	topN, _ := cmd.Flags().GetInt("top-n")
	species, _ := cmd.Flags().GetString("species")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}

	genes := args
	if fromRun != "" {
		de, err := diffexp.ReadCSVFile(filepath.Join(resultsDir, "analysis", fromRun+"-diffexp.csv"))
		if err != nil {
			return err
		}
		if topN > len(de) {
			topN = len(de)
		}
		for _, r := range de[:topN] {
			genes = append(genes, r.Gene)
		}
	}
	if len(genes) == 0 {
		return fmt.Errorf("provide gene identifiers or --from-run")
	}

	cfg := types.AnnotateConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: defaultUserAgent,
		},
		BatchSize:    batchSize,
		Species:      species,
		ContactEmail: secretDefault("mygene-email", ""),
	}

	client := &http.Client{Timeout: cfg.Timeout}
	annotations, err := annotate.Genes(context.Background(), client, genes, cfg, os.Stdout)
	if err != nil {
		return err
	}
	if len(annotations) == 0 {
		return fmt.Errorf("no annotations found")
	}

	store, err := results.NewStore(types.ResultsConfig{ResultsDir: resultsDir})
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.UpsertAnnotations(context.Background(), annotations); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "stored %d annotation(s)\n", len(annotations))
	return nil
}
