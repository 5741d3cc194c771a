// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/expression-engine/internal/results"
	"github.com/pdiddy/expression-engine/pkg/types"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Manage the results database (store, retrieve, export)",
	Long: `Results manages a local SQLite database of differential-expression runs
and gene annotations. Use subcommands to index analysis output, query it,
or export.`,
}

// --- store subcommand ---

var resultsStoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Ingest differential-expression runs into the results database",
	Long: `Store reads diffexp CSVs from results/analysis/, ingests them into a
SQLite database with full-text search over annotations, and writes an export
file. Unchanged runs are skipped on subsequent invocations.`,
	RunE: runResultsStore,
}

func runResultsStore(cmd *cobra.Command, args []string) error {
	store, err := results.NewStore(resultsConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Ingest(context.Background(), os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d run(s) failed indexing", summary.Failed)
	}
	return nil
}

// --- retrieve subcommand ---

var resultsRetrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Query the results database with filters and full-text search",
	Long: `Retrieve searches stored differential-expression results using
structured filters (run, gene, significance, fold-change direction), free
text over gene annotations, or a combination. Results are ordered by
adjusted p-value.`,
	RunE: runResultsRetrieve,
}

func runResultsRetrieve(cmd *cobra.Command, args []string) error {
	store, err := results.NewStore(resultsConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	opts := queryOptsFromFlags(cmd, args)
	if opts == (results.QueryOptions{}) {
		return fmt.Errorf("query or filter required: provide search text, --run, --gene, --max-adj-p, --min-lfc, or --direction")
	}

	hits, err := store.Retrieve(context.Background(), opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatRetrieveOutput(hits, jsonOutput)
}

func formatRetrieveOutput(hits []results.Hit, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	}

	if len(hits) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-14s  %-10s  %8s  %10s  %8s  %-30s\n",
		"Rank", "Gene", "Symbol", "log2FC", "adj p", "Cohen d", "Run")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 95))

	for i, h := range hits {
		symbol := h.Symbol
		if symbol == "" {
			symbol = "-"
		}
		run := h.RunID
		if len(run) > 30 {
			run = run[:27] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-14s  %-10s  %8.3f  %10.3g  %8.3f  %-30s\n",
			i+1, h.Gene, symbol, h.Log2FC, h.AdjP, h.CohenD, run)
	}

	fmt.Fprintf(os.Stdout, "\n%d results\n", len(hits))
	return nil
}

// --- export subcommand ---

var resultsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the results database to YAML or JSON",
	Long: `Export writes stored results (or a filtered subset) to
results/index/export.yaml or export.json. Supports the same filter flags
as retrieve for partial exports.`,
	RunE: runResultsExport,
}

func runResultsExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	store, err := results.NewStore(resultsConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	opts := queryOptsFromFlags(cmd, args)

	switch format {
	case "yaml", "":
		if err := store.ExportYAML(context.Background(), opts); err != nil {
			return err
		}
		fmt.Println("Exported to results/index/export.yaml")
	case "json":
		if err := store.ExportJSON(context.Background(), opts); err != nil {
			return err
		}
		fmt.Println("Exported to results/index/export.json")
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}

	return nil
}

// --- runs subcommand ---

var resultsRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored differential-expression runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := results.NewStore(resultsConfig(cmd))
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.Runs(context.Background())
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs stored.")
			return nil
		}
		for _, r := range runs {
			created := ""
			if !r.CreatedAt.IsZero() {
				created = r.CreatedAt.Format("2006-01-02")
			}
			fmt.Fprintf(os.Stdout, "%-35s  %-12s  %s vs %s  %d genes, %d samples  %s\n",
				r.ID, r.Dataset, r.GroupA, r.GroupB, r.NGenes, r.NSamples, created)
		}
		return nil
	},
}

// --- shared helpers ---

func resultsConfig(cmd *cobra.Command) types.ResultsConfig {
	resultsDir, _ := cmd.Flags().GetString("results-dir")
	if resultsDir == "" {
		resultsDir = "results"
	}
	maxResults, _ := cmd.Flags().GetInt("max-results")

	return types.ResultsConfig{
		ResultsDir: resultsDir,
		MaxResults: maxResults,
	}
}

func queryOptsFromFlags(cmd *cobra.Command, args []string) results.QueryOptions {
	text, _ := cmd.Flags().GetString("query")
	if text == "" && len(args) > 0 {
		text = strings.Join(args, " ")
	}

	run, _ := cmd.Flags().GetString("run")
	gene, _ := cmd.Flags().GetString("gene")
	maxAdjP, _ := cmd.Flags().GetFloat64("max-adj-p")
	minLFC, _ := cmd.Flags().GetFloat64("min-lfc")
	direction, _ := cmd.Flags().GetString("direction")
	limit, _ := cmd.Flags().GetInt("limit")

	return results.QueryOptions{
		Run:          run,
		Gene:         gene,
		MaxAdjP:      maxAdjP,
		MinAbsLog2FC: minLFC,
		Direction:    direction,
		Text:         text,
		MaxResults:   limit,
	}
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	resultsCmd.PersistentFlags().String("results-dir", "results", "base directory for results (contains analysis/, index/)")
	resultsCmd.PersistentFlags().Int("max-results", 20, "maximum number of query results")

	// Retrieve flags.
	resultsRetrieveCmd.Flags().String("query", "", "full-text search over gene annotations")
	resultsRetrieveCmd.Flags().String("run", "", "filter by run ID")
	resultsRetrieveCmd.Flags().String("gene", "", "filter by gene identifier")
	resultsRetrieveCmd.Flags().Float64("max-adj-p", 0, "keep genes with adjusted p below this")
	resultsRetrieveCmd.Flags().Float64("min-lfc", 0, "keep genes with |log2 fold change| at least this")
	resultsRetrieveCmd.Flags().String("direction", "", "restrict to up- or down-regulated genes")
	resultsRetrieveCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	resultsRetrieveCmd.Flags().Bool("json", false, "output results as JSON")

	// Export flags.
	resultsExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	resultsExportCmd.Flags().String("query", "", "full-text search filter for partial export")
	resultsExportCmd.Flags().String("run", "", "filter by run ID for partial export")
	resultsExportCmd.Flags().String("gene", "", "filter by gene for partial export")
	resultsExportCmd.Flags().Float64("max-adj-p", 0, "significance filter for partial export")
	resultsExportCmd.Flags().Float64("min-lfc", 0, "fold-change filter for partial export")
	resultsExportCmd.Flags().String("direction", "", "direction filter for partial export")
	resultsExportCmd.Flags().Int("limit", 0, "maximum records to export (0 = all)")

	// Wire subcommands.
	resultsCmd.AddCommand(resultsStoreCmd)
	resultsCmd.AddCommand(resultsRetrieveCmd)
	resultsCmd.AddCommand(resultsExportCmd)
	resultsCmd.AddCommand(resultsRunsCmd)

	rootCmd.AddCommand(resultsCmd)
}
