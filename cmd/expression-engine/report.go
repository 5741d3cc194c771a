package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/expression-engine/internal/report"
	"github.com/pdiddy/expression-engine/internal/results"
	"github.com/pdiddy/expression-engine/pkg/types"
)

var reportCmd = &cobra.Command{
	Use:   "report [spec.yaml]",
	Short: "Generate a Markdown analysis report from stored results",
	Long: `Report renders a Markdown report described by a YAML spec: run summary,
explained-variance table, top up- and down-regulated gene tables with
annotations, and free-text sections. Gene mentions in text sections are
validated against the results database. Use --validate to check without
writing.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().String("results-dir", "results", "base directory for results")
	reportCmd.Flags().String("output-dir", "output/reports", "directory for generated reports")
	reportCmd.Flags().Bool("validate", false, "validate gene mentions without writing the report")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	resultsDir, _ := cmd.Flags().GetString("results-dir")
	outputDir, _ := cmd.Flags().GetString("output-dir")
	validateOnly, _ := cmd.Flags().GetBool("validate")

	spec, err := report.LoadSpec(args[0])
	if err != nil {
		return err
	}

	store, err := results.NewStore(types.ResultsConfig{ResultsDir: resultsDir})
	if err != nil {
		return err
	}
	defer store.Close()

	if validateOnly {
		missing, err := report.ValidateGenes(context.Background(), store, spec)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			for _, g := range missing {
				fmt.Fprintf(os.Stdout, "missing: %s\n", g)
			}
			return fmt.Errorf("%d gene mention(s) not found in results database", len(missing))
		}
		fmt.Println("All gene mentions resolved.")
		return nil
	}

	cfg := types.ReportConfig{
		OutputDir:  outputDir,
		ResultsDir: resultsDir,
	}
	path, err := report.Generate(context.Background(), store, spec, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "wrote %s\n", path)
	return nil
}
