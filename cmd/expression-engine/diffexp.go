package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/expression-engine/internal/diffexp"
	"github.com/pdiddy/expression-engine/internal/pseudobulk"
	"github.com/pdiddy/expression-engine/pkg/types"
)

var diffexpCmd = &cobra.Command{
	Use:   "diffexp [accession]",
	Short: "Test genes for differential expression between two conditions",
	Long: `Diffexp runs a per-gene Welch t-test between two condition groups of the
pseudo-bulk matrix, with Benjamini-Hochberg correction, log2 fold changes,
and Cohen's d effect sizes. Results and a run record are written to
results/analysis/ under the run ID [accession]-[groupA]-vs-[groupB].`,
	Args: cobra.ExactArgs(1),
	RunE: runDiffExp,
}

func init() {
	diffexpCmd.Flags().String("results-dir", "results", "base directory for results")
	diffexpCmd.Flags().String("group-a", "tumor", "first condition (fold change is A relative to B)")
	diffexpCmd.Flags().String("group-b", "normal", "second condition")

	rootCmd.AddCommand(diffexpCmd)
}

func runDiffExp(cmd *cobra.Command, args []string) error {
	accession := args[0]
	resultsDir, _ := cmd.Flags().GetString("results-dir")
	groupA, _ := cmd.Flags().GetString("group-a")
	groupB, _ := cmd.Flags().GetString("group-b")

	pb, meta, err := pseudobulk.ReadCSVFile(filepath.Join(resultsDir, "pseudobulk", accession+"-pb.csv"))
	if err != nil {
		return err
	}

	opts := diffexp.Options{
		GroupA: types.Condition(groupA),
		GroupB: types.Condition(groupB),
	}
	results, err := diffexp.Run(pb, meta, opts, os.Stdout)
	if err != nil {
		return err
	}

	analysisDir := filepath.Join(resultsDir, "analysis")
	if err := os.MkdirAll(analysisDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", analysisDir, err)
	}

	runID := fmt.Sprintf("%s-%s-vs-%s", accession, groupA, groupB)
	csvPath := filepath.Join(analysisDir, runID+"-diffexp.csv")

	f, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", csvPath, err)
	}
	if err := diffexp.WriteCSV(results, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", csvPath, err)
	}

	_, nSamples := pb.Dims()
	run := types.RunInfo{
		ID:        runID,
		Dataset:   accession,
		GroupA:    opts.GroupA,
		GroupB:    opts.GroupB,
		NGenes:    len(results),
		NSamples:  nSamples,
		CreatedAt: time.Now().UTC(),
		SourceCSV: csvPath,
	}
	runData, err := yaml.Marshal(&run)
	if err != nil {
		return fmt.Errorf("marshaling run record: %w", err)
	}
	runPath := filepath.Join(analysisDir, runID+"-run.yaml")
	if err := os.WriteFile(runPath, runData, 0o644); err != nil {
		return fmt.Errorf("writing run record: %w", err)
	}

	fmt.Fprintf(os.Stdout, "wrote %s (%d genes)\n", csvPath, len(results))
	return nil
}
