package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/expression-engine/internal/cluster"
	"github.com/pdiddy/expression-engine/internal/diffexp"
	"github.com/pdiddy/expression-engine/internal/heatmap"
	"github.com/pdiddy/expression-engine/internal/pseudobulk"
	"github.com/pdiddy/expression-engine/pkg/types"
)

var heatmapCmd = &cobra.Command{
	Use:   "heatmap [run-id]",
	Short: "Render a clustered heatmap of top differential genes",
	Long: `Heatmap selects the top-ranked genes of a differential-expression run,
z-scores them across the pseudo-bulk samples, clusters genes and samples
hierarchically, and renders the reordered matrix to
results/figures/[run-id]-heatmap.png.`,
	Args: cobra.ExactArgs(1),
	RunE: runHeatmap,
}

func init() {
	heatmapCmd.Flags().String("results-dir", "results", "base directory for results")
	heatmapCmd.Flags().Int("top-n", 50, "number of top genes by adjusted p-value")
	heatmapCmd.Flags().String("genes", "", "explicit gene list (comma-separated) instead of top-n")
	heatmapCmd.Flags().String("linkage", "average", "clustering linkage: average, complete, or single")
	heatmapCmd.Flags().String("pseudobulk", "", "pseudo-bulk CSV (default: derived from the run record)")

	rootCmd.AddCommand(heatmapCmd)
}

func runHeatmap(cmd *cobra.Command, args []string) error {
	runID := args[0]
	resultsDir, _ := cmd.Flags().GetString("results-dir")
	topN, _ := cmd.Flags().GetInt("top-n")
	genesFlag, _ := cmd.Flags().GetString("genes")
	linkageFlag, _ := cmd.Flags().GetString("linkage")
	pbPath, _ := cmd.Flags().GetString("pseudobulk")

	linkage, err := cluster.ParseLinkage(linkageFlag)
	if err != nil {
		return err
	}

	analysisDir := filepath.Join(resultsDir, "analysis")
	de, err := diffexp.ReadCSVFile(filepath.Join(analysisDir, runID+"-diffexp.csv"))
	if err != nil {
		return err
	}

	if pbPath == "" {
		accession, err := runAccession(analysisDir, runID)
		if err != nil {
			return err
		}
		pbPath = filepath.Join(resultsDir, "pseudobulk", accession+"-pb.csv")
	}
	pb, meta, err := pseudobulk.ReadCSVFile(pbPath)
	if err != nil {
		return err
	}

	opts := heatmap.Options{
		TopN:    topN,
		Linkage: linkage,
	}
	if genesFlag != "" {
		for _, g := range strings.Split(genesFlag, ",") {
			if g = strings.TrimSpace(g); g != "" {
				opts.Genes = append(opts.Genes, g)
			}
		}
	}

	clustered, err := heatmap.Build(pb, de, opts, os.Stdout)
	if err != nil {
		return err
	}

	// The clustered, z-scored matrix keeps the figure reproducible.
	csvPath := filepath.Join(analysisDir, runID+"-heatmap.csv")
	if err := clustered.WriteCSVFile(csvPath); err != nil {
		return err
	}

	figuresDir := filepath.Join(resultsDir, "figures")
	if err := os.MkdirAll(figuresDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", figuresDir, err)
	}
	figurePath := filepath.Join(figuresDir, runID+"-heatmap.png")
	if err := heatmap.Render(clustered, meta, runID, figurePath); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "wrote %s and %s\n", csvPath, figurePath)
	return nil
}

// runAccession reads the dataset accession from the run record.
func runAccession(analysisDir, runID string) (string, error) {
	run, err := readRunInfo(filepath.Join(analysisDir, runID+"-run.yaml"))
	if err != nil {
		return "", fmt.Errorf("loading run record (or pass --pseudobulk): %w", err)
	}
	if run.Dataset == "" {
		return "", fmt.Errorf("run record for %s has no dataset accession", runID)
	}
	return run.Dataset, nil
}

// readRunInfo loads a run record written by the diffexp stage.
func readRunInfo(path string) (*types.RunInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var run types.RunInfo
	if err := yaml.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &run, nil
}
