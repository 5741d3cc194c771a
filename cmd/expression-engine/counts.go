package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/expression-engine/internal/counts"
	"github.com/pdiddy/expression-engine/internal/matrix"
	"github.com/pdiddy/expression-engine/pkg/types"
)

var countsCmd = &cobra.Command{
	Use:   "counts [accessions...]",
	Short: "Apply quality-control filters to converted counts matrices",
	Long: `Counts reads the canonical counts CSV for each accession, drops
low-quality cells (too few detected genes, high mitochondrial fraction) and
rarely detected genes, and writes the filtered matrix to
datasets/counts/[accession]-qc.csv. Use --normalize to also scale each cell
and apply log1p before writing.`,
	RunE: runCounts,
}

func init() {
	countsCmd.Flags().String("datasets-dir", "datasets", "base directory for datasets")
	countsCmd.Flags().Int("min-features", 200, "drop cells with fewer detected genes")
	countsCmd.Flags().Int("min-cells", 3, "drop genes detected in fewer cells")
	countsCmd.Flags().Float64("max-mito", 0.2, "drop cells with a higher mitochondrial fraction")
	countsCmd.Flags().String("mito-prefix", "MT-", "gene-name prefix identifying mitochondrial genes")
	countsCmd.Flags().Bool("normalize", false, "log-normalize cells after filtering")
	countsCmd.Flags().Float64("scale-factor", 1e4, "per-cell scaling target for --normalize")

	rootCmd.AddCommand(countsCmd)
}

func runCounts(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more converted accessions")
	}

	datasetsDir, _ := cmd.Flags().GetString("datasets-dir")
	minFeatures, _ := cmd.Flags().GetInt("min-features")
	minCells, _ := cmd.Flags().GetInt("min-cells")
	maxMito, _ := cmd.Flags().GetFloat64("max-mito")
	mitoPrefix, _ := cmd.Flags().GetString("mito-prefix")
	normalize, _ := cmd.Flags().GetBool("normalize")
	scaleFactor, _ := cmd.Flags().GetFloat64("scale-factor")

	cfg := types.CountsConfig{
		DatasetsDir:     datasetsDir,
		MinFeatures:     minFeatures,
		MinCells:        minCells,
		MaxMitoFraction: maxMito,
		MitoPrefix:      mitoPrefix,
		ScaleFactor:     scaleFactor,
	}

	failed := 0
	for _, accession := range args {
		if err := runCountsOne(accession, cfg, normalize); err != nil {
			fmt.Fprintf(os.Stdout, "failed:  %s (%v)\n", accession, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d dataset(s) failed preprocessing", failed)
	}
	return nil
}

func runCountsOne(accession string, cfg types.CountsConfig, normalize bool) error {
	inPath := filepath.Join(cfg.DatasetsDir, "counts", accession+".csv")
	outPath := filepath.Join(cfg.DatasetsDir, "counts", accession+"-qc.csv")

	m, err := matrix.ReadCSVFile(inPath)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "%s: ", accession)
	filtered, _, err := counts.QC(m, cfg, os.Stdout)
	if err != nil {
		return err
	}

	if normalize {
		counts.LogNormalize(filtered, cfg.ScaleFactor)
	}

	if err := filtered.WriteCSVFile(outPath); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "wrote %s\n", outPath)
	return nil
}
