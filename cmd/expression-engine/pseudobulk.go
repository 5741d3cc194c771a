package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/expression-engine/internal/acquire"
	"github.com/pdiddy/expression-engine/internal/counts"
	"github.com/pdiddy/expression-engine/internal/matrix"
	"github.com/pdiddy/expression-engine/internal/pseudobulk"
	"github.com/pdiddy/expression-engine/pkg/types"
)

var pseudobulkCmd = &cobra.Command{
	Use:   "pseudobulk [accessions...]",
	Short: "Aggregate QC-filtered cells into per-sample pseudo-bulk profiles",
	Long: `Pseudobulk assigns each cell to its sample of origin (barcode suffix or
an explicit sample map), collapses cells to one expression column per sample,
applies log2(x+1), and writes the labeled matrix with sample metadata to
results/pseudobulk/[accession]-pb.csv.`,
	RunE: runPseudobulk,
}

func init() {
	pseudobulkCmd.Flags().String("datasets-dir", "datasets", "base directory for datasets")
	pseudobulkCmd.Flags().String("results-dir", "results", "base directory for results")
	pseudobulkCmd.Flags().String("agg", "mean", "per-sample statistic: mean or sum")
	pseudobulkCmd.Flags().Bool("no-log2", false, "skip the log2(x+1) transform")
	pseudobulkCmd.Flags().String("sample-map", "", "YAML file mapping cell barcodes to sample IDs")

	rootCmd.AddCommand(pseudobulkCmd)
}

func runPseudobulk(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more preprocessed accessions")
	}

	datasetsDir, _ := cmd.Flags().GetString("datasets-dir")
	resultsDir, _ := cmd.Flags().GetString("results-dir")
	agg, _ := cmd.Flags().GetString("agg")
	noLog2, _ := cmd.Flags().GetBool("no-log2")
	sampleMapFile, _ := cmd.Flags().GetString("sample-map")

	opts := pseudobulk.Options{
		Agg:  types.Aggregation(agg),
		Log2: !noLog2,
	}

	failed := 0
	for _, accession := range args {
		if err := runPseudobulkOne(accession, datasetsDir, resultsDir, sampleMapFile, opts); err != nil {
			fmt.Fprintf(os.Stdout, "failed:  %s (%v)\n", accession, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d dataset(s) failed aggregation", failed)
	}
	return nil
}

func runPseudobulkOne(accession, datasetsDir, resultsDir, sampleMapFile string, opts pseudobulk.Options) error {
	ds, err := acquire.ReadMetadata(acquire.MetadataPath(datasetsDir, accession))
	if err != nil {
		return fmt.Errorf("loading metadata: %w", err)
	}
	if len(ds.Samples) == 0 {
		return fmt.Errorf("metadata for %s lists no samples", accession)
	}

	m, err := matrix.ReadCSVFile(filepath.Join(datasetsDir, "counts", accession+"-qc.csv"))
	if err != nil {
		return err
	}

	var sampleMap map[string]string
	if sampleMapFile != "" {
		sampleMap, err = counts.LoadSampleMap(sampleMapFile)
		if err != nil {
			return err
		}
	}

	assigned := counts.Assign(m.Cols(), ds.Samples, sampleMap)
	filtered, err := counts.FilterToSamples(m, assigned, ds.Samples, os.Stdout)
	if err != nil {
		return err
	}

	pb, err := pseudobulk.Aggregate(filtered, assigned, ds.Samples, opts, os.Stdout)
	if err != nil {
		return err
	}

	outDir := filepath.Join(resultsDir, "pseudobulk")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", outDir, err)
	}

	meta := make(map[string]types.Sample, len(ds.Samples))
	for _, s := range ds.Samples {
		meta[s.ID] = s
	}

	outPath := filepath.Join(outDir, accession+"-pb.csv")
	if err := pseudobulk.WriteCSVFile(pb, meta, outPath); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "wrote %s\n", outPath)
	return nil
}
