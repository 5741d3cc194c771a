package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/expression-engine/internal/acquire"
	"github.com/pdiddy/expression-engine/internal/convert"
	"github.com/pdiddy/expression-engine/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert [accessions...]",
	Short: "Convert raw matrices to the canonical counts CSV",
	Long: `Convert parses raw downloads into the canonical gene-by-cell counts CSV
under datasets/counts/. Supports 10x MatrixMarket directories (mtx), dense
TSV/CSV tables (tsv), and Seurat .rds objects read through a container (rds).

Pass acquired accessions, use --batch to convert everything with metadata,
or pass raw file paths with --paths.`,
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().String("backend", "mtx", "conversion backend: mtx, tsv, or rds")
	convertCmd.Flags().String("datasets-dir", "datasets", "base directory for datasets")
	convertCmd.Flags().String("rds-image", "", "container image for the rds backend")
	convertCmd.Flags().Bool("batch", false, "convert all acquired datasets in datasets-dir")
	convertCmd.Flags().Bool("paths", false, "treat arguments as raw file paths instead of accessions")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	backend, _ := cmd.Flags().GetString("backend")
	datasetsDir, _ := cmd.Flags().GetString("datasets-dir")
	rdsImage, _ := cmd.Flags().GetString("rds-image")
	batch, _ := cmd.Flags().GetBool("batch")
	asPaths, _ := cmd.Flags().GetBool("paths")

	if !batch && len(args) == 0 {
		return fmt.Errorf("provide accessions, raw paths with --paths, or --batch")
	}

	cfg := types.ConversionConfig{
		Backend:     types.ConversionBackend(backend),
		DatasetsDir: datasetsDir,
		RDSImage:    rdsImage,
	}
	converter, err := convert.NewConverter(cfg)
	if err != nil {
		return err
	}

	if asPaths {
		result := convert.ConvertPaths(converter, args, datasetsDir, os.Stdout)
		if result.HasFailures() {
			return fmt.Errorf("%d dataset(s) failed conversion", result.Failed)
		}
		return nil
	}

	var datasets []types.Dataset
	if batch {
		datasets, err = loadAllMetadata(datasetsDir)
		if err != nil {
			return err
		}
		if len(datasets) == 0 {
			return fmt.Errorf("no dataset metadata found under %s", datasetsDir)
		}
	} else {
		for _, accession := range args {
			ds, err := acquire.ReadMetadata(acquire.MetadataPath(datasetsDir, accession))
			if err != nil {
				return fmt.Errorf("loading metadata for %s: %w", accession, err)
			}
			datasets = append(datasets, *ds)
		}
	}

	result := convert.ConvertBatch(converter, datasets, datasetsDir, os.Stdout)
	if result.HasFailures() {
		return fmt.Errorf("%d dataset(s) failed conversion", result.Failed)
	}
	return nil
}

// loadAllMetadata reads every metadata record under datasetsDir/metadata/.
func loadAllMetadata(datasetsDir string) ([]types.Dataset, error) {
	dir := filepath.Join(datasetsDir, "metadata")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading metadata directory %s: %w", dir, err)
	}

	var datasets []types.Dataset
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		ds, err := acquire.ReadMetadata(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", e.Name(), err)
		}
		datasets = append(datasets, *ds)
	}
	return datasets, nil
}
