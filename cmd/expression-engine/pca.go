package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/expression-engine/internal/pca"
	"github.com/pdiddy/expression-engine/internal/pseudobulk"
)

var pcaCmd = &cobra.Command{
	Use:   "pca [accession]",
	Short: "Run principal component analysis on a pseudo-bulk matrix",
	Long: `PCA decomposes the pseudo-bulk expression matrix into principal
components. It writes per-sample scores and the explained-variance table to
results/analysis/, and a PC1/PC2 scatter plot colored by condition to
results/figures/.`,
	Args: cobra.ExactArgs(1),
	RunE: runPCA,
}

func init() {
	pcaCmd.Flags().String("results-dir", "results", "base directory for results")
	pcaCmd.Flags().Int("components", 0, "number of components to keep (default min(10, samples-1))")
	pcaCmd.Flags().Bool("scale", false, "standardize genes to unit variance first")

	rootCmd.AddCommand(pcaCmd)
}

func runPCA(cmd *cobra.Command, args []string) error {
	accession := args[0]
	resultsDir, _ := cmd.Flags().GetString("results-dir")
	components, _ := cmd.Flags().GetInt("components")
	scale, _ := cmd.Flags().GetBool("scale")

	pb, meta, err := pseudobulk.ReadCSVFile(filepath.Join(resultsDir, "pseudobulk", accession+"-pb.csv"))
	if err != nil {
		return err
	}

	res, err := pca.Compute(pb, components, scale)
	if err != nil {
		return err
	}

	analysisDir := filepath.Join(resultsDir, "analysis")
	figuresDir := filepath.Join(resultsDir, "figures")
	for _, dir := range []string{analysisDir, figuresDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	scoresPath := filepath.Join(analysisDir, accession+"-pca-scores.csv")
	if err := res.Scores.WriteCSVFile(scoresPath); err != nil {
		return err
	}

	loadingsPath := filepath.Join(analysisDir, accession+"-pca-loadings.csv")
	if err := res.Loadings.WriteCSVFile(loadingsPath); err != nil {
		return err
	}

	variancePath := filepath.Join(analysisDir, accession+"-variance.csv")
	if err := pca.WriteVarianceCSV(res, variancePath); err != nil {
		return err
	}

	figurePath := filepath.Join(figuresDir, accession+"-pca.png")
	if err := pca.ScatterPlot(res, meta, accession, figurePath); err != nil {
		return err
	}

	for i, p := range res.Explained {
		fmt.Fprintf(os.Stdout, "PC%d: %.1f%% of variance\n", i+1, p*100)
	}
	fmt.Fprintf(os.Stdout, "wrote %s, %s, %s, %s\n", scoresPath, loadingsPath, variancePath, figurePath)
	return nil
}
