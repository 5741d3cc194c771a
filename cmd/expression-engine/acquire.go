package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/expression-engine/internal/acquire"
	"github.com/pdiddy/expression-engine/pkg/types"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultDelay     = 1 * time.Second
	defaultUserAgent = "expression-engine/0.1"
)

var acquireCmd = &cobra.Command{
	Use:   "acquire [identifiers...]",
	Short: "Download raw expression matrices from GEO accessions or URLs",
	Long: `Acquire resolves dataset identifiers (GEO series or dataset accessions,
direct URLs) to raw matrix archives, downloads them into datasets/raw/, and
creates metadata records. Existing datasets are skipped.`,
	RunE: runAcquire,
}

func init() {
	acquireCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")
	acquireCmd.Flags().Duration("delay", 0, "delay between consecutive downloads (default 1s)")
	acquireCmd.Flags().String("datasets-dir", "datasets", "base directory for datasets")
	acquireCmd.Flags().String("suppl", "", "supplementary file name to fetch instead of the series matrix")
	acquireCmd.Flags().String("ncbi-api-key", "", "NCBI E-utilities API key (default: .secrets/ncbi-api-key)")

	rootCmd.AddCommand(acquireCmd)
}

func runAcquire(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more dataset identifiers (GEO accessions or URLs)")
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}
	delay, _ := cmd.Flags().GetDuration("delay")
	if delay == 0 {
		delay = defaultDelay
	}
	datasetsDir, _ := cmd.Flags().GetString("datasets-dir")
	suppl, _ := cmd.Flags().GetString("suppl")
	apiKey, _ := cmd.Flags().GetString("ncbi-api-key")

	cfg := types.AcquisitionConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: defaultUserAgent,
		},
		DownloadDelay: delay,
		DatasetsDir:   datasetsDir,
		NCBIAPIKey:    secretDefault("ncbi-api-key", apiKey),
	}

	client := &http.Client{
		Timeout: cfg.Timeout,
	}

	result := acquire.AcquireBatch(client, args, suppl, cfg, os.Stdout)
	if result.HasFailures() {
		return fmt.Errorf("%d dataset(s) failed acquisition", result.Failed)
	}
	return nil
}
