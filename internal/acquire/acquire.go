// Package acquire downloads expression datasets and creates metadata records.
package acquire

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/expression-engine/pkg/types"
)

const (
	rawDir      = "raw"
	metadataDir = "metadata"
)

// BatchResult holds the outcome of a batch acquisition run.
type BatchResult struct {
	Downloaded int
	Skipped    int
	Failed     int
	Datasets   []*types.Dataset
}

// Total returns the total number of identifiers processed.
func (r BatchResult) Total() int {
	return r.Downloaded + r.Skipped + r.Failed
}

// HasFailures reports whether any datasets failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// AcquireDataset resolves a single identifier (GEO accession or URL),
// downloads the raw matrix, and writes metadata. If the raw file already
// exists on disk, it skips the download. suppl names a supplementary file
// to fetch instead of the series matrix.
func AcquireDataset(client *http.Client, identifier, suppl string, cfg types.AcquisitionConfig, w io.Writer) (ds *types.Dataset, skipped bool, err error) {
	idType, normalized := Classify(identifier)
	if idType == TypeUnknown {
		return nil, false, fmt.Errorf("unrecognized identifier format: %q", identifier)
	}

	slug := Slug(idType, normalized)
	downloadURL := DownloadURL(idType, normalized, suppl)
	if downloadURL == "" {
		return nil, false, fmt.Errorf("cannot resolve download URL for %q", identifier)
	}

	rawPath := filepath.Join(cfg.DatasetsDir, rawDir, filenameFromURL(downloadURL))
	metaPath := filepath.Join(cfg.DatasetsDir, metadataDir, slug+".yaml")

	// Skip if the raw file already exists.
	if _, err := os.Stat(rawPath); err == nil {
		fmt.Fprintf(w, "skipped: %s (already exists)\n", slug)
		d, readErr := ReadMetadata(metaPath)
		if readErr != nil {
			d = &types.Dataset{Accession: slug, RawPath: rawPath}
		}
		return d, true, nil
	}

	for _, dir := range []string{
		filepath.Join(cfg.DatasetsDir, rawDir),
		filepath.Join(cfg.DatasetsDir, metadataDir),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, false, fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	fmt.Fprintf(w, "downloading: %s (%s)\n", slug, idType)

	if err := downloadFile(client, downloadURL, rawPath, cfg); err != nil {
		return nil, false, fmt.Errorf("downloading %s: %w", slug, err)
	}

	d := &types.Dataset{
		Accession:        slug,
		SourceURL:        downloadURL,
		RawPath:          rawPath,
		Source:           idType.String(),
		ConversionStatus: types.ConversionNone,
	}

	// GEO accessions get title/summary/organism from the E-utilities.
	if idType == TypeGSE || idType == TypeGDS {
		if err := fetchGEOMetadata(client, normalized, d, cfg); err != nil {
			fmt.Fprintf(w, "  warning: GEO metadata fetch failed: %v\n", err)
		}
	}

	if err := WriteMetadata(d, metaPath); err != nil {
		return nil, false, fmt.Errorf("writing metadata for %s: %w", slug, err)
	}

	return d, false, nil
}

// AcquireBatch processes multiple identifiers, printing per-item status
// and returning a summary. It continues after individual failures and
// applies a delay between consecutive downloads.
func AcquireBatch(client *http.Client, identifiers []string, suppl string, cfg types.AcquisitionConfig, w io.Writer) BatchResult {
	var result BatchResult
	for i, id := range identifiers {
		if i > 0 && cfg.DownloadDelay > 0 {
			time.Sleep(cfg.DownloadDelay)
		}
		ds, wasSkipped, err := AcquireDataset(client, id, suppl, cfg, w)
		if err != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", id, err)
			result.Failed++
			continue
		}
		if wasSkipped {
			result.Skipped++
		} else {
			result.Downloaded++
		}
		result.Datasets = append(result.Datasets, ds)
	}
	fmt.Fprintf(w, "\nBatch summary: %d downloaded, %d skipped, %d failed (total: %d)\n",
		result.Downloaded, result.Skipped, result.Failed, result.Total())
	return result
}

// filenameFromURL takes the final path element of a download URL.
func filenameFromURL(url string) string {
	parts := strings.Split(strings.TrimRight(url, "/"), "/")
	return parts[len(parts)-1]
}

// downloadFile fetches url to destPath using a temporary file, renaming on
// success so partial downloads never land at the destination.
func downloadFile(client *http.Client, url, destPath string, cfg types.AcquisitionConfig) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".acquire-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, copyErr := io.Copy(tmpFile, resp.Body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// WriteMetadata writes a Dataset record to a YAML file.
func WriteMetadata(ds *types.Dataset, path string) error {
	data, err := yaml.Marshal(ds)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadMetadata reads a Dataset record from a YAML file.
func ReadMetadata(path string) (*types.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ds types.Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, err
	}
	return &ds, nil
}

// MetadataPath returns the metadata file location for an accession.
func MetadataPath(datasetsDir, accession string) string {
	return filepath.Join(datasetsDir, metadataDir, accession+".yaml")
}
