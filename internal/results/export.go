// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package results

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// ExportEntry holds one differential-expression record with its
// annotation for export.
type ExportEntry struct {
	Run    string            `json:"run" yaml:"run"`
	Gene   string            `json:"gene" yaml:"gene"`
	Log2FC float64           `json:"log2_fc" yaml:"log2_fc"`
	TStat  float64           `json:"t_stat" yaml:"t_stat"`
	PValue float64           `json:"p_value" yaml:"p_value"`
	AdjP   float64           `json:"adj_p" yaml:"adj_p"`
	CohenD float64           `json:"cohen_d" yaml:"cohen_d"`
	MeanA  float64           `json:"mean_a" yaml:"mean_a"`
	MeanB  float64           `json:"mean_b" yaml:"mean_b"`
	Anno   *ExportAnnotation `json:"annotation,omitempty" yaml:"annotation,omitempty"`
}

// ExportAnnotation holds the annotation fields included in each export entry.
type ExportAnnotation struct {
	Symbol string `json:"symbol" yaml:"symbol"`
	Name   string `json:"name" yaml:"name"`
}

const exportLimit = 1000000

// ExportYAML writes matching records to results/index/export.yaml.
// It supports the same filters as Retrieve.
func (s *Store) ExportYAML(ctx context.Context, opts QueryOptions) error {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return err
	}

	path := filepath.Join(s.resultsDir, indexDir, "export.yaml")
	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ExportJSON writes matching records to results/index/export.json.
// It supports the same filters as Retrieve.
func (s *Store) ExportJSON(ctx context.Context, opts QueryOptions) error {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return err
	}

	path := filepath.Join(s.resultsDir, indexDir, "export.json")
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *Store) exportEntries(ctx context.Context, opts QueryOptions) ([]ExportEntry, error) {
	opts.MaxResults = exportLimit
	hits, err := s.Retrieve(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}

	entries := make([]ExportEntry, len(hits))
	for i, h := range hits {
		entries[i] = ExportEntry{
			Run:    h.RunID,
			Gene:   h.Gene,
			Log2FC: h.Log2FC,
			TStat:  h.TStat,
			PValue: h.PValue,
			AdjP:   h.AdjP,
			CohenD: h.CohenD,
			MeanA:  h.MeanA,
			MeanB:  h.MeanB,
		}
		if h.Symbol != "" || h.Name != "" {
			entries[i].Anno = &ExportAnnotation{Symbol: h.Symbol, Name: h.Name}
		}
	}

	return entries, nil
}
