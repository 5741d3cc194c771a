// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// DEResult holds the differential-expression statistics for one gene.
type DEResult struct {
	// Gene is the gene identifier (symbol or Ensembl ID) from the counts matrix.
	Gene string `json:"gene" yaml:"gene"`

	// Log2FC is mean(groupA) - mean(groupB) on the log2 pseudo-bulk matrix.
	Log2FC float64 `json:"log2_fc" yaml:"log2_fc"`

	// TStat is the Welch two-sample t-statistic.
	TStat float64 `json:"t_stat" yaml:"t_stat"`

	// PValue is the two-sided p-value from the Student's-t distribution
	// with Welch-Satterthwaite degrees of freedom.
	PValue float64 `json:"p_value" yaml:"p_value"`

	// AdjP is the Benjamini-Hochberg adjusted p-value.
	AdjP float64 `json:"adj_p" yaml:"adj_p"`

	// CohenD is the standardized effect size with pooled standard deviation.
	CohenD float64 `json:"cohen_d" yaml:"cohen_d"`

	// MeanA and MeanB are the group means on the log2 matrix.
	MeanA float64 `json:"mean_a" yaml:"mean_a"`
	MeanB float64 `json:"mean_b" yaml:"mean_b"`
}

// Up reports whether the gene is higher in group A than in group B.
func (r DEResult) Up() bool { return r.Log2FC > 0 }

// RunInfo describes one differential-expression run. It is written next to
// the results CSV and ingested into the results store.
type RunInfo struct {
	// ID is the run identifier, typically "<accession>-<groupA>-vs-<groupB>".
	ID string `json:"id" yaml:"id"`

	// Dataset is the source dataset accession.
	Dataset string `json:"dataset" yaml:"dataset"`

	// GroupA and GroupB are the compared conditions.
	GroupA Condition `json:"group_a" yaml:"group_a"`
	GroupB Condition `json:"group_b" yaml:"group_b"`

	// NGenes and NSamples are the dimensions of the tested matrix.
	NGenes   int `json:"n_genes" yaml:"n_genes"`
	NSamples int `json:"n_samples" yaml:"n_samples"`

	// CreatedAt is when the run was executed.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// SourceCSV is the path to the results CSV this record describes.
	SourceCSV string `json:"source_csv" yaml:"source_csv"`
}

// Annotation holds gene annotation fields from mygene.info.
type Annotation struct {
	// Gene is the queried identifier.
	Gene string `json:"gene" yaml:"gene"`

	// Symbol is the official gene symbol.
	Symbol string `json:"symbol" yaml:"symbol"`

	// Name is the full gene name.
	Name string `json:"name" yaml:"name"`

	// Summary is the RefSeq functional summary, when available.
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`
}
