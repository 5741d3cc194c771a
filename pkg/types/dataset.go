// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ConversionStatus indicates the state of raw-matrix-to-CSV conversion
// for a dataset.
type ConversionStatus string

const (
	ConversionNone   ConversionStatus = "none"
	ConversionDone   ConversionStatus = "converted"
	ConversionFailed ConversionStatus = "failed"
)

// Condition labels a sample's disease state.
type Condition string

const (
	ConditionTumor  Condition = "tumor"
	ConditionNormal Condition = "normal"
)

// Sample describes one biological sample within a dataset. Condition,
// patient, and stage travel with the pseudo-bulk matrix and drive the
// differential-expression grouping.
type Sample struct {
	// ID is the sample identifier (e.g. "LUNG_T06").
	ID string `json:"id" yaml:"id"`

	// Condition is the disease state: tumor or normal.
	Condition Condition `json:"condition" yaml:"condition"`

	// Patient identifies the donor, shared by paired tumor/normal samples.
	Patient string `json:"patient,omitempty" yaml:"patient,omitempty"`

	// Stage is the pathological stage (e.g. "IA", "IIIB").
	Stage string `json:"stage,omitempty" yaml:"stage,omitempty"`

	// BarcodeSuffix is the numeric suffix 10x appends to cell barcodes
	// belonging to this sample ("-3" for suffix 3). Empty when cells are
	// assigned through an explicit sample map.
	BarcodeSuffix string `json:"barcode_suffix,omitempty" yaml:"barcode_suffix,omitempty"`
}

// Dataset holds metadata and file paths for an acquired expression dataset.
type Dataset struct {
	// Accession is the repository accession (e.g. "GSE131907").
	Accession string `json:"accession" yaml:"accession"`

	// Title is the dataset title from the repository.
	Title string `json:"title" yaml:"title"`

	// Summary is the dataset description from the repository.
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`

	// Organism is the source organism (e.g. "Homo sapiens").
	Organism string `json:"organism,omitempty" yaml:"organism,omitempty"`

	// SourceURL is the URL the raw matrix was downloaded from.
	SourceURL string `json:"source_url" yaml:"source_url"`

	// RawPath is the local filesystem path to the downloaded raw matrix.
	RawPath string `json:"raw_path" yaml:"raw_path"`

	// Released is the repository release date.
	Released time.Time `json:"released,omitempty" yaml:"released,omitempty"`

	// Source identifies which repository provided the data (e.g. "geo", "url").
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// Samples lists the samples the analysis targets. Cells belonging to
	// samples outside this list are dropped during preprocessing.
	Samples []Sample `json:"samples,omitempty" yaml:"samples,omitempty"`

	// ConversionStatus tracks whether the raw matrix has been converted to
	// the canonical counts CSV.
	ConversionStatus ConversionStatus `json:"conversion_status" yaml:"conversion_status"`
}

// SampleByID returns the sample with the given ID, or nil.
func (d *Dataset) SampleByID(id string) *Sample {
	for i := range d.Samples {
		if d.Samples[i].ID == id {
			return &d.Samples[i]
		}
	}
	return nil
}

// SampleIDs returns the IDs of the target samples in declaration order.
func (d *Dataset) SampleIDs() []string {
	ids := make([]string, len(d.Samples))
	for i, s := range d.Samples {
		ids[i] = s.ID
	}
	return ids
}
