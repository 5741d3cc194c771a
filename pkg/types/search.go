// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// SearchResult is a unified dataset record returned by search backends.
type SearchResult struct {
	// Accession is the repository accession (e.g. "GSE131907", "E-MTAB-6149").
	Accession string `json:"accession" yaml:"accession"`

	// Title is the dataset title.
	Title string `json:"title" yaml:"title"`

	// Summary is the dataset description.
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`

	// Organism is the source organism.
	Organism string `json:"organism,omitempty" yaml:"organism,omitempty"`

	// Samples is the repository-reported sample count.
	Samples int `json:"samples,omitempty" yaml:"samples,omitempty"`

	// Released is the repository release date.
	Released time.Time `json:"released,omitempty" yaml:"released,omitempty"`

	// Source identifies the backend that returned the record ("geo", "biostudies").
	Source string `json:"source" yaml:"source"`

	// Score is the internal ranking score; higher sorts earlier.
	Score float64 `json:"-" yaml:"-"`
}
