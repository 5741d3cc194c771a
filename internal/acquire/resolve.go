// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"fmt"
	"regexp"
	"strings"
)

// IdentifierType classifies dataset identifiers the CLI accepts.
type IdentifierType int

const (
	TypeUnknown IdentifierType = iota
	TypeGSE                    // GEO series accession, e.g. GSE131907
	TypeGDS                    // GEO dataset accession, e.g. GDS5826
	TypeURL                    // direct download URL
)

func (t IdentifierType) String() string {
	switch t {
	case TypeGSE:
		return "gse"
	case TypeGDS:
		return "gds"
	case TypeURL:
		return "url"
	}
	return "unknown"
}

var (
	gsePattern = regexp.MustCompile(`^GSE\d+$`)
	gdsPattern = regexp.MustCompile(`^GDS\d+$`)
)

// Classify determines the identifier type and returns a normalized form:
// accessions are upper-cased, URLs pass through.
func Classify(identifier string) (IdentifierType, string) {
	id := strings.TrimSpace(identifier)
	upper := strings.ToUpper(id)
	switch {
	case gsePattern.MatchString(upper):
		return TypeGSE, upper
	case gdsPattern.MatchString(upper):
		return TypeGDS, upper
	case strings.HasPrefix(id, "http://"), strings.HasPrefix(id, "https://"):
		return TypeURL, id
	}
	return TypeUnknown, id
}

// Slug derives the on-disk dataset name.
func Slug(idType IdentifierType, normalized string) string {
	if idType == TypeURL {
		parts := strings.Split(strings.TrimRight(normalized, "/"), "/")
		name := parts[len(parts)-1]
		if name == "" {
			return "dataset"
		}
		// Strip the extension chain (.txt.gz etc.) for a stable slug.
		if i := strings.Index(name, "."); i > 0 {
			name = name[:i]
		}
		return name
	}
	return normalized
}

// seriesRange converts an accession to GEO's FTP bucket form, which masks
// the last three digits: GSE131907 -> GSE131nnn.
func seriesRange(accession string) string {
	digits := accession[3:]
	if len(digits) <= 3 {
		return accession[:3] + "nnn"
	}
	return accession[:3] + digits[:len(digits)-3] + "nnn"
}

// SeriesMatrixURL returns the canonical series-matrix download URL for a
// GEO series accession.
func SeriesMatrixURL(accession string) string {
	return fmt.Sprintf("https://ftp.ncbi.nlm.nih.gov/geo/series/%s/%s/matrix/%s_series_matrix.txt.gz",
		seriesRange(accession), accession, accession)
}

// SupplementaryURL returns the download URL for a named supplementary file
// of a GEO series.
func SupplementaryURL(accession, filename string) string {
	return fmt.Sprintf("https://ftp.ncbi.nlm.nih.gov/geo/series/%s/%s/suppl/%s",
		seriesRange(accession), accession, filename)
}

// DatasetSoftURL returns the curated SOFT download URL for a GDS accession.
func DatasetSoftURL(accession string) string {
	return fmt.Sprintf("https://ftp.ncbi.nlm.nih.gov/geo/datasets/%s/%s/soft/%s.soft.gz",
		seriesRange(accession), accession, accession)
}

// DownloadURL resolves the identifier to the file fetched by acquisition.
// For GSE accessions, suppl selects a supplementary file instead of the
// series matrix.
func DownloadURL(idType IdentifierType, normalized, suppl string) string {
	switch idType {
	case TypeGSE:
		if suppl != "" {
			return SupplementaryURL(normalized, suppl)
		}
		return SeriesMatrixURL(normalized)
	case TypeGDS:
		return DatasetSoftURL(normalized)
	case TypeURL:
		return normalized
	}
	return ""
}
