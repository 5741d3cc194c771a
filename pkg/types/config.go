package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "expression-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SearchConfig holds settings for the dataset search stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxResults is the maximum number of results to return (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// EnableGEO controls whether the NCBI GEO backend is used.
	EnableGEO bool `json:"enable_geo" yaml:"enable_geo"`

	// EnableBioStudies controls whether the EBI BioStudies backend is used.
	EnableBioStudies bool `json:"enable_biostudies" yaml:"enable_biostudies"`

	// NCBIAPIKey is an optional E-utilities key for higher rate limits.
	NCBIAPIKey string `json:"ncbi_api_key,omitempty" yaml:"ncbi_api_key,omitempty"`

	// ContactEmail is sent to BioStudies as a mailto contact in the
	// User-Agent, identifying the caller per EBI API etiquette.
	ContactEmail string `json:"contact_email,omitempty" yaml:"contact_email,omitempty"`

	// InterBackendDelay is the delay between API calls to different backends (default 1s).
	InterBackendDelay time.Duration `json:"inter_backend_delay" yaml:"inter_backend_delay"`

	// RecencyBiasWindow is the time window for boosting recent datasets (default 2 years).
	RecencyBiasWindow time.Duration `json:"recency_bias_window" yaml:"recency_bias_window"`
}

// AcquisitionConfig holds settings for the dataset acquisition stage.
type AcquisitionConfig struct {
	HTTPConfig `yaml:",inline"`

	// DownloadDelay is the delay between consecutive downloads (default 1s).
	DownloadDelay time.Duration `json:"download_delay" yaml:"download_delay"`

	// DatasetsDir is the base directory for datasets (contains raw/, metadata/, counts/).
	DatasetsDir string `json:"datasets_dir" yaml:"datasets_dir"`

	// NCBIAPIKey is an optional E-utilities key for metadata lookups.
	NCBIAPIKey string `json:"ncbi_api_key,omitempty" yaml:"ncbi_api_key,omitempty"`
}

// ConversionBackend identifies the raw-matrix conversion tool.
type ConversionBackend string

const (
	BackendMTX ConversionBackend = "mtx"
	BackendTSV ConversionBackend = "tsv"
	BackendRDS ConversionBackend = "rds"
)

// ConversionConfig holds settings for the conversion stage.
type ConversionConfig struct {
	// Backend selects the conversion tool: mtx, tsv, or rds.
	Backend ConversionBackend `json:"backend" yaml:"backend"`

	// DatasetsDir is the base directory for datasets (contains raw/, counts/).
	DatasetsDir string `json:"datasets_dir" yaml:"datasets_dir"`

	// RDSImage is the container image used to read Seurat .rds objects.
	RDSImage string `json:"rds_image,omitempty" yaml:"rds_image,omitempty"`
}

// CountsConfig holds settings for single-cell preprocessing.
type CountsConfig struct {
	// DatasetsDir is the base directory for datasets (contains counts/, metadata/).
	DatasetsDir string `json:"datasets_dir" yaml:"datasets_dir"`

	// MinFeatures drops cells with fewer detected genes (default 200).
	MinFeatures int `json:"min_features" yaml:"min_features"`

	// MinCells drops genes detected in fewer cells (default 3).
	MinCells int `json:"min_cells" yaml:"min_cells"`

	// MaxMitoFraction drops cells whose mitochondrial read fraction
	// exceeds this value (default 0.2).
	MaxMitoFraction float64 `json:"max_mito_fraction" yaml:"max_mito_fraction"`

	// MitoPrefix identifies mitochondrial genes by name prefix (default "MT-").
	MitoPrefix string `json:"mito_prefix" yaml:"mito_prefix"`

	// ScaleFactor is the per-cell scaling target for log-normalization
	// (default 1e4).
	ScaleFactor float64 `json:"scale_factor" yaml:"scale_factor"`

	// SampleMapFile optionally maps cell barcodes to sample IDs. When
	// empty, samples are derived from barcode suffixes.
	SampleMapFile string `json:"sample_map_file,omitempty" yaml:"sample_map_file,omitempty"`
}

// Aggregation selects the pseudo-bulk statistic.
type Aggregation string

const (
	AggMean Aggregation = "mean"
	AggSum  Aggregation = "sum"
)

// PseudobulkConfig holds settings for the aggregation stage.
type PseudobulkConfig struct {
	// Agg selects the per-sample statistic: mean or sum.
	Agg Aggregation `json:"agg" yaml:"agg"`

	// Log2 applies log2(x+1) to the aggregated matrix (default true).
	Log2 bool `json:"log2" yaml:"log2"`

	// ResultsDir is the base directory for results (contains pseudobulk/).
	ResultsDir string `json:"results_dir" yaml:"results_dir"`
}

// PCAConfig holds settings for principal component analysis.
type PCAConfig struct {
	// Components is the number of components to keep (default min(10, samples-1)).
	Components int `json:"components" yaml:"components"`

	// Scale standardizes genes to unit variance before the decomposition.
	Scale bool `json:"scale" yaml:"scale"`

	// ResultsDir is the base directory for results (contains analysis/, figures/).
	ResultsDir string `json:"results_dir" yaml:"results_dir"`
}

// DiffExpConfig holds settings for differential expression testing.
type DiffExpConfig struct {
	// GroupA and GroupB are the conditions compared; the fold change is
	// reported as A relative to B (default tumor vs normal).
	GroupA Condition `json:"group_a" yaml:"group_a"`
	GroupB Condition `json:"group_b" yaml:"group_b"`

	// ResultsDir is the base directory for results (contains analysis/).
	ResultsDir string `json:"results_dir" yaml:"results_dir"`
}

// HeatmapConfig holds settings for clustered heatmap rendering.
type HeatmapConfig struct {
	// TopN selects the highest-ranked genes by adjusted p-value (default 50).
	TopN int `json:"top_n" yaml:"top_n"`

	// Linkage selects the clustering linkage: average, complete, or single.
	Linkage string `json:"linkage" yaml:"linkage"`

	// ResultsDir is the base directory for results (contains analysis/, figures/).
	ResultsDir string `json:"results_dir" yaml:"results_dir"`
}

// AnnotateConfig holds settings for gene annotation lookups.
type AnnotateConfig struct {
	HTTPConfig `yaml:",inline"`

	// BatchSize is the number of gene IDs per mygene.info request (default 500).
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// Species restricts annotation matches (default "human").
	Species string `json:"species" yaml:"species"`

	// ContactEmail is passed to mygene.info as the email parameter so
	// heavy usage can be attributed to a caller.
	ContactEmail string `json:"contact_email,omitempty" yaml:"contact_email,omitempty"`
}

// ResultsConfig holds settings for the results store.
type ResultsConfig struct {
	// ResultsDir is the base directory for results (contains analysis/, index/).
	ResultsDir string `json:"results_dir" yaml:"results_dir"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// ReportConfig holds settings for report generation.
type ReportConfig struct {
	// OutputDir is the directory for generated reports (e.g. "output/reports/").
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// ResultsDir is the base directory for results the report draws from.
	ResultsDir string `json:"results_dir" yaml:"results_dir"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Search      SearchConfig      `json:"search" yaml:"search"`
	Acquisition AcquisitionConfig `json:"acquisition" yaml:"acquisition"`
	Conversion  ConversionConfig  `json:"conversion" yaml:"conversion"`
	Counts      CountsConfig      `json:"counts" yaml:"counts"`
	Pseudobulk  PseudobulkConfig  `json:"pseudobulk" yaml:"pseudobulk"`
	PCA         PCAConfig         `json:"pca" yaml:"pca"`
	DiffExp     DiffExpConfig     `json:"diffexp" yaml:"diffexp"`
	Heatmap     HeatmapConfig     `json:"heatmap" yaml:"heatmap"`
	Annotate    AnnotateConfig    `json:"annotate" yaml:"annotate"`
	Results     ResultsConfig     `json:"results" yaml:"results"`
	Report      ReportConfig      `json:"report" yaml:"report"`
}
