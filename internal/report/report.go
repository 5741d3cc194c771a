// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report assembles Markdown analysis reports from the results
// store and PCA output.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/expression-engine/internal/pca"
	"github.com/pdiddy/expression-engine/internal/results"
	"github.com/pdiddy/expression-engine/pkg/types"
)

// Section kinds understood by Generate.
const (
	SectionSummary  = "summary"
	SectionVariance = "variance"
	SectionTopGenes = "top-genes"
	SectionFigure   = "figure"
	SectionText     = "text"
)

// Spec describes one report: which run it covers and the ordered
// sections to render. Loaded from a report.yaml file.
type Spec struct {
	Title    string    `yaml:"title"`
	Run      string    `yaml:"run"`
	Sections []Section `yaml:"sections"`
}

// Section is a single block of the report. Fields beyond Kind and Title
// apply only to particular kinds.
type Section struct {
	Kind  string `yaml:"kind"`
	Title string `yaml:"title"`

	// Text is the body for kind "text". Inline gene mentions written as
	// [GENE] are validated against the results store.
	Text string `yaml:"text"`

	// Direction restricts kind "top-genes" to "up" or "down".
	Direction string `yaml:"direction"`

	// Count limits kind "top-genes" rows (default 10).
	Count int `yaml:"count"`

	// VarianceCSV locates the explained-variance table for kind
	// "variance"; relative paths resolve against the results directory.
	VarianceCSV string `yaml:"variance_csv"`

	// Figure is the image path for kind "figure", linked as-is.
	Figure string `yaml:"figure"`
}

// LoadSpec reads a report spec from a YAML file.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report spec: %w", err)
	}
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing report spec: %w", err)
	}
	if spec.Run == "" {
		return nil, fmt.Errorf("report spec: run is required")
	}
	return &spec, nil
}

// ValidateGenes scans the spec's text sections for inline gene mentions
// and returns those absent from the results store, sorted.
func ValidateGenes(ctx context.Context, store *results.Store, spec *Spec) ([]string, error) {
	seen := make(map[string]bool)
	for _, sec := range spec.Sections {
		if sec.Kind != SectionText {
			continue
		}
		for _, gene := range extractGeneMentions(sec.Text) {
			if seen[gene] {
				continue
			}
			ok, err := store.HasGene(ctx, gene)
			if err != nil {
				return nil, err
			}
			if !ok {
				seen[gene] = true
			}
		}
	}

	var missing []string
	for gene := range seen {
		missing = append(missing, gene)
	}
	sort.Strings(missing)
	return missing, nil
}

// Generate renders the report described by spec and writes it to
// cfg.OutputDir/[run].md, returning the written path. Unknown gene
// mentions fail the run before anything is written.
func Generate(ctx context.Context, store *results.Store, spec *Spec, cfg types.ReportConfig) (string, error) {
	missing, err := ValidateGenes(ctx, store, spec)
	if err != nil {
		return "", fmt.Errorf("validating genes: %w", err)
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("genes not found in results store: %s", strings.Join(missing, ", "))
	}

	var b strings.Builder

	title := spec.Title
	if title == "" {
		title = spec.Run
	}
	fmt.Fprintf(&b, "# %s\n", title)

	for _, sec := range spec.Sections {
		b.WriteString("\n")
		if sec.Title != "" {
			fmt.Fprintf(&b, "## %s\n\n", sec.Title)
		}

		switch sec.Kind {
		case SectionSummary:
			if err := renderSummary(ctx, &b, store, spec.Run); err != nil {
				return "", err
			}
		case SectionVariance:
			if err := renderVariance(&b, sec, cfg.ResultsDir); err != nil {
				return "", err
			}
		case SectionTopGenes:
			if err := renderTopGenes(ctx, &b, store, spec.Run, sec); err != nil {
				return "", err
			}
		case SectionFigure:
			if sec.Figure == "" {
				return "", fmt.Errorf("figure section: figure is required")
			}
			caption := sec.Title
			if caption == "" {
				caption = filepath.Base(sec.Figure)
			}
			fmt.Fprintf(&b, "![%s](%s)\n", caption, sec.Figure)
		case SectionText:
			b.WriteString(strings.TrimRight(sec.Text, "\n"))
			b.WriteString("\n")
		default:
			return "", fmt.Errorf("unknown section kind %q", sec.Kind)
		}
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(cfg.OutputDir, spec.Run+".md")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}

func renderSummary(ctx context.Context, b *strings.Builder, store *results.Store, runID string) error {
	runs, err := store.Runs(ctx)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}
	for _, run := range runs {
		if run.ID != runID {
			continue
		}
		fmt.Fprintf(b, "Dataset %s, %s vs %s: %d genes tested across %d pseudo-bulk samples.\n",
			run.Dataset, run.GroupA, run.GroupB, run.NGenes, run.NSamples)
		if !run.CreatedAt.IsZero() {
			fmt.Fprintf(b, "Analysis run on %s.\n", run.CreatedAt.Format("2006-01-02"))
		}
		return nil
	}
	return fmt.Errorf("run %s not found in results store", runID)
}

func renderVariance(b *strings.Builder, sec Section, resultsDir string) error {
	path := sec.VarianceCSV
	if path == "" {
		return fmt.Errorf("variance section: variance_csv is required")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(resultsDir, path)
	}

	props, err := pca.ReadVarianceCSV(path)
	if err != nil {
		return fmt.Errorf("reading variance table: %w", err)
	}

	b.WriteString("| Component | Variance explained | Cumulative |\n")
	b.WriteString("|-----------|--------------------|------------|\n")
	var cum float64
	for i, p := range props {
		cum += p
		fmt.Fprintf(b, "| PC%d | %.1f%% | %.1f%% |\n", i+1, p*100, cum*100)
	}
	return nil
}

func renderTopGenes(ctx context.Context, b *strings.Builder, store *results.Store, runID string, sec Section) error {
	count := sec.Count
	if count <= 0 {
		count = 10
	}

	hits, err := store.Retrieve(ctx, results.QueryOptions{
		Run:        runID,
		Direction:  sec.Direction,
		MaxResults: count,
	})
	if err != nil {
		return fmt.Errorf("retrieving top genes: %w", err)
	}
	if len(hits) == 0 {
		b.WriteString("No genes matched.\n")
		return nil
	}

	b.WriteString("| Gene | Symbol | log2 FC | Adjusted p | Cohen's d |\n")
	b.WriteString("|------|--------|---------|------------|-----------|\n")
	for _, h := range hits {
		symbol := h.Symbol
		if symbol == "" {
			symbol = "-"
		}
		fmt.Fprintf(b, "| %s | %s | %.3f | %.3g | %.3f |\n",
			h.Gene, symbol, h.Log2FC, h.AdjP, h.CohenD)
	}
	return nil
}

// mentionPattern matches bracketed gene mentions: [TP53] or [TP53; EGFR].
var mentionPattern = regexp.MustCompile(`\[([^\[\]]+)\]`)

// extractGeneMentions finds gene identifiers mentioned in text. Markdown
// links and other bracket content are rejected by shape.
func extractGeneMentions(text string) []string {
	var genes []string
	for _, m := range mentionPattern.FindAllStringSubmatch(text, -1) {
		for _, part := range strings.Split(m[1], ";") {
			gene := strings.TrimSpace(part)
			if gene != "" && isGeneMention(gene) {
				genes = append(genes, gene)
			}
		}
	}
	return genes
}

// isGeneMention checks whether a string looks like a gene identifier:
// uppercase alphanumerics with optional hyphens or dots, starting with
// a letter.
func isGeneMention(s string) bool {
	if s == "" || !(s[0] >= 'A' && s[0] <= 'Z') {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '.':
		default:
			return false
		}
	}
	return true
}
