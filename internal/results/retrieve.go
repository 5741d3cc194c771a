// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package results

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pdiddy/expression-engine/pkg/types"
)

// Direction restricts retrieval to one side of the fold change.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// QueryOptions filters retrieval from the results store. Zero-valued
// fields are ignored.
type QueryOptions struct {
	Run          string  // restrict to one run ID
	Gene         string  // exact gene identifier
	MaxAdjP      float64 // keep genes with adjusted p below this
	MinAbsLog2FC float64 // keep genes with |log2 fold change| at least this
	Direction    string  // "up", "down", or empty for both
	Text         string  // full-text query over annotation symbol/name/summary
	MaxResults   int     // 0 uses the store default
}

// Hit is one retrieved differential-expression record with its run and
// any annotation attached.
type Hit struct {
	RunID string
	types.DEResult
	Symbol string
	Name   string
}

// Retrieve returns records matching opts ordered by adjusted p-value.
func (s *Store) Retrieve(ctx context.Context, opts QueryOptions) ([]Hit, error) {
	if opts.Direction != "" && opts.Direction != DirectionUp && opts.Direction != DirectionDown {
		return nil, fmt.Errorf("unknown direction %q", opts.Direction)
	}

	limit := opts.MaxResults
	if limit <= 0 {
		limit = s.maxResults
	}

	var (
		conditions []string
		args       []any
	)

	query := `SELECT d.run_id, d.gene, d.log2_fc, d.t_stat, d.p_value, d.adj_p, d.cohen_d, d.mean_a, d.mean_b,
			a.symbol, a.name
		FROM de_results d
		LEFT JOIN annotations a ON a.gene = d.gene`

	if opts.Text != "" {
		query += `
		JOIN annotations_fts f ON f.rowid = a.rowid`
		conditions = append(conditions, `annotations_fts MATCH ?`)
		args = append(args, opts.Text)
	}

	if opts.Run != "" {
		conditions = append(conditions, `d.run_id = ?`)
		args = append(args, opts.Run)
	}
	if opts.Gene != "" {
		conditions = append(conditions, `d.gene = ?`)
		args = append(args, opts.Gene)
	}
	if opts.MaxAdjP > 0 {
		conditions = append(conditions, `d.adj_p < ?`)
		args = append(args, opts.MaxAdjP)
	}
	if opts.MinAbsLog2FC > 0 {
		conditions = append(conditions, `abs(d.log2_fc) >= ?`)
		args = append(args, opts.MinAbsLog2FC)
	}
	switch opts.Direction {
	case DirectionUp:
		conditions = append(conditions, `d.log2_fc > 0`)
	case DirectionDown:
		conditions = append(conditions, `d.log2_fc < 0`)
	}

	if len(conditions) > 0 {
		query += "\n\t\tWHERE " + strings.Join(conditions, " AND ")
	}
	query += `
		ORDER BY d.adj_p, d.p_value, d.gene
		LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var (
			h      Hit
			symbol sql.NullString
			name   sql.NullString
		)
		if err := rows.Scan(&h.RunID, &h.Gene, &h.Log2FC, &h.TStat, &h.PValue, &h.AdjP,
			&h.CohenD, &h.MeanA, &h.MeanB, &symbol, &name); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		h.Symbol = symbol.String
		h.Name = name.String
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Annotation returns the stored annotation for a gene, or nil when none
// has been ingested.
func (s *Store) Annotation(ctx context.Context, gene string) (*types.Annotation, error) {
	var a types.Annotation
	err := s.db.QueryRowContext(ctx,
		`SELECT gene, symbol, name, summary FROM annotations WHERE gene = ?`, gene,
	).Scan(&a.Gene, &a.Symbol, &a.Name, &a.Summary)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying annotation: %w", err)
	}
	return &a, nil
}

// HasGene reports whether any run contains the gene.
func (s *Store) HasGene(ctx context.Context, gene string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM de_results WHERE gene = ?`, gene).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("querying gene: %w", err)
	}
	return n > 0, nil
}
