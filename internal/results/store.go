// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package results persists differential-expression runs and gene
// annotations in SQLite and serves ranked, filtered queries over them.
package results

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/expression-engine/internal/diffexp"
	"github.com/pdiddy/expression-engine/pkg/types"
)

const (
	analysisDir = "analysis"
	indexDir    = "index"
	dbFile      = "expression.db"

	resultsSuffix = "-diffexp.csv"
	runSuffix     = "-run.yaml"
)

// Store manages the results SQLite database.
type Store struct {
	db         *sql.DB
	resultsDir string
	maxResults int
}

// NewStore opens or creates the results database at
// resultsDir/index/expression.db, creating the schema if needed.
func NewStore(cfg types.ResultsConfig) (*Store, error) {
	dbDir := filepath.Join(cfg.ResultsDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{
		db:         db,
		resultsDir: cfg.ResultsDir,
		maxResults: maxResults,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			dataset TEXT,
			group_a TEXT,
			group_b TEXT,
			n_genes INTEGER,
			n_samples INTEGER,
			created_at TEXT,
			source_csv TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS de_results (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			gene TEXT NOT NULL,
			log2_fc REAL,
			t_stat REAL,
			p_value REAL,
			adj_p REAL,
			cohen_d REAL,
			mean_a REAL,
			mean_b REAL,
			UNIQUE(run_id, gene)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_de_run ON de_results(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_de_gene ON de_results(gene)`,
		`CREATE INDEX IF NOT EXISTS idx_de_adj_p ON de_results(adj_p)`,
		`CREATE TABLE IF NOT EXISTS annotations (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			gene TEXT NOT NULL UNIQUE,
			symbol TEXT,
			name TEXT,
			summary TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS indexing_status (
			run_id TEXT PRIMARY KEY,
			file_mod_time TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table over annotation text with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='annotations_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE annotations_fts USING fts5(symbol, name, summary, content=annotations, content_rowid=rowid)`,
			`CREATE TRIGGER annotations_ai AFTER INSERT ON annotations BEGIN
				INSERT INTO annotations_fts(rowid, symbol, name, summary) VALUES (new.rowid, new.symbol, new.name, new.summary);
			END`,
			`CREATE TRIGGER annotations_ad AFTER DELETE ON annotations BEGIN
				INSERT INTO annotations_fts(annotations_fts, rowid, symbol, name, summary) VALUES('delete', old.rowid, old.symbol, old.name, old.summary);
			END`,
			`CREATE TRIGGER annotations_au AFTER UPDATE ON annotations BEGIN
				INSERT INTO annotations_fts(annotations_fts, rowid, symbol, name, summary) VALUES('delete', old.rowid, old.symbol, old.name, old.summary);
				INSERT INTO annotations_fts(rowid, symbol, name, summary) VALUES (new.rowid, new.symbol, new.name, new.summary);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// IngestSummary holds counts from a results indexing run.
type IngestSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of runs processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// Ingest reads diffexp CSVs from resultsDir/analysis/ and populates the
// database. Files are keyed on modification time so unchanged runs are
// skipped and changed runs replaced. On success it writes export.yaml.
func (s *Store) Ingest(ctx context.Context, w io.Writer) (IngestSummary, error) {
	dir := filepath.Join(s.resultsDir, analysisDir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("reading analysis directory %s: %w", dir, err)
	}

	var summary IngestSummary

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), resultsSuffix) {
			continue
		}

		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		runID := strings.TrimSuffix(entry.Name(), resultsSuffix)
		csvPath := filepath.Join(dir, entry.Name())

		info, err := entry.Info()
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", runID, err)
			summary.Failed++
			continue
		}
		modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

		// Check whether the file has changed since last indexing.
		var storedModTime string
		err = s.db.QueryRowContext(ctx,
			`SELECT file_mod_time FROM indexing_status WHERE run_id = ?`, runID,
		).Scan(&storedModTime)

		if err == nil && storedModTime == modTime {
			fmt.Fprintf(w, "skipped %s\n", runID)
			summary.Skipped++
			continue
		}

		isUpdate := err == nil

		des, err := diffexp.ReadCSVFile(csvPath)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", runID, err)
			summary.Failed++
			continue
		}

		run := loadRunInfo(dir, runID, csvPath, len(des))

		if err := s.ingestRun(ctx, run, des, modTime, isUpdate); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", runID, err)
			summary.Failed++
			continue
		}

		if isUpdate {
			fmt.Fprintf(w, "updated %s (%d genes)\n", runID, len(des))
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexing %s (%d genes)\n", runID, len(des))
			summary.Indexed++
		}
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)

	// Refresh export.yaml after successful ingestion.
	if summary.Indexed > 0 || summary.Updated > 0 {
		if err := s.ExportYAML(ctx, QueryOptions{}); err != nil {
			fmt.Fprintf(w, "warning: export.yaml write failed: %v\n", err)
		}
	}

	return summary, nil
}

func (s *Store) ingestRun(ctx context.Context, run types.RunInfo, des []types.DEResult, modTime string, isUpdate bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if isUpdate {
		if _, err := tx.ExecContext(ctx, `DELETE FROM de_results WHERE run_id = ?`, run.ID); err != nil {
			return fmt.Errorf("deleting old results: %w", err)
		}
	}

	createdAt := ""
	if !run.CreatedAt.IsZero() {
		createdAt = run.CreatedAt.Format(time.RFC3339)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, dataset, group_a, group_b, n_genes, n_samples, created_at, source_csv)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			dataset=excluded.dataset, group_a=excluded.group_a, group_b=excluded.group_b,
			n_genes=excluded.n_genes, n_samples=excluded.n_samples,
			created_at=excluded.created_at, source_csv=excluded.source_csv`,
		run.ID, run.Dataset, string(run.GroupA), string(run.GroupB),
		run.NGenes, run.NSamples, createdAt, run.SourceCSV,
	)
	if err != nil {
		return fmt.Errorf("upserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO de_results (run_id, gene, log2_fc, t_stat, p_value, adj_p, cohen_d, mean_a, mean_b)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range des {
		_, err := stmt.ExecContext(ctx,
			run.ID, r.Gene, r.Log2FC, r.TStat, r.PValue, r.AdjP, r.CohenD, r.MeanA, r.MeanB,
		)
		if err != nil {
			return fmt.Errorf("inserting result for %s: %w", r.Gene, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO indexing_status (run_id, file_mod_time) VALUES (?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET file_mod_time=excluded.file_mod_time`,
		run.ID, modTime,
	)
	if err != nil {
		return fmt.Errorf("updating indexing status: %w", err)
	}

	return tx.Commit()
}

// loadRunInfo reads dir/[runID]-run.yaml. When the file is missing or
// malformed a minimal record derived from the CSV is used instead.
func loadRunInfo(dir, runID, csvPath string, nGenes int) types.RunInfo {
	fallback := types.RunInfo{ID: runID, NGenes: nGenes, SourceCSV: csvPath}

	data, err := os.ReadFile(filepath.Join(dir, runID+runSuffix))
	if err != nil {
		return fallback
	}
	var run types.RunInfo
	if err := yaml.Unmarshal(data, &run); err != nil {
		return fallback
	}
	if run.ID == "" {
		run.ID = runID
	}
	if run.SourceCSV == "" {
		run.SourceCSV = csvPath
	}
	if run.NGenes == 0 {
		run.NGenes = nGenes
	}
	return run
}

// UpsertAnnotations stores gene annotations, replacing existing records.
func (s *Store) UpsertAnnotations(ctx context.Context, annotations []types.Annotation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO annotations (gene, symbol, name, summary) VALUES (?, ?, ?, ?)
		 ON CONFLICT(gene) DO UPDATE SET
			symbol=excluded.symbol, name=excluded.name, summary=excluded.summary`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, a := range annotations {
		if _, err := stmt.ExecContext(ctx, a.Gene, a.Symbol, a.Name, a.Summary); err != nil {
			return fmt.Errorf("upserting annotation for %s: %w", a.Gene, err)
		}
	}
	return tx.Commit()
}

// Runs lists all stored runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]types.RunInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, dataset, group_a, group_b, n_genes, n_samples, created_at, source_csv
		 FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []types.RunInfo
	for rows.Next() {
		var (
			run       types.RunInfo
			groupA    string
			groupB    string
			createdAt sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.Dataset, &groupA, &groupB,
			&run.NGenes, &run.NSamples, &createdAt, &run.SourceCSV); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		run.GroupA = types.Condition(groupA)
		run.GroupB = types.Condition(groupB)
		if createdAt.Valid && createdAt.String != "" {
			if t, err := time.Parse(time.RFC3339, createdAt.String); err == nil {
				run.CreatedAt = t
			}
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
