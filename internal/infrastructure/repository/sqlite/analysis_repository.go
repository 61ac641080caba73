package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kirillkom/contract-clause-checker/internal/core/domain"
)

// OpenDB opens a single-writer SQLite database, creating its directory.
func OpenDB(path string) (*sql.DB, error) {
	if path == "" {
		path = "./data/analyses.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", path))
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// AnalysisRepository is the embedded alternative to the Postgres store.
// processed_at is kept as Unix nanoseconds so ordering is numeric.
type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

func (r *AnalysisRepository) EnsureSchema(ctx context.Context) error {
	const query = `
CREATE TABLE IF NOT EXISTS analyses (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	processed_at_ns INTEGER NOT NULL,
	analysis_results TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_analyses_processed_at ON analyses(processed_at_ns DESC);
`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}
	return nil
}

func (r *AnalysisRepository) Save(ctx context.Context, analysis *domain.Analysis) error {
	findings := analysis.AnalysisResults
	if findings == nil {
		findings = []domain.Finding{}
	}
	results, err := json.Marshal(findings)
	if err != nil {
		return &domain.StorageError{Op: "marshal findings", Err: err}
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO analyses (id, filename, processed_at_ns, analysis_results) VALUES (?, ?, ?, ?)`,
		analysis.ID, analysis.Filename, analysis.ProcessedAt.UnixNano(), string(results),
	)
	if err != nil {
		return &domain.StorageError{Op: "insert analysis", Err: err}
	}
	return nil
}

func (r *AnalysisRepository) GetByID(ctx context.Context, id string) (*domain.Analysis, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, filename, processed_at_ns, analysis_results FROM analyses WHERE id = ?`, id)

	analysis, err := scanAnalysis(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrAnalysisNotFound, "get analysis", fmt.Errorf("id=%s", id))
		}
		return nil, &domain.StorageError{Op: "get analysis", Err: err}
	}
	return analysis, nil
}

func (r *AnalysisRepository) List(ctx context.Context, limit int) ([]domain.Analysis, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, filename, processed_at_ns, analysis_results FROM analyses ORDER BY processed_at_ns DESC LIMIT ?`, limit)
	if err != nil {
		return nil, &domain.StorageError{Op: "list analyses", Err: err}
	}
	defer rows.Close()

	out := make([]domain.Analysis, 0)
	for rows.Next() {
		analysis, err := scanAnalysis(rows)
		if err != nil {
			return nil, &domain.StorageError{Op: "scan analysis", Err: err}
		}
		out = append(out, *analysis)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "list analyses", Err: err}
	}
	return out, nil
}

func (r *AnalysisRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM analyses WHERE id = ?`, id)
	if err != nil {
		return false, &domain.StorageError{Op: "delete analysis", Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, &domain.StorageError{Op: "delete analysis", Err: err}
	}
	return affected > 0, nil
}

func (r *AnalysisRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func scanAnalysis(row interface{ Scan(...any) error }) (*domain.Analysis, error) {
	var (
		analysis    domain.Analysis
		processedNs int64
		resultsRaw  string
	)
	if err := row.Scan(&analysis.ID, &analysis.Filename, &processedNs, &resultsRaw); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(resultsRaw), &analysis.AnalysisResults); err != nil {
		return nil, fmt.Errorf("unmarshal findings: %w", err)
	}
	if analysis.AnalysisResults == nil {
		analysis.AnalysisResults = []domain.Finding{}
	}
	analysis.ProcessedAt = time.Unix(0, processedNs).UTC()
	return &analysis, nil
}
