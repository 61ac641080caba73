package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/contract-clause-checker/internal/core/domain"
)

const schemaLockKey int64 = 2026101901

// AnalysisRepository stores analyses as one row each, findings in a JSONB
// column in their assembled order.
type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

func (r *AnalysisRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockKey); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS analyses (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	processed_at TIMESTAMPTZ NOT NULL,
	analysis_results JSONB NOT NULL DEFAULT '[]'::jsonb
);

CREATE INDEX IF NOT EXISTS idx_analyses_processed_at ON analyses(processed_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *AnalysisRepository) Save(ctx context.Context, analysis *domain.Analysis) error {
	results, err := json.Marshal(nonNilFindings(analysis.AnalysisResults))
	if err != nil {
		return &domain.StorageError{Op: "marshal findings", Err: err}
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO analyses (id, filename, processed_at, analysis_results)
VALUES ($1, $2, $3, $4)
`, analysis.ID, analysis.Filename, analysis.ProcessedAt.UTC(), results)
	if err != nil {
		return &domain.StorageError{Op: "insert analysis", Err: err}
	}
	return nil
}

func (r *AnalysisRepository) GetByID(ctx context.Context, id string) (*domain.Analysis, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, filename, processed_at, analysis_results
FROM analyses
WHERE id = $1
`, id)

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
	rows, err := r.db.QueryContext(ctx, `
SELECT id, filename, processed_at, analysis_results
FROM analyses
ORDER BY processed_at DESC
LIMIT $1
`, limit)
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
	res, err := r.db.ExecContext(ctx, `DELETE FROM analyses WHERE id = $1`, id)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*domain.Analysis, error) {
	var (
		analysis    domain.Analysis
		processedAt time.Time
		resultsRaw  []byte
	)
	if err := row.Scan(&analysis.ID, &analysis.Filename, &processedAt, &resultsRaw); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(resultsRaw, &analysis.AnalysisResults); err != nil {
		return nil, fmt.Errorf("unmarshal findings: %w", err)
	}
	analysis.ProcessedAt = processedAt.UTC()
	analysis.AnalysisResults = nonNilFindings(analysis.AnalysisResults)
	return &analysis, nil
}

func nonNilFindings(findings []domain.Finding) []domain.Finding {
	if findings == nil {
		return []domain.Finding{}
	}
	return findings
}
