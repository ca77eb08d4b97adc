package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/hukumnesia/lexqa/internal/core/domain"
)

// QueryLogRepository persists the per-query audit trail. The service treats
// it as best-effort: a failed insert never fails the query itself.
type QueryLogRepository struct {
	db *sql.DB
}

func NewQueryLogRepository(db *sql.DB) *QueryLogRepository {
	return &QueryLogRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *QueryLogRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent service startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026060501)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS query_log (
	id TEXT PRIMARY KEY,
	question TEXT NOT NULL,
	answer TEXT NOT NULL,
	confidence TEXT NOT NULL,
	confidence_numeric DOUBLE PRECISION NOT NULL DEFAULT 0,
	citation_count INTEGER NOT NULL DEFAULT 0,
	citation_coverage DOUBLE PRECISION NOT NULL DEFAULT 0,
	hallucination_risk TEXT,
	duration_ms DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_query_log_created_at ON query_log(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_query_log_confidence ON query_log(confidence);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *QueryLogRepository) RecordQuery(ctx context.Context, entry domain.QueryLogEntry) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO query_log (
	id, question, answer, confidence, confidence_numeric, citation_count, citation_coverage, hallucination_risk, duration_ms, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`,
		entry.ID, entry.Question, entry.Answer, string(entry.Confidence), entry.ConfidenceNumeric,
		entry.CitationCount, entry.CitationCoverage, string(entry.HallucinationRisk), entry.DurationMs, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert query log: %w", err)
	}
	return nil
}

func (r *QueryLogRepository) GetByID(ctx context.Context, id string) (*domain.QueryLogEntry, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, question, answer, confidence, confidence_numeric, citation_count, citation_coverage, hallucination_risk, duration_ms, created_at
FROM query_log
WHERE id = $1
`, id)

	var entry domain.QueryLogEntry
	var confidence, risk string

	err := row.Scan(
		&entry.ID, &entry.Question, &entry.Answer, &confidence, &entry.ConfidenceNumeric,
		&entry.CitationCount, &entry.CitationCoverage, &risk, &entry.DurationMs, &entry.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("query log entry not found: %s", id)
		}
		return nil, fmt.Errorf("scan query log entry: %w", err)
	}

	entry.Confidence = domain.ConfidenceLevel(confidence)
	entry.HallucinationRisk = domain.HallucinationRisk(risk)
	return &entry, nil
}

// ListRecent returns the newest entries first, capped at limit.
func (r *QueryLogRepository) ListRecent(ctx context.Context, limit int) ([]domain.QueryLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, question, answer, confidence, confidence_numeric, citation_count, citation_coverage, hallucination_risk, duration_ms, created_at
FROM query_log
ORDER BY created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list query log: %w", err)
	}
	defer rows.Close()

	var entries []domain.QueryLogEntry
	for rows.Next() {
		var entry domain.QueryLogEntry
		var confidence, risk string
		if err := rows.Scan(
			&entry.ID, &entry.Question, &entry.Answer, &confidence, &entry.ConfidenceNumeric,
			&entry.CitationCount, &entry.CitationCoverage, &risk, &entry.DurationMs, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan query log entry: %w", err)
		}
		entry.Confidence = domain.ConfidenceLevel(confidence)
		entry.HallucinationRisk = domain.HallucinationRisk(risk)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate query log: %w", err)
	}
	return entries, nil
}
