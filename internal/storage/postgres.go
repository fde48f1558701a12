package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/songzhibin97/supercircle/internal/ai"
	"github.com/songzhibin97/supercircle/internal/models"

	_ "github.com/lib/pq"
)

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(ctx context.Context, connStr string) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStorage{db: db}

	if err := s.initTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	return s, nil
}

// SaveRun implements VerdictStore interface
func (s *PostgresStorage) SaveRun(ctx context.Context, run *models.JudgeRun) error {
	query := `
        INSERT INTO judge_runs (
            id, started_at, finished_at, candidates,
            judged, resolved, failed, error
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8
        )
        ON CONFLICT (id) DO UPDATE SET
            finished_at = EXCLUDED.finished_at,
            candidates = EXCLUDED.candidates,
            judged = EXCLUDED.judged,
            resolved = EXCLUDED.resolved,
            failed = EXCLUDED.failed,
            error = EXCLUDED.error
    `

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.StartedAt,
		run.FinishedAt,
		run.Candidates,
		run.Judged,
		run.Resolved,
		run.Failed,
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to save judge run: %w", err)
	}

	return nil
}

// SaveVerdict implements VerdictStore interface
func (s *PostgresStorage) SaveVerdict(ctx context.Context, runID string, v *ai.Verdict) error {
	query := `
        INSERT INTO verdicts (
            run_id, circle_id, provider, model, resolved, winner,
            winner_address, transaction_hash, reasoning, tool_calls, decided_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
        )
    `

	// circle ids are u64; NUMERIC keeps the full range
	_, err := s.db.ExecContext(ctx, query,
		runID,
		strconv.FormatUint(v.CircleID, 10),
		v.Provider,
		v.Model,
		v.Resolved,
		v.Winner,
		v.WinnerAddress,
		v.TransactionHash,
		v.Reasoning,
		v.ToolCalls,
		v.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save verdict for circle %d: %w", v.CircleID, err)
	}

	return nil
}

// ListVerdicts implements VerdictStore interface
func (s *PostgresStorage) ListVerdicts(ctx context.Context, circleID uint64) ([]ai.Verdict, error) {
	query := `
        SELECT circle_id::TEXT, provider, model, resolved, winner,
               winner_address, transaction_hash, reasoning, tool_calls, decided_at
        FROM verdicts
        WHERE circle_id = $1
        ORDER BY decided_at DESC, id DESC
    `

	rows, err := s.db.QueryContext(ctx, query, strconv.FormatUint(circleID, 10))
	if err != nil {
		return nil, fmt.Errorf("failed to query verdicts: %w", err)
	}
	defer rows.Close()

	var result []ai.Verdict
	for rows.Next() {
		var (
			v  ai.Verdict
			id string
		)
		err := rows.Scan(
			&id,
			&v.Provider,
			&v.Model,
			&v.Resolved,
			&v.Winner,
			&v.WinnerAddress,
			&v.TransactionHash,
			&v.Reasoning,
			&v.ToolCalls,
			&v.DecidedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan verdict: %w", err)
		}
		if v.CircleID, err = strconv.ParseUint(id, 10, 64); err != nil {
			return nil, fmt.Errorf("failed to parse circle id %q: %w", id, err)
		}
		result = append(result, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating verdict rows: %w", err)
	}

	return result, nil
}

// Close implements VerdictStore interface
func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

func (s *PostgresStorage) initTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS judge_runs (
			id VARCHAR(36) PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ,
			candidates INT NOT NULL DEFAULT 0,
			judged INT NOT NULL DEFAULT 0,
			resolved INT NOT NULL DEFAULT 0,
			failed INT NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS verdicts (
			id SERIAL PRIMARY KEY,
			run_id VARCHAR(36) NOT NULL,
			circle_id NUMERIC(20, 0) NOT NULL,
			provider VARCHAR(50) NOT NULL,
			model VARCHAR(100) NOT NULL,
			resolved BOOLEAN NOT NULL,
			winner VARCHAR(16) NOT NULL DEFAULT '',
			winner_address VARCHAR(66) NOT NULL DEFAULT '',
			transaction_hash VARCHAR(66) NOT NULL DEFAULT '',
			reasoning TEXT NOT NULL DEFAULT '',
			tool_calls INT NOT NULL DEFAULT 0,
			decided_at TIMESTAMPTZ NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_verdicts_circle_id ON verdicts (circle_id)`,
	}

	for _, query := range queries {
		_, err := s.db.ExecContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}
