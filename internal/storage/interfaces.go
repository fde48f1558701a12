package storage

import (
	"context"

	"github.com/songzhibin97/supercircle/internal/ai"
	"github.com/songzhibin97/supercircle/internal/models"
)

// VerdictStore 持久化判决记录
type VerdictStore interface {
	// SaveRun stores the summary of one judge batch
	SaveRun(ctx context.Context, run *models.JudgeRun) error

	// SaveVerdict stores one circle verdict produced by run runID
	SaveVerdict(ctx context.Context, runID string, verdict *ai.Verdict) error

	// ListVerdicts returns the verdicts recorded for a circle, newest first
	ListVerdicts(ctx context.Context, circleID uint64) ([]ai.Verdict, error)

	// Close releases the underlying connection
	Close() error
}

var (
	_ VerdictStore = (*PostgresStorage)(nil)
	_ VerdictStore = (*MemoryStorage)(nil)
)
