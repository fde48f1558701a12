package server

import (
	"context"

	"github.com/songzhibin97/supercircle/internal/ai"
	"github.com/songzhibin97/supercircle/internal/contract"
	"github.com/songzhibin97/supercircle/internal/judge"
	"github.com/songzhibin97/supercircle/internal/models"
	"github.com/songzhibin97/supercircle/internal/storage"
	"github.com/songzhibin97/supercircle/internal/wallet"
)

// CircleService 圈子查询接口
type CircleService interface {
	AllCircles(ctx context.Context) ([]models.Circle, error)
	CircleByID(ctx context.Context, circleID uint64) (*models.Circle, error)
	FindCircleByDescription(ctx context.Context, description string) (*models.Circle, error)
	ValidateCircleID(ctx context.Context, circleID uint64) models.CircleValidation
	CanJoinAsSupporter(ctx context.Context, circleID uint64, side models.Side, amount float64) models.Eligibility
	Stats(ctx context.Context) (*models.CircleStats, error)
	InitializationStatus(ctx context.Context) models.InitializationStatus
}

type BalanceService interface {
	Balance(ctx context.Context, address string) (float64, error)
}

// JudgeRunner runs one judge batch.
type JudgeRunner interface {
	Run(ctx context.Context) (*judge.RunReport, error)
}

type VerdictLister interface {
	ListVerdicts(ctx context.Context, circleID uint64) ([]ai.Verdict, error)
}

var (
	_ CircleService  = (*contract.Service)(nil)
	_ BalanceService = (*wallet.Service)(nil)
	_ JudgeRunner    = (*judge.Trigger)(nil)
	_ VerdictLister  = (storage.VerdictStore)(nil)
)
