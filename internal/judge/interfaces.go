package judge

import (
	"context"

	"github.com/songzhibin97/supercircle/internal/aptos"
	"github.com/songzhibin97/supercircle/internal/contract"
	"github.com/songzhibin97/supercircle/internal/models"
)

// Chain 判决所需的链上读写能力
type Chain interface {
	// AllCircles lists every circle in the CircleBook
	AllCircles(ctx context.Context) ([]models.Circle, error)

	// CircleByID fetches one circle
	CircleByID(ctx context.Context, circleID uint64) (*models.Circle, error)

	// Submit signs payload and waits for the commit
	Submit(ctx context.Context, signer aptos.Signer, payload *aptos.EntryFunctionPayload) (*aptos.Transaction, error)
}

var _ Chain = (*contract.Service)(nil)
