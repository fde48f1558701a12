package judge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/songzhibin97/supercircle/internal/ai"
	"github.com/songzhibin97/supercircle/internal/aptos"
	"github.com/songzhibin97/supercircle/internal/contract"
	"github.com/songzhibin97/supercircle/internal/models"
	"github.com/songzhibin97/supercircle/internal/utils/units"
)

var (
	// ErrNoOpponent is returned when the opponent side wins a circle nobody accepted.
	ErrNoOpponent = errors.New("circle has no opponent")

	ErrAlreadyResolved   = errors.New("circle already resolved")
	ErrDeadlineNotPassed = errors.New("circle deadline has not passed")
)

// Resolver executes resolve_challenge calls by signing resolve_circle with
// the judge key.
type Resolver struct {
	chain   Chain
	builder *contract.Builder
	signer  aptos.Signer
	logger  *slog.Logger
	now     func() time.Time
}

func NewResolver(chain Chain, builder *contract.Builder, signer aptos.Signer, logger *slog.Logger) *Resolver {
	return &Resolver{
		chain:   chain,
		builder: builder,
		signer:  signer,
		logger:  logger.With("component", "resolver"),
		now:     time.Now,
	}
}

// ResolveChallenge implements ai.ToolExecutor. Failures are reported to the
// model as unsuccessful results rather than errors.
func (r *Resolver) ResolveChallenge(ctx context.Context, args ai.ResolveArgs) (*ai.ToolResult, error) {
	winnerAddress, txn, err := r.resolve(ctx, args)
	if err != nil {
		r.logger.Error("failed to resolve challenge",
			"circle_id", args.CircleID,
			"winner", args.Winner,
			"error", err,
		)
		return &ai.ToolResult{
			Data: ai.ToolResultData{
				Result: "Failed to resolve challenge",
				Winner: args.Winner,
				Error:  err.Error(),
			},
		}, nil
	}

	r.logger.Info("challenge resolved",
		"circle_id", args.CircleID,
		"winner", args.Winner,
		"winner_address", winnerAddress,
		"hash", txn.Hash,
	)
	return &ai.ToolResult{
		Successful: true,
		Data: ai.ToolResultData{
			Result:          "Challenge resolved successfully",
			TransactionHash: txn.Hash,
			Winner:          args.Winner,
			WinnerAddress:   winnerAddress,
		},
	}, nil
}

func (r *Resolver) resolve(ctx context.Context, args ai.ResolveArgs) (string, *aptos.Transaction, error) {
	side, err := args.Side()
	if err != nil {
		return "", nil, err
	}

	circle, err := r.chain.CircleByID(ctx, args.CircleID)
	if err != nil {
		return "", nil, fmt.Errorf("get circle %d: %w", args.CircleID, err)
	}
	if circle.Resolved {
		return "", nil, ErrAlreadyResolved
	}
	if !units.IsDeadlinePassed(circle.Deadline, r.now()) {
		return "", nil, ErrDeadlineNotPassed
	}

	winner, ok := circle.SideAddress(side)
	if !ok {
		if side == models.SideOpponent {
			return "", nil, ErrNoOpponent
		}
		return "", nil, fmt.Errorf("circle %d has no %s address", circle.ID, side)
	}

	payload, err := r.builder.ResolveCirclePayload(circle.ID, winner)
	if err != nil {
		return "", nil, err
	}

	txn, err := r.chain.Submit(ctx, r.signer, payload)
	if err != nil {
		return "", nil, fmt.Errorf("submit resolve_circle: %w", err)
	}
	return winner, txn, nil
}

var _ ai.ToolExecutor = (*Resolver)(nil)
