package contract

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/songzhibin97/supercircle/internal/models"
	"github.com/songzhibin97/supercircle/internal/utils/units"
)

// 加入资格的拒绝原因
const (
	ReasonInvalidSide      = "Invalid side"
	ReasonInvalidAmount    = "Amount must be positive"
	ReasonNotExist         = "Circle does not exist"
	ReasonNotActive        = "Circle is not active"
	ReasonExceedsRemaining = "Amount exceeds remaining allocation"
	ReasonCheckFailed      = "Error checking eligibility"
)

// CanJoinAsSupporter checks whether amount APT may be staked on side of a
// circle. The allocation limits themselves are enforced on chain; this is the
// pre-flight check shown before a wallet prompt. Errors become a negative
// result with ReasonCheckFailed.
func (s *Service) CanJoinAsSupporter(ctx context.Context, circleID uint64, side models.Side, amount float64) models.Eligibility {
	if !side.Valid() {
		return models.Eligibility{Reason: ReasonInvalidSide}
	}
	if units.AptToOcta(amount) == 0 {
		return models.Eligibility{Reason: ReasonInvalidAmount}
	}

	exists, err := s.CircleExists(ctx, circleID)
	if err != nil {
		return s.eligibilityError(circleID, err)
	}
	if !exists {
		return models.Eligibility{Reason: ReasonNotExist}
	}

	status, err := s.CircleStatus(ctx, circleID)
	if err != nil {
		return s.eligibilityError(circleID, err)
	}
	if status != models.StatusActive {
		return models.Eligibility{Reason: ReasonNotActive}
	}

	var maxAmount, remaining float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		maxAmount, err = s.SupporterMaxAllocAmount(gctx, circleID, side)
		return err
	})
	g.Go(func() error {
		var err error
		remaining, err = s.RemainingEligibleSupporterStake(gctx, circleID, side)
		return err
	})
	if err := g.Wait(); err != nil {
		return s.eligibilityError(circleID, err)
	}

	result := models.Eligibility{
		CanJoin:         true,
		MaxAmount:       maxAmount,
		RemainingAmount: remaining,
	}
	// compare in octa so float noise cannot flip the answer
	if units.AptToOcta(amount) > units.AptToOcta(remaining) {
		result.CanJoin = false
		result.Reason = ReasonExceedsRemaining
	}
	return result
}

func (s *Service) eligibilityError(circleID uint64, err error) models.Eligibility {
	s.logger.Error("failed to check supporter eligibility", "circle_id", circleID, "error", err)
	return models.Eligibility{Reason: ReasonCheckFailed}
}

// ValidateCircleID reports validity, existence and, for existing circles,
// status and creator. Errors yield an all-false result and are logged.
func (s *Service) ValidateCircleID(ctx context.Context, circleID uint64) models.CircleValidation {
	var valid, exists bool
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		valid, err = s.IsValidCircleID(gctx, circleID)
		return err
	})
	g.Go(func() error {
		var err error
		exists, err = s.CircleExists(gctx, circleID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("failed to validate circle id", "circle_id", circleID, "error", err)
		return models.CircleValidation{}
	}

	result := models.CircleValidation{IsValid: valid, Exists: exists}
	if !valid || !exists {
		return result
	}

	var status uint8
	var creator string
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		status, err = s.CircleStatus(gctx, circleID)
		return err
	})
	g.Go(func() error {
		var err error
		creator, err = s.CircleCreator(gctx, circleID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("failed to validate circle id", "circle_id", circleID, "error", err)
		return models.CircleValidation{}
	}

	result.Status = &status
	result.StatusString = models.StatusString(status)
	result.Creator = creator
	return result
}
