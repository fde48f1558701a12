package contract

import (
	"context"
	"errors"
	"fmt"

	"github.com/songzhibin97/supercircle/internal/aptos"
	"github.com/songzhibin97/supercircle/internal/models"
	"github.com/songzhibin97/supercircle/internal/utils/units"
)

// CircleBook fetches the raw CircleBook resource. A missing resource is
// reported as ErrNotInitialized.
func (s *Service) CircleBook(ctx context.Context) (*aptos.Resource, error) {
	resource, err := s.node.AccountResource(ctx, s.cfg.ModuleAddress, s.builder.ResourceType(circleBookStruct))
	if errors.Is(err, aptos.ErrResourceNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrNotInitialized, err)
	}
	if err != nil {
		return nil, err
	}
	return resource, nil
}

// AllCircles decodes every circle in the CircleBook, amounts in APT.
func (s *Service) AllCircles(ctx context.Context) ([]models.Circle, error) {
	book, err := s.CircleBook(ctx)
	if err != nil {
		return nil, err
	}
	return decodeCircles(book.Data)
}

func (s *Service) CircleByID(ctx context.Context, circleID uint64) (*models.Circle, error) {
	circles, err := s.AllCircles(ctx)
	if err != nil {
		return nil, err
	}
	for i := range circles {
		if circles[i].ID == circleID {
			return &circles[i], nil
		}
	}
	return nil, fmt.Errorf("%w: id %d", ErrCircleNotFound, circleID)
}

func (s *Service) CirclesByCreator(ctx context.Context, address string) ([]models.Circle, error) {
	return s.filtered(ctx, func(c models.Circle) bool {
		return SameAddress(c.Creator, address)
	})
}

func (s *Service) CirclesByOpponent(ctx context.Context, address string) ([]models.Circle, error) {
	return s.filtered(ctx, func(c models.Circle) bool {
		return c.HasOpponent() && SameAddress(*c.Opponent, address)
	})
}

// ActiveCircles returns every unresolved circle.
func (s *Service) ActiveCircles(ctx context.Context) ([]models.Circle, error) {
	return s.filtered(ctx, func(c models.Circle) bool { return !c.Resolved })
}

// PendingCircles returns circles still waiting for an opponent.
func (s *Service) PendingCircles(ctx context.Context) ([]models.Circle, error) {
	return s.filtered(ctx, func(c models.Circle) bool { return c.Status == models.StatusPending })
}

func (s *Service) filtered(ctx context.Context, keep func(models.Circle) bool) ([]models.Circle, error) {
	circles, err := s.AllCircles(ctx)
	if err != nil {
		return nil, err
	}
	return FilterCircles(circles, keep), nil
}

// FilterCircles returns the circles for which keep is true.
func FilterCircles(circles []models.Circle, keep func(models.Circle) bool) []models.Circle {
	out := make([]models.Circle, 0, len(circles))
	for _, c := range circles {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// SameAddress compares two account addresses ignoring case and zero padding.
func SameAddress(a, b string) bool {
	na, errA := aptos.NormalizeAddress(a)
	nb, errB := aptos.NormalizeAddress(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return na == nb
}

// IsModuleInitialized reports whether the CircleBook resource exists.
func (s *Service) IsModuleInitialized(ctx context.Context) (bool, error) {
	_, err := s.CircleBook(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotInitialized):
		return false, nil
	default:
		return false, err
	}
}

// InitializationStatus summarises the module state for operators. Errors are
// folded into the message and logged.
func (s *Service) InitializationStatus(ctx context.Context) models.InitializationStatus {
	circles, err := s.AllCircles(ctx)
	switch {
	case errors.Is(err, ErrNotInitialized):
		return models.InitializationStatus{
			Message: "Contract not initialized. Please run the initialization command first.",
		}
	case err != nil:
		s.logger.Error("failed to check initialization status", "error", err)
		return models.InitializationStatus{
			Message: "Error checking initialization status",
		}
	}

	status := models.InitializationStatus{
		IsInitialized: true,
		HasCircles:    len(circles) > 0,
		CircleCount:   len(circles),
		Message:       "Contract initialized but no circles created yet",
	}
	if status.HasCircles {
		status.Message = fmt.Sprintf("Contract initialized with %d circle(s)", len(circles))
	}
	return status
}

// Stats counts circles by status. TotalCircles comes from the module's
// own counter, the rest from the decoded CircleBook.
func (s *Service) Stats(ctx context.Context) (*models.CircleStats, error) {
	total, err := s.TotalCirclesCount(ctx)
	if err != nil {
		return nil, err
	}
	circles, err := s.AllCircles(ctx)
	if err != nil {
		return nil, err
	}

	stats := &models.CircleStats{TotalCircles: total}
	now := s.now()
	for _, c := range circles {
		switch c.Status {
		case models.StatusPending:
			stats.PendingCircles++
		case models.StatusActive:
			stats.ActiveCircles++
		case models.StatusResolved:
			stats.ResolvedCircles++
		}
		if units.IsRecentlyCreated(c.CreatedAt, now) {
			stats.RecentCircles++
		}
	}
	return stats, nil
}

// FindCircleByDescription resolves a description to its circle. The sentinel
// id is rejected locally and by is_valid_circle_id before it is used.
func (s *Service) FindCircleByDescription(ctx context.Context, description string) (*models.Circle, error) {
	circleID, err := s.CircleIDByDescription(ctx, description)
	if err != nil {
		return nil, err
	}
	if !models.IsValidCircleID(circleID) {
		return nil, fmt.Errorf("%w: description %q", ErrCircleNotFound, description)
	}

	valid, err := s.IsValidCircleID(ctx, circleID)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, fmt.Errorf("%w: description %q", ErrCircleNotFound, description)
	}

	return s.CircleByID(ctx, circleID)
}
