package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/songzhibin97/supercircle/internal/aptos"
	"github.com/songzhibin97/supercircle/internal/utils/units"
)

// ErrNoFaucet is returned by Fund on networks without a faucet.
var ErrNoFaucet = errors.New("no faucet configured")

// BalanceSource reads raw coin balances.
type BalanceSource interface {
	CoinBalance(ctx context.Context, address, coinType string) (uint64, error)
}

// Funder mints test coins.
type Funder interface {
	Fund(ctx context.Context, address string, octa uint64) ([]string, error)
}

// BalanceUpdate 余额轮询结果
type BalanceUpdate struct {
	Address   string    `json:"address"`
	Balance   float64   `json:"balance"`
	Timestamp time.Time `json:"timestamp"`
}

// Service fetches APT balances and funds test accounts.
type Service struct {
	source BalanceSource
	faucet Funder
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a wallet service. faucet may be nil.
func NewService(source BalanceSource, faucet Funder, logger *slog.Logger) *Service {
	return &Service{
		source: source,
		faucet: faucet,
		logger: logger.With("component", "wallet"),
		now:    time.Now,
	}
}

// Balance returns the APT balance of address.
func (s *Service) Balance(ctx context.Context, address string) (float64, error) {
	octa, err := s.source.CoinBalance(ctx, address, aptos.AptosCoinType)
	if err != nil {
		return 0, fmt.Errorf("get balance of %s: %w", address, err)
	}
	return units.OctaToApt(octa), nil
}

// Watch polls the balance of address every interval, starting immediately.
// Failed polls are logged and skipped. The channel is closed once ctx is done.
func (s *Service) Watch(ctx context.Context, address string, interval time.Duration) (<-chan BalanceUpdate, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("invalid poll interval: %s", interval)
	}

	out := make(chan BalanceUpdate, 1)

	go func() {
		defer close(out)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			balance, err := s.Balance(ctx, address)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Error("failed to poll balance", "address", address, "error", err)
			} else {
				select {
				case out <- BalanceUpdate{Address: address, Balance: balance, Timestamp: s.now()}:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return out, nil
}

// Fund mints apt test coins into address via the faucet.
func (s *Service) Fund(ctx context.Context, address string, apt float64) ([]string, error) {
	if s.faucet == nil {
		return nil, ErrNoFaucet
	}

	octa := units.AptToOcta(apt)
	if octa == 0 {
		return nil, fmt.Errorf("fund amount must be positive: %v", apt)
	}

	hashes, err := s.faucet.Fund(ctx, address, octa)
	if err != nil {
		return nil, fmt.Errorf("fund %s: %w", address, err)
	}
	s.logger.Info("funded account", "address", address, "octa", octa, "txns", hashes)
	return hashes, nil
}
