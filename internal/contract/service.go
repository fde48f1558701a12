package contract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/songzhibin97/supercircle/internal/aptos"
	"github.com/songzhibin97/supercircle/internal/models"
	"github.com/songzhibin97/supercircle/internal/utils/units"
)

var (
	// ErrCircleNotFound is returned when no circle matches an id or description.
	ErrCircleNotFound = errors.New("circle not found")
	// ErrNotInitialized is returned when the module's CircleBook does not exist yet.
	ErrNotInitialized = errors.New("contract not initialized")
	// ErrNoSubmitter is returned by write operations on a read-only service.
	ErrNoSubmitter = errors.New("no transaction submitter configured")
)

// 视图函数
const (
	ViewVaultAddress                    = "get_vault_addr"
	ViewSupporterMaxAllocAmount         = "get_supporter_max_alloc_amount"
	ViewRemainingEligibleSupporterStake = "get_remaining_eligible_supporter_stake_amount"
	ViewIsDeadlinePassed                = "is_deadline_passed"
	ViewCircleIDByDescription           = "get_circle_id_by_description"
	ViewIsValidCircleID                 = "is_valid_circle_id"
	ViewTotalCirclesCount               = "get_total_circles_count"
	ViewCircleExists                    = "circle_exists"
	ViewCircleStatus                    = "get_circle_status"
	ViewCircleCreator                   = "get_circle_creator"
	ViewIsCircleCreator                 = "is_circle_creator"
)

const (
	circleBookStruct = "CircleBook"
	vaultSeed        = "vault"
)

// Config locates the deployed module.
type Config struct {
	ModuleAddress string `json:"module_address" yaml:"module_address"`
	ModuleName    string `json:"module_name" yaml:"module_name"`
}

// Service is a typed client over the circle module. Every query goes to the
// chain; nothing is cached.
type Service struct {
	node      aptos.Node
	submitter aptos.Submitter
	builder   *Builder
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a contract service. submitter may be nil for read-only use.
func NewService(cfg Config, node aptos.Node, submitter aptos.Submitter, logger *slog.Logger) *Service {
	return &Service{
		node:      node,
		submitter: submitter,
		builder:   NewBuilder(cfg.ModuleAddress, cfg.ModuleName),
		cfg:       cfg,
		logger:    logger.With("component", "contract"),
		now:       time.Now,
	}
}

// Builder returns the payload builder bound to the same module.
func (s *Service) Builder() *Builder {
	return s.builder
}

func (s *Service) view(ctx context.Context, name string, args ...any) (json.RawMessage, error) {
	values, err := s.node.View(ctx, aptos.ViewRequest{
		Function:  s.builder.FunctionID(name),
		Arguments: args,
	})
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("view %s returned no values", name)
	}
	return values[0], nil
}

func (s *Service) viewU64(ctx context.Context, name string, args ...any) (uint64, error) {
	raw, err := s.view(ctx, name, args...)
	if err != nil {
		return 0, err
	}
	v, err := decodeU64(raw)
	if err != nil {
		return 0, fmt.Errorf("view %s: %w", name, err)
	}
	return v, nil
}

func (s *Service) viewBool(ctx context.Context, name string, args ...any) (bool, error) {
	raw, err := s.view(ctx, name, args...)
	if err != nil {
		return false, err
	}
	v, err := decodeBool(raw)
	if err != nil {
		return false, fmt.Errorf("view %s: %w", name, err)
	}
	return v, nil
}

func (s *Service) viewString(ctx context.Context, name string, args ...any) (string, error) {
	raw, err := s.view(ctx, name, args...)
	if err != nil {
		return "", err
	}
	v, err := decodeString(raw)
	if err != nil {
		return "", fmt.Errorf("view %s: %w", name, err)
	}
	return v, nil
}

func u64Arg(v uint64) string {
	return strconv.FormatUint(v, 10)
}

// VaultAddress asks the module for its escrow vault address.
func (s *Service) VaultAddress(ctx context.Context) (string, error) {
	return s.viewString(ctx, ViewVaultAddress)
}

// DerivedVaultAddress computes the vault object address locally.
func (s *Service) DerivedVaultAddress() (string, error) {
	return aptos.DeriveObjectAddress(s.cfg.ModuleAddress, []byte(vaultSeed))
}

// SupporterMaxAllocAmount returns the supporter allocation cap of a side in APT.
func (s *Service) SupporterMaxAllocAmount(ctx context.Context, circleID uint64, side models.Side) (float64, error) {
	octa, err := s.viewU64(ctx, ViewSupporterMaxAllocAmount, u64Arg(circleID), uint8(side))
	if err != nil {
		return 0, err
	}
	return units.OctaToApt(octa), nil
}

// RemainingEligibleSupporterStake returns what supporters may still stake on a side, in APT.
func (s *Service) RemainingEligibleSupporterStake(ctx context.Context, circleID uint64, side models.Side) (float64, error) {
	octa, err := s.viewU64(ctx, ViewRemainingEligibleSupporterStake, u64Arg(circleID), uint8(side))
	if err != nil {
		return 0, err
	}
	return units.OctaToApt(octa), nil
}

func (s *Service) IsDeadlinePassed(ctx context.Context, circleID uint64) (bool, error) {
	return s.viewBool(ctx, ViewIsDeadlinePassed, u64Arg(circleID))
}

// CircleIDByDescription looks a circle up by description. Descriptions are
// stored lower-cased, so the query is too. A miss returns models.NotFoundCircleID.
func (s *Service) CircleIDByDescription(ctx context.Context, description string) (uint64, error) {
	return s.viewU64(ctx, ViewCircleIDByDescription, strings.ToLower(description))
}

func (s *Service) IsValidCircleID(ctx context.Context, circleID uint64) (bool, error) {
	return s.viewBool(ctx, ViewIsValidCircleID, u64Arg(circleID))
}

func (s *Service) TotalCirclesCount(ctx context.Context) (uint64, error) {
	return s.viewU64(ctx, ViewTotalCirclesCount)
}

func (s *Service) CircleExists(ctx context.Context, circleID uint64) (bool, error) {
	return s.viewBool(ctx, ViewCircleExists, u64Arg(circleID))
}

// CircleStatus returns the on-chain status code, models.StatusNotFound for unknown ids.
func (s *Service) CircleStatus(ctx context.Context, circleID uint64) (uint8, error) {
	status, err := s.viewU64(ctx, ViewCircleStatus, u64Arg(circleID))
	if err != nil {
		return 0, err
	}
	if status > uint64(models.StatusNotFound) {
		return 0, fmt.Errorf("view %s: status out of range: %d", ViewCircleStatus, status)
	}
	return uint8(status), nil
}

func (s *Service) CircleCreator(ctx context.Context, circleID uint64) (string, error) {
	return s.viewString(ctx, ViewCircleCreator, u64Arg(circleID))
}

func (s *Service) IsCircleCreator(ctx context.Context, circleID uint64, address string) (bool, error) {
	return s.viewBool(ctx, ViewIsCircleCreator, u64Arg(circleID), address)
}

// AccountBalance returns the APT balance of address.
func (s *Service) AccountBalance(ctx context.Context, address string) (float64, error) {
	octa, err := s.node.CoinBalance(ctx, address, aptos.AptosCoinType)
	if err != nil {
		return 0, err
	}
	return units.OctaToApt(octa), nil
}

func (s *Service) TransactionByHash(ctx context.Context, hash string) (*aptos.Transaction, error) {
	return s.node.TransactionByHash(ctx, hash)
}

// Simulate dry-runs payload as signer.
func (s *Service) Simulate(ctx context.Context, signer aptos.Signer, payload *aptos.EntryFunctionPayload) ([]aptos.Transaction, error) {
	if s.submitter == nil {
		return nil, ErrNoSubmitter
	}
	return s.submitter.SimulateTransaction(ctx, signer, payload)
}

// Submit signs payload with signer and waits for the commit.
func (s *Service) Submit(ctx context.Context, signer aptos.Signer, payload *aptos.EntryFunctionPayload) (*aptos.Transaction, error) {
	if s.submitter == nil {
		return nil, ErrNoSubmitter
	}
	return s.submitter.SubmitAndWait(ctx, signer, payload)
}

// Initialize submits init with the deployer key unless the CircleBook
// already exists. It returns nil, nil when there was nothing to do.
func (s *Service) Initialize(ctx context.Context, deployer aptos.Signer) (*aptos.Transaction, error) {
	initialized, err := s.IsModuleInitialized(ctx)
	if err != nil {
		return nil, err
	}
	if initialized {
		s.logger.Info("module already initialized", "address", s.cfg.ModuleAddress, "module", s.cfg.ModuleName)
		return nil, nil
	}

	txn, err := s.Submit(ctx, deployer, s.builder.InitPayload())
	if err != nil {
		return txn, fmt.Errorf("initialize module: %w", err)
	}
	s.logger.Info("module initialized", "hash", txn.Hash)
	return txn, nil
}
