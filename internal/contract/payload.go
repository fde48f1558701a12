package contract

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/songzhibin97/supercircle/internal/aptos"
	"github.com/songzhibin97/supercircle/internal/models"
	"github.com/songzhibin97/supercircle/internal/utils/units"
)

// ErrValidation is returned when payload inputs are rejected before submission.
var ErrValidation = errors.New("validation failed")

// 入口函数
const (
	FuncInit            = "init"
	FuncCreateCircle    = "create_circle"
	FuncAcceptCircle    = "accept_circle"
	FuncJoinAsSupporter = "join_as_supporter"
	FuncResolveCircle   = "resolve_circle"
)

// Builder produces unsigned entry-function payloads for the circle module.
// It never signs or submits.
type Builder struct {
	moduleAddress string
	moduleName    string
	now           func() time.Time
}

func NewBuilder(moduleAddress, moduleName string) *Builder {
	return &Builder{
		moduleAddress: moduleAddress,
		moduleName:    moduleName,
		now:           time.Now,
	}
}

// FunctionID returns the fully qualified <address>::<module>::<name>.
func (b *Builder) FunctionID(name string) string {
	return fmt.Sprintf("%s::%s::%s", b.moduleAddress, b.moduleName, name)
}

// ResourceType returns the fully qualified type of a module struct.
func (b *Builder) ResourceType(name string) string {
	return b.FunctionID(name)
}

func (b *Builder) InitPayload() *aptos.EntryFunctionPayload {
	return aptos.NewEntryFunctionPayload(b.FunctionID(FuncInit))
}

// CreateCirclePayload builds create_circle(description, deadline, pct, prize_pool).
// The description is lower-cased so lookups by description are case-insensitive.
func (b *Builder) CreateCirclePayload(description string, deadline int64, creatorSupporterPct, prizePoolApt float64) (*aptos.EntryFunctionPayload, error) {
	description = strings.ToLower(strings.TrimSpace(description))
	if description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrValidation)
	}
	if deadline <= b.now().Unix() {
		return nil, fmt.Errorf("%w: deadline must be in the future", ErrValidation)
	}

	prizePool := units.AptToOcta(prizePoolApt)
	if prizePool == 0 {
		return nil, fmt.Errorf("%w: prize pool must be positive", ErrValidation)
	}

	return aptos.NewEntryFunctionPayload(b.FunctionID(FuncCreateCircle),
		description,
		strconv.FormatInt(deadline, 10),
		ClampPercentage(creatorSupporterPct),
		strconv.FormatUint(prizePool, 10),
	), nil
}

// AcceptCirclePayload builds accept_circle(circle_id, opponent_supporter_pct).
func (b *Builder) AcceptCirclePayload(circleID uint64, opponentSupporterPct float64) (*aptos.EntryFunctionPayload, error) {
	if !models.IsValidCircleID(circleID) {
		return nil, fmt.Errorf("%w: invalid circle id", ErrValidation)
	}

	return aptos.NewEntryFunctionPayload(b.FunctionID(FuncAcceptCircle),
		strconv.FormatUint(circleID, 10),
		ClampPercentage(opponentSupporterPct),
	), nil
}

// JoinAsSupporterPayload builds join_as_supporter(circle_id, side, amount).
func (b *Builder) JoinAsSupporterPayload(circleID uint64, side models.Side, amountApt float64) (*aptos.EntryFunctionPayload, error) {
	if !models.IsValidCircleID(circleID) {
		return nil, fmt.Errorf("%w: invalid circle id", ErrValidation)
	}
	if !side.Valid() {
		return nil, fmt.Errorf("%w: invalid side %d", ErrValidation, uint8(side))
	}

	amount := units.AptToOcta(amountApt)
	if amount == 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	return aptos.NewEntryFunctionPayload(b.FunctionID(FuncJoinAsSupporter),
		strconv.FormatUint(circleID, 10),
		uint8(side),
		strconv.FormatUint(amount, 10),
	), nil
}

// ResolveCirclePayload builds resolve_circle(circle_id, winner).
func (b *Builder) ResolveCirclePayload(circleID uint64, winner string) (*aptos.EntryFunctionPayload, error) {
	if !models.IsValidCircleID(circleID) {
		return nil, fmt.Errorf("%w: invalid circle id", ErrValidation)
	}

	addr, err := aptos.NormalizeAddress(winner)
	if err != nil {
		return nil, fmt.Errorf("%w: winner: %v", ErrValidation, err)
	}

	return aptos.NewEntryFunctionPayload(b.FunctionID(FuncResolveCircle),
		strconv.FormatUint(circleID, 10),
		addr,
	), nil
}

// ClampPercentage floors pct and clamps it to [0,100]. NaN becomes 0.
func ClampPercentage(pct float64) uint8 {
	if math.IsNaN(pct) || pct <= 0 {
		return 0
	}
	if pct >= 100 {
		return 100
	}
	return uint8(math.Floor(pct))
}

// WalletTransaction is the shape browser wallet adapters sign.
type WalletTransaction struct {
	Data WalletPayloadData `json:"data"`
}

type WalletPayloadData struct {
	Function          string   `json:"function"`
	TypeArguments     []string `json:"typeArguments"`
	FunctionArguments []any    `json:"functionArguments"`
}

// WalletPayload renders p for a wallet adapter.
func WalletPayload(p *aptos.EntryFunctionPayload) WalletTransaction {
	return WalletTransaction{
		Data: WalletPayloadData{
			Function:          p.Function,
			TypeArguments:     p.TypeArguments,
			FunctionArguments: p.Arguments,
		},
	}
}
