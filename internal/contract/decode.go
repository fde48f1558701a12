package contract

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/songzhibin97/supercircle/internal/models"
	"github.com/songzhibin97/supercircle/internal/utils/units"
)

// moveU64 decodes Move integers, which the node renders as decimal strings
// for u64/u128 and as JSON numbers for u8..u32.
type moveU64 uint64

func (v *moveU64) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(b)), `"`)
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid move integer %s: %w", string(b), err)
	}
	*v = moveU64(n)
	return nil
}

// moveOption is Move's Option<T>, encoded as {"vec":[]} or {"vec":[v]}.
type moveOption[T any] struct {
	Vec []T `json:"vec"`
}

func (o moveOption[T]) ptr() *T {
	if len(o.Vec) == 0 {
		return nil
	}
	v := o.Vec[0]
	return &v
}

type rawSupporter struct {
	Addr     string  `json:"addr"`
	Amount   moveU64 `json:"amount"`
	JoinedAt moveU64 `json:"joined_at"`
}

type rawCircle struct {
	ID                   moveU64            `json:"id"`
	Creator              string             `json:"creator"`
	Opponent             moveOption[string] `json:"opponent"`
	Description          string             `json:"description"`
	Deadline             moveU64            `json:"deadline"`
	CreatedAt            moveU64            `json:"created_at"`
	CreatorStake         moveU64            `json:"creator_stake"`
	OpponentStake        moveU64            `json:"opponent_stake"`
	CreatorSupporterPct  moveU64            `json:"creator_supporter_pct"`
	OpponentSupporterPct moveU64            `json:"opponent_supporter_pct"`
	CreatorSupporters    []rawSupporter     `json:"creator_supporters"`
	OpponentSupporters   []rawSupporter     `json:"opponent_supporters"`
	Resolved             bool               `json:"resolved"`
	Winner               moveOption[string] `json:"winner"`
	Status               moveU64            `json:"status"`
	PrizePool            moveU64            `json:"prize_pool"`
}

type circleBook struct {
	Circles []rawCircle `json:"circles"`
}

func (r rawCircle) toModel() (models.Circle, error) {
	if !models.IsValidCircleID(uint64(r.ID)) {
		return models.Circle{}, fmt.Errorf("invalid circle id %d", uint64(r.ID))
	}
	for _, v := range []moveU64{r.CreatorSupporterPct, r.OpponentSupporterPct, r.Status} {
		if v > math.MaxUint8 {
			return models.Circle{}, fmt.Errorf("circle %d: u8 field out of range: %d", uint64(r.ID), uint64(v))
		}
	}

	return models.Circle{
		ID:                   uint64(r.ID),
		Creator:              r.Creator,
		Opponent:             r.Opponent.ptr(),
		Description:          r.Description,
		Deadline:             int64(r.Deadline),
		CreatedAt:            int64(r.CreatedAt),
		CreatorStake:         units.OctaToApt(uint64(r.CreatorStake)),
		OpponentStake:        units.OctaToApt(uint64(r.OpponentStake)),
		CreatorSupporterPct:  uint8(r.CreatorSupporterPct),
		OpponentSupporterPct: uint8(r.OpponentSupporterPct),
		CreatorSupporters:    toSupporters(r.CreatorSupporters),
		OpponentSupporters:   toSupporters(r.OpponentSupporters),
		Resolved:             r.Resolved,
		Winner:               r.Winner.ptr(),
		Status:               uint8(r.Status),
		PrizePool:            units.OctaToApt(uint64(r.PrizePool)),
	}, nil
}

func toSupporters(raw []rawSupporter) []models.Supporter {
	supporters := make([]models.Supporter, 0, len(raw))
	for _, s := range raw {
		supporters = append(supporters, models.Supporter{
			Addr:     s.Addr,
			Amount:   units.OctaToApt(uint64(s.Amount)),
			JoinedAt: int64(s.JoinedAt),
		})
	}
	return supporters
}

func decodeCircles(data json.RawMessage) ([]models.Circle, error) {
	var book circleBook
	if err := json.Unmarshal(data, &book); err != nil {
		return nil, fmt.Errorf("failed to decode circle book: %w", err)
	}

	circles := make([]models.Circle, 0, len(book.Circles))
	for _, raw := range book.Circles {
		circle, err := raw.toModel()
		if err != nil {
			return nil, err
		}
		circles = append(circles, circle)
	}
	return circles, nil
}

func decodeU64(raw json.RawMessage) (uint64, error) {
	var v moveU64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, err
	}
	return uint64(v), nil
}

func decodeBool(raw json.RawMessage) (bool, error) {
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, fmt.Errorf("invalid move bool %s: %w", string(raw), err)
	}
	return v, nil
}

func decodeString(raw json.RawMessage) (string, error) {
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("invalid move string %s: %w", string(raw), err)
	}
	return v, nil
}
