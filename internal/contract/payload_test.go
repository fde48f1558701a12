package contract

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songzhibin97/supercircle/internal/models"
)

const (
	testModuleAddress = "0xcafe"
	testModuleName    = "supercircle"
)

func newTestBuilder() *Builder {
	b := NewBuilder(testModuleAddress, testModuleName)
	b.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return b
}

func TestClampPercentage(t *testing.T) {
	tests := []struct {
		input    float64
		expected uint8
	}{
		{input: -5, expected: 0},
		{input: 0, expected: 0},
		{input: 25, expected: 25},
		{input: 25.9, expected: 25},
		{input: 99.99, expected: 99},
		{input: 100, expected: 100},
		{input: 150, expected: 100},
		{input: math.Inf(1), expected: 100},
		{input: math.Inf(-1), expected: 0},
		{input: math.NaN(), expected: 0},
	}

	for _, tt := range tests {
		got := ClampPercentage(tt.input)
		assert.Equal(t, tt.expected, got, "input %v", tt.input)
		assert.LessOrEqual(t, got, uint8(100))
	}
}

func TestBuilder_CreateCirclePayload(t *testing.T) {
	b := newTestBuilder()
	future := int64(1_700_000_000 + 86400)

	tests := []struct {
		name        string
		description string
		deadline    int64
		pct         float64
		prize       float64
		expectError bool
		expected    []any
	}{
		{
			name:        "valid",
			description: "Chess Match Challenge",
			deadline:    future,
			pct:         25,
			prize:       1.5,
			expected:    []any{"chess match challenge", "1700086400", uint8(25), "150000000"},
		},
		{
			name:        "clamps pct",
			description: "run 5k",
			deadline:    future,
			pct:         250,
			prize:       1,
			expected:    []any{"run 5k", "1700086400", uint8(100), "100000000"},
		},
		{name: "empty description", description: "   ", deadline: future, pct: 10, prize: 1, expectError: true},
		{name: "deadline now", description: "x", deadline: 1_700_000_000, pct: 10, prize: 1, expectError: true},
		{name: "deadline past", description: "x", deadline: 1, pct: 10, prize: 1, expectError: true},
		{name: "zero prize", description: "x", deadline: future, pct: 10, prize: 0, expectError: true},
		{name: "negative prize", description: "x", deadline: future, pct: 10, prize: -3, expectError: true},
		{name: "dust prize", description: "x", deadline: future, pct: 10, prize: 0.000000001, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := b.CreateCirclePayload(tt.description, tt.deadline, tt.pct, tt.prize)
			if tt.expectError {
				assert.ErrorIs(t, err, ErrValidation)
				assert.Nil(t, payload)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "0xcafe::supercircle::create_circle", payload.Function)
			assert.Equal(t, "entry_function_payload", payload.Type)
			assert.Empty(t, payload.TypeArguments)
			assert.Equal(t, tt.expected, payload.Arguments)
		})
	}
}

func TestBuilder_AcceptCirclePayload(t *testing.T) {
	b := newTestBuilder()

	payload, err := b.AcceptCirclePayload(3, -10)
	require.NoError(t, err)
	assert.Equal(t, "0xcafe::supercircle::accept_circle", payload.Function)
	assert.Equal(t, []any{"3", uint8(0)}, payload.Arguments)

	_, err = b.AcceptCirclePayload(models.NotFoundCircleID, 10)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBuilder_JoinAsSupporterPayload(t *testing.T) {
	b := newTestBuilder()

	payload, err := b.JoinAsSupporterPayload(0, models.SideOpponent, 0.5)
	require.NoError(t, err)
	assert.Equal(t, "0xcafe::supercircle::join_as_supporter", payload.Function)
	assert.Equal(t, []any{"0", uint8(1), "50000000"}, payload.Arguments)

	_, err = b.JoinAsSupporterPayload(0, models.Side(2), 0.5)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = b.JoinAsSupporterPayload(0, models.SideCreator, 0)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBuilder_ResolveCirclePayload(t *testing.T) {
	b := newTestBuilder()

	payload, err := b.ResolveCirclePayload(7, "0xA")
	require.NoError(t, err)
	assert.Equal(t, "0xcafe::supercircle::resolve_circle", payload.Function)
	assert.Equal(t, []any{"7", "0x" + strings.Repeat("0", 63) + "a"}, payload.Arguments)

	_, err = b.ResolveCirclePayload(7, "not an address")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBuilder_InitPayload(t *testing.T) {
	payload := newTestBuilder().InitPayload()
	assert.Equal(t, "0xcafe::supercircle::init", payload.Function)
	assert.Empty(t, payload.Arguments)
}

func TestWalletPayload(t *testing.T) {
	payload, err := newTestBuilder().JoinAsSupporterPayload(1, models.SideCreator, 2)
	require.NoError(t, err)

	body, err := json.Marshal(WalletPayload(payload))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"data": {
			"function": "0xcafe::supercircle::join_as_supporter",
			"typeArguments": [],
			"functionArguments": ["1", 0, "200000000"]
		}
	}`, string(body))
}
