package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusString(t *testing.T) {
	tests := []struct {
		code uint8
		want string
	}{
		{code: 0, want: "Pending"},
		{code: 1, want: "Active"},
		{code: 2, want: "Resolved"},
		{code: 255, want: "Not Found"},
		{code: 3, want: "Unknown"},
		{code: 254, want: "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusString(tt.code))
		})
	}
}

func TestIsValidCircleID(t *testing.T) {
	assert.True(t, IsValidCircleID(0))
	assert.True(t, IsValidCircleID(42))
	assert.False(t, IsValidCircleID(NotFoundCircleID))
	assert.False(t, IsValidCircleID(18446744073709551615))
}

func TestParseSide(t *testing.T) {
	tests := []struct {
		in      string
		want    Side
		wantErr bool
	}{
		{in: "creator", want: SideCreator},
		{in: "Opponent", want: SideOpponent},
		{in: "0", want: SideCreator},
		{in: " 1 ", want: SideOpponent},
		{in: "2", wantErr: true},
		{in: "judge", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSide(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCircle_SideAddress(t *testing.T) {
	opponent := "0xb0b"
	circle := &Circle{Creator: "0xa11ce", Opponent: &opponent}

	addr, ok := circle.SideAddress(SideCreator)
	assert.True(t, ok)
	assert.Equal(t, "0xa11ce", addr)

	addr, ok = circle.SideAddress(SideOpponent)
	assert.True(t, ok)
	assert.Equal(t, "0xb0b", addr)

	_, ok = circle.SideAddress(Side(7))
	assert.False(t, ok)

	pending := &Circle{Creator: "0xa11ce"}
	_, ok = pending.SideAddress(SideOpponent)
	assert.False(t, ok)
	assert.False(t, pending.HasOpponent())
}
