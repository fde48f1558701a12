package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// 圈子状态码，与链上模块保持一致
const (
	StatusPending  uint8 = 0
	StatusActive   uint8 = 1
	StatusResolved uint8 = 2
	StatusNotFound uint8 = 255
)

// NotFoundCircleID is returned by get_circle_id_by_description when no circle matches.
const NotFoundCircleID uint64 = math.MaxUint64

// Circle 挑战圈子（链上 CircleBook 中的一项）
type Circle struct {
	ID                   uint64      `json:"id"`
	Creator              string      `json:"creator"`
	Opponent             *string     `json:"opponent"`
	Description          string      `json:"description"`
	Deadline             int64       `json:"deadline"`
	CreatedAt            int64       `json:"created_at"`
	CreatorStake         float64     `json:"creator_stake"`
	OpponentStake        float64     `json:"opponent_stake"`
	CreatorSupporterPct  uint8       `json:"creator_supporter_pct"`
	OpponentSupporterPct uint8       `json:"opponent_supporter_pct"`
	CreatorSupporters    []Supporter `json:"creator_supporters"`
	OpponentSupporters   []Supporter `json:"opponent_supporters"`
	Resolved             bool        `json:"resolved"`
	Winner               *string     `json:"winner"`
	Status               uint8       `json:"status"`
	PrizePool            float64     `json:"prize_pool"`
}

// Supporter 支持者
type Supporter struct {
	Addr     string  `json:"addr"`
	Amount   float64 `json:"amount"`
	JoinedAt int64   `json:"joined_at"`
}

// HasOpponent reports whether an opponent accepted the circle.
func (c *Circle) HasOpponent() bool {
	return c.Opponent != nil && *c.Opponent != ""
}

// SideAddress returns the participant address for the given side.
func (c *Circle) SideAddress(side Side) (string, bool) {
	switch side {
	case SideCreator:
		return c.Creator, c.Creator != ""
	case SideOpponent:
		if !c.HasOpponent() {
			return "", false
		}
		return *c.Opponent, true
	default:
		return "", false
	}
}

// Side 支持方向: 0 = creator, 1 = opponent
type Side uint8

const (
	SideCreator  Side = 0
	SideOpponent Side = 1
)

func (s Side) String() string {
	switch s {
	case SideCreator:
		return "creator"
	case SideOpponent:
		return "opponent"
	default:
		return fmt.Sprintf("side(%d)", uint8(s))
	}
}

// Valid reports whether s is one of the two sides the contract accepts.
func (s Side) Valid() bool {
	return s == SideCreator || s == SideOpponent
}

// ParseSide accepts "creator"/"opponent" or their numeric codes.
func ParseSide(v string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "creator", "0":
		return SideCreator, nil
	case "opponent", "1":
		return SideOpponent, nil
	default:
		return 0, fmt.Errorf("invalid side: %q", v)
	}
}

// StatusString maps a status code to its display name.
func StatusString(code uint8) string {
	switch code {
	case StatusPending:
		return "Pending"
	case StatusActive:
		return "Active"
	case StatusResolved:
		return "Resolved"
	case StatusNotFound:
		return "Not Found"
	default:
		return "Unknown"
	}
}

// IsValidCircleID rejects the "not found" sentinel.
func IsValidCircleID(id uint64) bool {
	return id != NotFoundCircleID
}

// CircleStats 圈子统计
type CircleStats struct {
	TotalCircles    uint64 `json:"total_circles"`
	PendingCircles  int    `json:"pending_circles"`
	ActiveCircles   int    `json:"active_circles"`
	ResolvedCircles int    `json:"resolved_circles"`
	RecentCircles   int    `json:"recent_circles"`
}

// Eligibility 支持者加入资格
type Eligibility struct {
	CanJoin         bool    `json:"can_join"`
	Reason          string  `json:"reason,omitempty"`
	MaxAmount       float64 `json:"max_amount,omitempty"`
	RemainingAmount float64 `json:"remaining_amount,omitempty"`
}

// CircleValidation 圈子ID校验结果
type CircleValidation struct {
	IsValid      bool   `json:"is_valid"`
	Exists       bool   `json:"exists"`
	Status       *uint8 `json:"status,omitempty"`
	StatusString string `json:"status_string,omitempty"`
	Creator      string `json:"creator,omitempty"`
}

// InitializationStatus 合约初始化状态
type InitializationStatus struct {
	IsInitialized bool   `json:"is_initialized"`
	HasCircles    bool   `json:"has_circles"`
	CircleCount   int    `json:"circle_count"`
	Message       string `json:"message"`
}

// JudgeRun 一次批量判决的记录
type JudgeRun struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Candidates int       `json:"candidates"`
	Judged     int       `json:"judged"`
	Resolved   int       `json:"resolved"`
	Failed     int       `json:"failed"`
	Error      string    `json:"error,omitempty"`
}
