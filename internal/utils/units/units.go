package units

import (
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// OctaPerApt 1 APT = 10^8 octa
const OctaPerApt = 100_000_000

const octaExp = 8

var maxOcta = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)

// AptToOcta converts a display amount to on-chain subunits, truncating
// fractions of an octa. Non-finite and non-positive inputs yield 0.
func AptToOcta(apt float64) uint64 {
	if math.IsNaN(apt) || math.IsInf(apt, 0) || apt <= 0 {
		return 0
	}

	octa := decimal.NewFromFloat(apt).Shift(octaExp).Floor()
	if octa.GreaterThan(maxOcta) {
		return math.MaxUint64
	}
	return octa.BigInt().Uint64()
}

// OctaToApt converts on-chain subunits to the display unit. Amounts below
// 1e15 octa survive AptToOcta(OctaToApt(a)) exactly; larger ones lose the
// digits float64 cannot hold.
func OctaToApt(octa uint64) float64 {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(octa), -octaExp).InexactFloat64()
}

// IsDeadlinePassed reports whether the unix deadline lies strictly before now.
func IsDeadlinePassed(deadline int64, now time.Time) bool {
	return deadline < now.Unix()
}

// IsRecentlyCreated reports whether createdAt falls within the last 24 hours.
func IsRecentlyCreated(createdAt int64, now time.Time) bool {
	return createdAt > now.Unix()-86400
}

// FormatTimestamp 将秒级时间戳格式化为可读时间
func FormatTimestamp(ts int64) string {
	return time.Unix(ts, 0).UTC().Format("January 2, 2006 3:04 PM")
}

// TimeAgo renders how long ago ts was, e.g. "5 minutes ago".
func TimeAgo(ts int64, now time.Time) string {
	diff := now.Unix() - ts
	switch {
	case diff < 60:
		return fmt.Sprintf("%d seconds ago", diff)
	case diff < 3600:
		return fmt.Sprintf("%d minutes ago", diff/60)
	case diff < 86400:
		return fmt.Sprintf("%d hours ago", diff/3600)
	default:
		return fmt.Sprintf("%d days ago", diff/86400)
	}
}

// FutureTimeString renders how far ahead ts is, e.g. "in 3 hours".
func FutureTimeString(ts int64, now time.Time) string {
	diff := ts - now.Unix()
	switch {
	case diff < 60:
		return fmt.Sprintf("in %d seconds", diff)
	case diff < 3600:
		return fmt.Sprintf("in %d minutes", diff/60)
	case diff < 86400:
		return fmt.Sprintf("in %d hours", diff/3600)
	default:
		return fmt.Sprintf("in %d days", diff/86400)
	}
}
