package chain

import (
	"fmt"

	"ots/go-core/internal/otserr"
)

// Estimator converts between block heights and unix timestamps for a
// network. Implementations must be monotonic in both directions; a round
// trip may drift by a bounded amount but never diverge.
type Estimator interface {
	HeightFromTimestamp(ts uint64, net Network) uint64
	TimestampFromHeight(height uint64, net Network) uint64
}

// SecondsPerBlock is the block target used since the v2 fork.
const SecondsPerBlock = 120

// MaxHeight bounds the heights the estimator maps. Its timestamp stays far
// below the uint64 range on every network; larger inputs are clamped.
const MaxHeight uint64 = 1 << 48

var ErrHeightRange = otserr.New(otserr.ErrInvalidArgument, "height out of range")

// CheckHeight rejects heights the estimator cannot map exactly.
func CheckHeight(height uint64) error {
	if height > MaxHeight {
		return fmt.Errorf("%w: %d > %d", ErrHeightRange, height, MaxHeight)
	}
	return nil
}

type anchor struct {
	height    uint64
	timestamp uint64
}

// Anchors are the v2 fork blocks; heights before them are extrapolated with
// the v2 target, which keeps the mapping linear and invertible.
var anchors = map[Network]anchor{
	Main:  {height: 1009827, timestamp: 1458748658},
	Test:  {height: 624634, timestamp: 1448285909},
	Stage: {height: 32000, timestamp: 1520937818},
}

// Approximate is a linear estimator anchored on each network's v2 fork.
type Approximate struct{}

func (Approximate) HeightFromTimestamp(ts uint64, net Network) uint64 {
	a, ok := anchors[net]
	if !ok || ts == 0 {
		return 0
	}
	if ts >= a.timestamp {
		return min(a.height+(ts-a.timestamp)/SecondsPerBlock, MaxHeight)
	}
	back := (a.timestamp - ts + SecondsPerBlock - 1) / SecondsPerBlock
	if back >= a.height {
		return 0
	}
	return a.height - back
}

func (Approximate) TimestampFromHeight(height uint64, net Network) uint64 {
	a, ok := anchors[net]
	if !ok {
		return 0
	}
	height = min(height, MaxHeight)
	if height >= a.height {
		return a.timestamp + (height-a.height)*SecondsPerBlock
	}
	return a.timestamp - (a.height-height)*SecondsPerBlock
}

// Default is the estimator used when callers do not inject one.
var Default Estimator = Approximate{}
