package models

import (
	"fmt"
	"strings"
)

// Direction is the side a multi-leg strategy is opened on.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// ParseDirection converts a case-insensitive string to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(Long):
		return Long, nil
	case string(Short):
		return Short, nil
	default:
		return "", fmt.Errorf("unknown direction %q (must be LONG or SHORT)", s)
	}
}

// Action is the trade performed on a single leg.
type Action string

const (
	Buy  Action = "BUY"
	Sell Action = "SELL"
)

// Range is an inclusive [Low, High] bound on a real metric.
type Range struct {
	Low  float64
	High float64
}

// Contains reports whether Low <= v <= High. NaN is never contained, and an
// infinite value is contained only when the matching bound is infinite too.
func (r Range) Contains(v float64) bool {
	return r.Low <= v && v <= r.High
}

// Inverted reports whether Low > High, in which case nothing is contained.
func (r Range) Inverted() bool {
	return r.Low > r.High
}

func (r Range) String() string {
	return fmt.Sprintf("[%g, %g]", r.Low, r.High)
}

// IntRange is an inclusive [Low, High] bound on an integer attribute.
type IntRange struct {
	Low  int
	High int
}

// Contains reports whether Low <= v <= High.
func (r IntRange) Contains(v int) bool {
	return r.Low <= v && v <= r.High
}

// Inverted reports whether Low > High.
func (r IntRange) Inverted() bool {
	return r.Low > r.High
}

// StrategyFilter selects which strategy kinds are generated.
type StrategyFilter struct {
	SingleLegs  bool
	IronCondors bool
	Straddles   bool
	Strangles   bool
}

// Any reports whether at least one kind is selected.
func (f StrategyFilter) Any() bool {
	return f.SingleLegs || f.IronCondors || f.Straddles || f.Strangles
}

// ConfigFilter holds independently optional screening predicates. A nil
// field means no constraint.
type ConfigFilter struct {
	// Option-level
	MinVolume       *int64
	MinOpenInterest *int64
	MinPrice        *float64
	Expiry          *string
	DaysToExpiry    *IntRange
	VolumeRatio     *Range
	MaxBidAskSpread *float64

	// Strategy-level
	Direction     *Direction
	Debit         *Range
	Credit        *Range
	PotentialGain *Range
	PotentialLoss *Range
	RiskReward    *Range
	NetDelta      *Range
	NetTheta      *Range
	NetVega       *Range
	IV            *Range
}

// InvertedRanges returns the names of every configured range whose low bound
// exceeds its high bound.
func (c ConfigFilter) InvertedRanges() []string {
	var names []string
	if c.DaysToExpiry != nil && c.DaysToExpiry.Inverted() {
		names = append(names, "days_to_expiry_range")
	}
	ranges := []struct {
		name string
		r    *Range
	}{
		{"volume_ratio_range", c.VolumeRatio},
		{"debit_range", c.Debit},
		{"credit_range", c.Credit},
		{"potential_gain_range", c.PotentialGain},
		{"potential_loss_range", c.PotentialLoss},
		{"rr_range", c.RiskReward},
		{"net_delta_range", c.NetDelta},
		{"net_theta_range", c.NetTheta},
		{"net_vega_range", c.NetVega},
		{"iv_range", c.IV},
	}
	for _, nr := range ranges {
		if nr.r != nil && nr.r.Inverted() {
			names = append(names, nr.name)
		}
	}
	return names
}

// Ptr returns a pointer to v. Handy for building a ConfigFilter literal.
func Ptr[T any](v T) *T {
	return &v
}
