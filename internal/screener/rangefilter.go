package screener

import (
	"option-screener/internal/models"
	"option-screener/internal/strategy"
)

// Rule names reported by RangeFilter.Check.
const (
	RuleDebit         = "debit"
	RuleCredit        = "credit"
	RulePotentialGain = "potential_gain"
	RulePotentialLoss = "potential_loss"
	RuleRiskReward    = "rr"
	RuleNetDelta      = "net_delta"
	RuleNetTheta      = "net_theta"
	RuleNetVega       = "net_vega"
	RuleIV            = "iv"
)

// RangeFilter applies the strategy-level range predicates of a ConfigFilter.
type RangeFilter struct {
	cfg models.ConfigFilter
}

// NewRangeFilter creates a RangeFilter with the given configuration.
func NewRangeFilter(cfg models.ConfigFilter) *RangeFilter {
	return &RangeFilter{cfg: cfg}
}

// Accept reports whether s satisfies every configured range.
func (f *RangeFilter) Accept(s strategy.Strategy) bool {
	ok, _ := f.Check(s)
	return ok
}

// Check is Accept plus the name of the first rule that rejected s.
func (f *RangeFilter) Check(s strategy.Strategy) (bool, string) {
	c := f.cfg

	// A zero debit (pure credit trade) is exempt from the debit range and
	// vice versa.
	if c.Debit != nil {
		if d := s.Debit(); d > 0 && !c.Debit.Contains(d) {
			return false, RuleDebit
		}
	}
	if c.Credit != nil {
		if cr := s.Credit(); cr > 0 && !c.Credit.Contains(cr) {
			return false, RuleCredit
		}
	}

	metrics := []struct {
		rule  string
		rng   *models.Range
		value func() float64
	}{
		{RulePotentialGain, c.PotentialGain, s.MaxGain},
		{RulePotentialLoss, c.PotentialLoss, s.MaxLoss},
		{RuleRiskReward, c.RiskReward, s.RiskReward},
		{RuleNetDelta, c.NetDelta, s.NetDelta},
		{RuleNetTheta, c.NetTheta, s.NetTheta},
		{RuleNetVega, c.NetVega, s.NetVega},
	}
	for _, m := range metrics {
		if m.rng != nil && !m.rng.Contains(m.value()) {
			return false, m.rule
		}
	}

	// Undefined IV skips the check instead of rejecting.
	if c.IV != nil {
		if iv, ok := s.AvgIV(); ok && !c.IV.Contains(iv) {
			return false, RuleIV
		}
	}
	return true, ""
}

// Apply returns the strategies that pass, in input order.
func (f *RangeFilter) Apply(strategies []strategy.Strategy) []strategy.Strategy {
	out := make([]strategy.Strategy, 0, len(strategies))
	for _, s := range strategies {
		if f.Accept(s) {
			out = append(out, s)
		}
	}
	return out
}
