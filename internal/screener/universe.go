// Package screener filters an option universe, builds candidate strategies
// and ranks them.
package screener

import (
	"option-screener/internal/models"
)

// OptionFilter applies the option-level predicates of a ConfigFilter.
// All present predicates are combined with AND logic.
type OptionFilter struct {
	cfg models.ConfigFilter
}

// NewOptionFilter creates an OptionFilter with the given configuration.
func NewOptionFilter(cfg models.ConfigFilter) *OptionFilter {
	return &OptionFilter{cfg: cfg}
}

// Apply returns the options that pass every configured predicate, in input
// order. The input slice is not modified.
func (f *OptionFilter) Apply(options []models.Option) []models.Option {
	result := make([]models.Option, 0, len(options))
	for _, o := range options {
		if f.Passes(o) {
			result = append(result, o)
		}
	}
	return result
}

// Passes reports whether a single option satisfies the filter.
func (f *OptionFilter) Passes(o models.Option) bool {
	c := f.cfg
	if c.MinVolume != nil && o.Volume < *c.MinVolume {
		return false
	}
	if c.MinOpenInterest != nil && o.OpenInterest < *c.MinOpenInterest {
		return false
	}
	if c.MinPrice != nil && o.Price() < *c.MinPrice {
		return false
	}
	if c.Expiry != nil && o.Expiry != *c.Expiry {
		return false
	}
	if c.DaysToExpiry != nil && !c.DaysToExpiry.Contains(o.DaysToExpiry) {
		return false
	}
	if c.VolumeRatio != nil {
		ratio, ok := o.VolumeRatio()
		if !ok || !c.VolumeRatio.Contains(ratio) {
			return false
		}
	}
	if c.MaxBidAskSpread != nil {
		spread, ok := o.BidAskSpread()
		if !ok || spread > *c.MaxBidAskSpread {
			return false
		}
	}
	return true
}

// FilterOptions is shorthand for NewOptionFilter(cfg).Apply(options).
func FilterOptions(options []models.Option, cfg models.ConfigFilter) []models.Option {
	return NewOptionFilter(cfg).Apply(options)
}
