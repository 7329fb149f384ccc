package screener

import (
	"github.com/rs/zerolog"

	"option-screener/internal/errors"
	"option-screener/internal/logging"
	"option-screener/internal/models"
	"option-screener/internal/strategy"
)

// KindStats records what happened to the candidates of one kind.
type KindStats struct {
	Kind      strategy.Kind  `json:"kind" yaml:"kind"`
	Generated int            `json:"generated" yaml:"generated"`
	Accepted  int            `json:"accepted" yaml:"accepted"`
	Rejected  map[string]int `json:"rejected,omitempty" yaml:"rejected,omitempty"`
}

// Stats summarizes one factory pass.
type Stats struct {
	UniverseSize int         `json:"universe_size" yaml:"universe_size"`
	FilteredSize int         `json:"filtered_size" yaml:"filtered_size"`
	Kinds        []KindStats `json:"kinds" yaml:"kinds"`
}

// Accepted returns the number of strategies that survived every filter.
func (s Stats) Accepted() int {
	total := 0
	for _, k := range s.Kinds {
		total += k.Accepted
	}
	return total
}

// Factory filters the universe, runs the selected generators and applies the
// strategy-level range filter.
type Factory struct {
	chain     models.OptionChain
	generator *strategy.Generator
	logger    zerolog.Logger
}

// NewFactory creates a factory over one option chain snapshot.
func NewFactory(chain models.OptionChain, workers int, logger zerolog.Logger) *Factory {
	return &Factory{
		chain:     chain,
		generator: strategy.NewGenerator(workers),
		logger:    logging.WithSymbol(logger, chain.Symbol),
	}
}

// Generate builds every selected kind in the fixed order single legs, iron
// condors, straddles, strangles and concatenates the survivors. Preconditions
// are checked before any work so a failure never yields partial results.
func (f *Factory) Generate(sf models.StrategyFilter, cf models.ConfigFilter) (List, Stats, error) {
	if f.chain.Spot == nil {
		return nil, Stats{}, errors.NewPreconditionError("factory", "spot price is required", errors.ErrSpotUndefined)
	}
	kinds := selectedKinds(sf)
	if len(kinds) > 0 && cf.Direction == nil {
		return nil, Stats{}, errors.NewPreconditionError(string(kinds[0]), "direction must be set in config_filter", errors.ErrDirectionRequired)
	}
	spot := *f.chain.Spot

	universe := FilterOptions(f.chain.Options, cf)
	stats := Stats{UniverseSize: len(f.chain.Options), FilteredSize: len(universe)}
	f.logger.Debug().
		Int("universe", stats.UniverseSize).
		Int("filtered", stats.FilteredSize).
		Float64("spot", spot).
		Msg("Option universe filtered")

	rf := NewRangeFilter(cf)
	var all List
	for _, kind := range kinds {
		candidates, err := f.generator.Generate(kind, universe, spot, cf.Direction)
		if err != nil {
			return nil, Stats{}, errors.Wrapf(err, "generating %s", kind)
		}

		ks := KindStats{Kind: kind, Generated: len(candidates)}
		for _, c := range candidates {
			ok, rule := rf.Check(c)
			if !ok {
				if ks.Rejected == nil {
					ks.Rejected = make(map[string]int)
				}
				ks.Rejected[rule]++
				continue
			}
			all = append(all, c)
			ks.Accepted++
		}
		stats.Kinds = append(stats.Kinds, ks)

		kindLogger := logging.WithKind(f.logger, string(kind))
		kindLogger.Debug().
			Int("generated", ks.Generated).
			Int("accepted", ks.Accepted).
			Interface("rejected", ks.Rejected).
			Msg("Strategies filtered")
	}

	return all, stats, nil
}

func selectedKinds(sf models.StrategyFilter) []strategy.Kind {
	var kinds []strategy.Kind
	for _, k := range strategy.Kinds {
		var on bool
		switch k {
		case strategy.KindSingleLeg:
			on = sf.SingleLegs
		case strategy.KindIronCondor:
			on = sf.IronCondors
		case strategy.KindStraddle:
			on = sf.Straddles
		case strategy.KindStrangle:
			on = sf.Strangles
		}
		if on {
			kinds = append(kinds, k)
		}
	}
	return kinds
}
