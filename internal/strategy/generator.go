package strategy

import (
	"fmt"
	"sort"

	"github.com/sourcegraph/conc/iter"

	"option-screener/internal/errors"
	"option-screener/internal/models"
)

// ExpiryChain holds the contracts of one expiry split by side, each sorted
// ascending by strike. Equal strikes keep their input order.
type ExpiryChain struct {
	Expiry string
	Calls  []models.Option
	Puts   []models.Option
}

// GroupByExpiry partitions options by expiry. Chains are returned in the
// order their expiry first appears in the input.
func GroupByExpiry(options []models.Option) []ExpiryChain {
	index := make(map[string]int)
	var chains []ExpiryChain
	for _, o := range options {
		i, ok := index[o.Expiry]
		if !ok {
			i = len(chains)
			index[o.Expiry] = i
			chains = append(chains, ExpiryChain{Expiry: o.Expiry})
		}
		switch o.Side {
		case models.Call:
			chains[i].Calls = append(chains[i].Calls, o)
		case models.Put:
			chains[i].Puts = append(chains[i].Puts, o)
		}
	}
	for i := range chains {
		sortByStrike(chains[i].Calls)
		sortByStrike(chains[i].Puts)
	}
	return chains
}

func sortByStrike(opts []models.Option) {
	sort.SliceStable(opts, func(i, j int) bool { return opts[i].Strike < opts[j].Strike })
}

// chainFunc builds the candidates of one kind inside one expiry chain.
type chainFunc func(chain ExpiryChain, spot float64, direction models.Direction) []Strategy

// Generator enumerates candidate strategies from an already filtered
// universe. It never applies strategy-level filters.
type Generator struct {
	workers int
}

// NewGenerator creates a generator. With workers > 1 the expiry chains of a
// kind are expanded concurrently; output order is unchanged.
func NewGenerator(workers int) *Generator {
	if workers < 1 {
		workers = 1
	}
	return &Generator{workers: workers}
}

// Generate dispatches to the generator for kind. Every kind requires a
// direction.
func (g *Generator) Generate(kind Kind, universe []models.Option, spot float64, direction *models.Direction) ([]Strategy, error) {
	if direction == nil {
		return nil, errors.NewPreconditionError(string(kind), "direction must be set to generate "+string(kind), errors.ErrDirectionRequired)
	}

	switch kind {
	case KindSingleLeg:
		return SingleLegs(universe, spot, *direction), nil
	case KindIronCondor:
		return g.perExpiry(universe, spot, *direction, ironCondors), nil
	case KindStraddle:
		return g.perExpiry(universe, spot, *direction, straddles), nil
	case KindStrangle:
		return g.perExpiry(universe, spot, *direction, strangles), nil
	default:
		return nil, fmt.Errorf("unknown strategy kind %q", kind)
	}
}

func (g *Generator) perExpiry(universe []models.Option, spot float64, direction models.Direction, fn chainFunc) []Strategy {
	chains := GroupByExpiry(universe)

	var parts [][]Strategy
	if g.workers > 1 && len(chains) > 1 {
		mapper := iter.Mapper[ExpiryChain, []Strategy]{MaxGoroutines: g.workers}
		parts = mapper.Map(chains, func(c *ExpiryChain) []Strategy {
			return fn(*c, spot, direction)
		})
	} else {
		parts = make([][]Strategy, len(chains))
		for i, c := range chains {
			parts[i] = fn(c, spot, direction)
		}
	}

	total := 0
	for _, p := range parts {
		total += len(p)
	}
	out := make([]Strategy, 0, total)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// SingleLegs emits one single-leg strategy per out-of-the-money call, in
// input order. SHORT sells the call, LONG buys it.
func SingleLegs(universe []models.Option, spot float64, direction models.Direction) []Strategy {
	action := models.Buy
	if direction == models.Short {
		action = models.Sell
	}
	var out []Strategy
	for _, o := range universe {
		if o.IsCall() && o.IsOTM(spot) {
			out = append(out, NewSingleLeg(o, action, direction))
		}
	}
	return out
}

// straddles pairs every call with every put of equal strike. Duplicate
// strikes produce every matching pair.
func straddles(chain ExpiryChain, _ float64, direction models.Direction) []Strategy {
	var out []Strategy
	for _, c := range chain.Calls {
		for _, p := range chain.Puts {
			if p.Strike == c.Strike {
				out = append(out, NewStraddle(c, p, direction))
			}
		}
	}
	return out
}

// strangles emits the full cross product of OTM calls and OTM puts.
func strangles(chain ExpiryChain, spot float64, direction models.Direction) []Strategy {
	calls := above(chain.Calls, spot)
	puts := below(chain.Puts, spot)
	out := make([]Strategy, 0, len(calls)*len(puts))
	for _, c := range calls {
		for _, p := range puts {
			out = append(out, NewStrangle(c, p, direction))
		}
	}
	return out
}

// ironCondors emits every short call above spot with every long call above
// it, crossed with every short put below spot and every long put below it.
func ironCondors(chain ExpiryChain, spot float64, direction models.Direction) []Strategy {
	shortCalls := above(chain.Calls, spot)
	shortPuts := below(chain.Puts, spot)
	if len(shortCalls) == 0 || len(shortPuts) == 0 {
		return nil
	}

	// Wing candidates do not depend on the opposite side, so compute them once.
	longPuts := make([][]models.Option, len(shortPuts))
	putPairs := 0
	for i, sp := range shortPuts {
		longPuts[i] = below(chain.Puts, sp.Strike)
		putPairs += len(longPuts[i])
	}
	if putPairs == 0 {
		return nil
	}

	var out []Strategy
	for _, sc := range shortCalls {
		for _, lc := range above(chain.Calls, sc.Strike) {
			for i, sp := range shortPuts {
				for _, lp := range longPuts[i] {
					out = append(out, NewIronCondor(sc, lc, sp, lp, direction))
				}
			}
		}
	}
	return out
}

// above returns the options with strike strictly greater than level,
// preserving order.
func above(opts []models.Option, level float64) []models.Option {
	var out []models.Option
	for _, o := range opts {
		if o.Strike > level {
			out = append(out, o)
		}
	}
	return out
}

// below returns the options with strike strictly less than level,
// preserving order.
func below(opts []models.Option, level float64) []models.Option {
	var out []models.Option
	for _, o := range opts {
		if o.Strike < level {
			out = append(out, o)
		}
	}
	return out
}
