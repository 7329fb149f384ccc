// Package strategy models multi-leg option strategies and generates them
// from a filtered option universe.
package strategy

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"option-screener/internal/models"
)

// Kind enumerates the closed set of strategy variants.
type Kind string

const (
	KindSingleLeg  Kind = "single_leg"
	KindIronCondor Kind = "iron_condor"
	KindStraddle   Kind = "straddle"
	KindStrangle   Kind = "strangle"
)

// Kinds lists every kind in the fixed order the factory processes them.
var Kinds = []Kind{KindSingleLeg, KindIronCondor, KindStraddle, KindStrangle}

// Label returns a short human-readable name.
func (k Kind) Label() string {
	switch k {
	case KindSingleLeg:
		return "Single"
	case KindIronCondor:
		return "IC"
	case KindStraddle:
		return "Straddle"
	case KindStrangle:
		return "Strangle"
	default:
		return string(k)
	}
}

// Leg is one contract of a strategy together with its signed action.
type Leg struct {
	Option models.Option
	Action models.Action
}

// Quantity returns +1 for a bought leg and -1 for a sold one.
func (l Leg) Quantity() float64 {
	if l.Action == models.Buy {
		return 1
	}
	return -1
}

// Strategy is a tagged variant over the four strategy kinds. The payload is
// a fixed array of legs in canonical order for the kind:
//
//	single leg:  [option]
//	straddle:    [call, put]
//	strangle:    [call, put]
//	iron condor: [short call, long call, short put, long put]
//
// Strategy is a plain value; copying it copies every leg.
type Strategy struct {
	kind      Kind
	direction models.Direction
	action    models.Action
	legs      [4]models.Option
	n         int
}

// NewSingleLeg builds a single-contract strategy.
func NewSingleLeg(opt models.Option, action models.Action, direction models.Direction) Strategy {
	s := Strategy{kind: KindSingleLeg, direction: direction, action: action, n: 1}
	s.legs[0] = opt
	return s
}

// NewStraddle builds a straddle from a call and a put at the same strike.
func NewStraddle(call, put models.Option, direction models.Direction) Strategy {
	s := Strategy{kind: KindStraddle, direction: direction, n: 2}
	s.legs[0], s.legs[1] = call, put
	return s
}

// NewStrangle builds a strangle from an OTM call and an OTM put.
func NewStrangle(call, put models.Option, direction models.Direction) Strategy {
	s := Strategy{kind: KindStrangle, direction: direction, n: 2}
	s.legs[0], s.legs[1] = call, put
	return s
}

// NewIronCondor builds an iron condor from its four legs.
func NewIronCondor(shortCall, longCall, shortPut, longPut models.Option, direction models.Direction) Strategy {
	s := Strategy{kind: KindIronCondor, direction: direction, n: 4}
	s.legs = [4]models.Option{shortCall, longCall, shortPut, longPut}
	return s
}

// Kind returns the variant tag.
func (s Strategy) Kind() Kind { return s.kind }

// Direction returns the direction the strategy was generated with.
func (s Strategy) Direction() models.Direction { return s.direction }

// Options returns the contracts in canonical order.
func (s Strategy) Options() []models.Option {
	out := make([]models.Option, s.n)
	copy(out, s.legs[:s.n])
	return out
}

// Legs returns every contract paired with its signed action.
func (s Strategy) Legs() []Leg {
	out := make([]Leg, s.n)
	for i := 0; i < s.n; i++ {
		out[i] = Leg{Option: s.legs[i], Action: s.legSign(s.legs[i])}
	}
	return out
}

// Expiry returns the expiry of the first leg. All generated legs share it.
func (s Strategy) Expiry() string {
	if s.n == 0 {
		return ""
	}
	return s.legs[0].Expiry
}

// legSign applies the per-kind leg sign rule. Iron condor legs are matched by
// contract identity against the short legs, not by position.
func (s Strategy) legSign(opt models.Option) models.Action {
	switch s.kind {
	case KindSingleLeg:
		return s.action
	case KindStraddle, KindStrangle:
		if s.direction == models.Long {
			return models.Buy
		}
		return models.Sell
	case KindIronCondor:
		key := opt.Key()
		if key == s.legs[0].Key() || key == s.legs[2].Key() {
			return models.Sell
		}
		return models.Buy
	}
	return models.Buy
}

// premium returns the combined price of the given legs per contract.
func premium(opts ...models.Option) float64 {
	total := 0.0
	for _, o := range opts {
		total += o.Price()
	}
	return total * models.ContractMultiplier
}

// Debit is the cash paid to open the position.
func (s Strategy) Debit() float64 {
	switch s.kind {
	case KindSingleLeg:
		if s.action == models.Buy {
			return premium(s.legs[0])
		}
		return 0
	case KindStraddle, KindStrangle:
		if s.direction == models.Long {
			return premium(s.legs[0], s.legs[1])
		}
		return 0
	case KindIronCondor:
		return premium(s.LongCall(), s.LongPut())
	}
	return 0
}

// Credit is the cash received to open the position.
func (s Strategy) Credit() float64 {
	switch s.kind {
	case KindSingleLeg:
		if s.action == models.Sell {
			return premium(s.legs[0])
		}
		return 0
	case KindStraddle, KindStrangle:
		if s.direction == models.Short {
			return premium(s.legs[0], s.legs[1])
		}
		return 0
	case KindIronCondor:
		return premium(s.ShortCall(), s.ShortPut())
	}
	return 0
}

// Cost is debit minus credit. Negative means a net credit.
func (s Strategy) Cost() float64 {
	return s.Debit() - s.Credit()
}

// MaxGain returns the best-case profit, +Inf when unbounded.
func (s Strategy) MaxGain() float64 {
	switch s.kind {
	case KindSingleLeg:
		if s.legs[0].IsCall() {
			return math.Inf(1)
		}
		return s.legs[0].Strike*models.ContractMultiplier - s.Cost()
	case KindStraddle, KindStrangle:
		if s.direction == models.Long {
			return math.Inf(1)
		}
		return s.Credit()
	case KindIronCondor:
		return s.Credit()
	}
	return 0
}

// MaxLoss returns the worst-case loss, +Inf when unbounded.
func (s Strategy) MaxLoss() float64 {
	switch s.kind {
	case KindSingleLeg:
		return s.Cost()
	case KindStraddle, KindStrangle:
		if s.direction == models.Long {
			return s.Cost()
		}
		return math.Inf(1)
	case KindIronCondor:
		return s.Width() - s.Credit()
	}
	return 0
}

// Width is the call-wing width of an iron condor in dollars per contract.
// It is zero for every other kind.
func (s Strategy) Width() float64 {
	if s.kind != KindIronCondor {
		return 0
	}
	return (s.LongCall().Strike - s.ShortCall().Strike) * models.ContractMultiplier
}

// RiskReward is MaxGain / MaxLoss, or +Inf when MaxLoss <= 0.
func (s Strategy) RiskReward() float64 {
	loss := s.MaxLoss()
	if loss > 0 {
		return s.MaxGain() / loss
	}
	return math.Inf(1)
}

// NetDelta sums leg delta per contract with signed quantity.
func (s Strategy) NetDelta() float64 {
	return s.netGreek(func(g models.OptionGreeks) float64 { return g.Delta })
}

// NetTheta sums leg theta per contract with signed quantity.
func (s Strategy) NetTheta() float64 {
	return s.netGreek(func(g models.OptionGreeks) float64 { return g.Theta })
}

// NetVega sums leg vega per contract with signed quantity.
func (s Strategy) NetVega() float64 {
	return s.netGreek(func(g models.OptionGreeks) float64 { return g.Vega })
}

func (s Strategy) netGreek(pick func(models.OptionGreeks) float64) float64 {
	total := 0.0
	for _, leg := range s.Legs() {
		total += pick(leg.Option.Greeks) * models.ContractMultiplier * leg.Quantity()
	}
	return total
}

// AvgIV is the mean of the strictly positive leg IVs. ok is false when no
// leg reports one.
func (s Strategy) AvgIV() (iv float64, ok bool) {
	ivs := make([]float64, 0, s.n)
	for i := 0; i < s.n; i++ {
		if s.legs[i].IV > 0 {
			ivs = append(ivs, s.legs[i].IV)
		}
	}
	if len(ivs) == 0 {
		return 0, false
	}
	return stat.Mean(ivs, nil), true
}

// ShortCall returns the sold call of an iron condor.
func (s Strategy) ShortCall() models.Option { return s.legs[0] }

// LongCall returns the bought call of an iron condor.
func (s Strategy) LongCall() models.Option { return s.legs[1] }

// ShortPut returns the sold put of an iron condor.
func (s Strategy) ShortPut() models.Option { return s.legs[2] }

// LongPut returns the bought put of an iron condor.
func (s Strategy) LongPut() models.Option { return s.legs[3] }

// Describe returns a one-line description of the position.
func (s Strategy) Describe() string {
	switch s.kind {
	case KindSingleLeg:
		o := s.legs[0]
		return fmt.Sprintf("Single %s %s@%g exp %s", s.action, o.Side, o.Strike, o.Expiry)
	case KindStraddle, KindStrangle:
		return fmt.Sprintf("%s %s C:%g P:%g exp %s", s.kind.Label(), s.direction, s.legs[0].Strike, s.legs[1].Strike, s.legs[0].Expiry)
	case KindIronCondor:
		return fmt.Sprintf("IC C:%g/%g P:%g/%g exp %s",
			s.ShortCall().Strike, s.LongCall().Strike, s.ShortPut().Strike, s.LongPut().Strike, s.ShortCall().Expiry)
	}
	return string(s.kind)
}

func (s Strategy) String() string {
	return fmt.Sprintf("[%s] cost=%.2f rr=%.2f delta=%.3f theta=%.3f vega=%.3f",
		s.Describe(), s.Cost(), s.RiskReward(), s.NetDelta(), s.NetTheta(), s.NetVega())
}
