// Package models provides domain models for the option screener.
package models

import (
	"fmt"
	"math"
	"time"
)

// ContractMultiplier is the number of shares one listed contract controls.
const ContractMultiplier = 100

// OptionSide represents the side of an option contract.
type OptionSide string

const (
	Call OptionSide = "CALL"
	Put  OptionSide = "PUT"
)

// OptionChain is a normalized snapshot of every listed contract for one
// underlying. Spot is nil when the source did not report a usable price.
type OptionChain struct {
	Symbol  string
	Spot    *float64
	AsOf    time.Time
	Options []Option
}

// Option represents one exchange-listed contract at a point in time.
// Values are immutable after ingestion and compared by Key.
type Option struct {
	Symbol       string
	Expiry       string
	Strike       float64
	Side         OptionSide
	Mid          float64
	IV           float64 // 0 means unknown
	Volume       int64
	OpenInterest int64
	Greeks       OptionGreeks
	DaysToExpiry int
	Bid          *float64
	Ask          *float64
}

// OptionGreeks represents option Greeks.
type OptionGreeks struct {
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
	Rho   float64
}

// OptionKey identifies a contract by value.
type OptionKey struct {
	Symbol string
	Expiry string
	Strike float64
	Side   OptionSide
}

// Key returns the identity of the contract.
func (o Option) Key() OptionKey {
	return OptionKey{Symbol: o.Symbol, Expiry: o.Expiry, Strike: o.Strike, Side: o.Side}
}

// IsCall reports whether the contract is a call.
func (o Option) IsCall() bool { return o.Side == Call }

// IsPut reports whether the contract is a put.
func (o Option) IsPut() bool { return o.Side == Put }

// Price returns the mid price floored at zero.
func (o Option) Price() float64 {
	if o.Mid > 0 {
		return o.Mid
	}
	return 0
}

// Liquidity returns volume plus open interest.
func (o Option) Liquidity() int64 {
	return o.Volume + o.OpenInterest
}

// BidAskSpread returns |ask - bid|. ok is false when either quote is missing.
func (o Option) BidAskSpread() (spread float64, ok bool) {
	if o.Bid == nil || o.Ask == nil {
		return 0, false
	}
	return math.Abs(*o.Ask - *o.Bid), true
}

// VolumeRatio returns volume / open interest. ok is false when open
// interest is zero.
func (o Option) VolumeRatio() (ratio float64, ok bool) {
	if o.OpenInterest <= 0 {
		return 0, false
	}
	return float64(o.Volume) / float64(o.OpenInterest), true
}

// IsOTM reports whether the contract is out of the money relative to spot.
func (o Option) IsOTM(spot float64) bool {
	return (o.IsCall() && o.Strike > spot) || (o.IsPut() && o.Strike < spot)
}

func (o Option) String() string {
	return fmt.Sprintf("%s %g exp=%s mid=%.2f delta=%g", o.Side, o.Strike, o.Expiry, o.Mid, o.Greeks.Delta)
}
