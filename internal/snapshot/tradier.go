// Package snapshot loads option chain snapshots captured from the Tradier
// markets API into normalized models.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"option-screener/internal/errors"
	"option-screener/internal/models"
)

const dateLayout = "2006-01-02"

// ivKeys are checked in order; the first positive value wins.
var ivKeys = []string{"mid_iv", "bid_iv", "ask_iv", "smv_vol", "implied_volatility", "volatility"}

type tradierSnapshot struct {
	Symbols    []string                   `json:"symbols"`
	Chains     map[string]json.RawMessage `json:"chains"`
	Underlying tradierQuote               `json:"underlying"`
}

type tradierQuote struct {
	Bid  interface{} `json:"bid"`
	Ask  interface{} `json:"ask"`
	Last interface{} `json:"last"`
}

type tradierOption struct {
	Symbol         string                 `json:"symbol"`
	OptionType     string                 `json:"option_type"`
	ExpirationDate string                 `json:"expiration_date"`
	Strike         interface{}            `json:"strike"`
	Bid            interface{}            `json:"bid"`
	Ask            interface{}            `json:"ask"`
	Last           interface{}            `json:"last"`
	Volume         interface{}            `json:"volume"`
	OpenInterest   interface{}            `json:"open_interest"`
	Greeks         map[string]interface{} `json:"greeks"`
}

// Load reads a snapshot file. Days to expiry are counted from asOf; a zero
// asOf means today.
func Load(path string, asOf time.Time) (models.OptionChain, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.OptionChain{}, fmt.Errorf("opening snapshot %q: %w", path, err)
	}
	defer f.Close()

	chain, err := Parse(f, asOf)
	if err != nil {
		return models.OptionChain{}, fmt.Errorf("reading snapshot %q: %w", path, err)
	}
	return chain, nil
}

// Parse decodes a snapshot document. A missing spot price is not an error
// here; the chain's Spot is left nil for the caller to reject.
func Parse(r io.Reader, asOf time.Time) (models.OptionChain, error) {
	var snap tradierSnapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return models.OptionChain{}, errors.NewDataError("snapshot", "", "malformed JSON", fmt.Errorf("%w: %v", errors.ErrSnapshotInvalid, err))
	}
	if len(snap.Symbols) == 0 {
		return models.OptionChain{}, errors.NewDataError("snapshot", "", "no symbols listed", errors.ErrSnapshotInvalid)
	}
	symbol := snap.Symbols[0]

	if asOf.IsZero() {
		asOf = time.Now()
	}
	today := truncateDay(asOf)

	chain := models.OptionChain{
		Symbol: symbol,
		Spot:   spotPrice(snap.Underlying),
		AsOf:   today,
	}

	raw, ok := snap.Chains[symbol]
	if !ok {
		return chain, nil
	}
	rows, err := decodeRows(raw)
	if err != nil {
		return models.OptionChain{}, errors.NewDataError("snapshot", symbol, "malformed chain", fmt.Errorf("%w: %v", errors.ErrSnapshotInvalid, err))
	}

	chain.Options = make([]models.Option, 0, len(rows))
	for i, row := range rows {
		opt, err := toOption(symbol, row, today)
		if err != nil {
			return models.OptionChain{}, errors.NewDataError("option", symbol, fmt.Sprintf("row %d", i), fmt.Errorf("%w: %v", errors.ErrSnapshotInvalid, err))
		}
		chain.Options = append(chain.Options, opt)
	}
	return chain, nil
}

// decodeRows accepts either {expiry: [rows]} or a flat [rows] list. Grouped
// rows are returned in ascending expiry order.
func decodeRows(raw json.RawMessage) ([]tradierOption, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var rows []tradierOption
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, err
		}
		return rows, nil
	}

	var byExpiry map[string][]tradierOption
	if err := json.Unmarshal(trimmed, &byExpiry); err != nil {
		return nil, err
	}
	expiries := make([]string, 0, len(byExpiry))
	for e := range byExpiry {
		expiries = append(expiries, e)
	}
	sort.Strings(expiries)

	var rows []tradierOption
	for _, e := range expiries {
		rows = append(rows, byExpiry[e]...)
	}
	return rows, nil
}

func toOption(symbol string, row tradierOption, today time.Time) (models.Option, error) {
	strike, ok := number(row.Strike)
	if !ok || strike <= 0 {
		return models.Option{}, fmt.Errorf("invalid strike %v", row.Strike)
	}

	var side models.OptionSide
	switch strings.ToLower(row.OptionType) {
	case "call":
		side = models.Call
	case "put":
		side = models.Put
	default:
		return models.Option{}, fmt.Errorf("unknown option_type %q", row.OptionType)
	}

	expiry, err := time.Parse(dateLayout, row.ExpirationDate)
	if err != nil {
		return models.Option{}, fmt.Errorf("invalid expiration_date %q: %w", row.ExpirationDate, err)
	}

	opt := models.Option{
		Symbol:       symbol,
		Expiry:       row.ExpirationDate,
		Strike:       strike,
		Side:         side,
		Mid:          midPrice(row.Bid, row.Ask, row.Last),
		IV:           impliedVol(row.Greeks),
		Volume:       count(row.Volume),
		OpenInterest: count(row.OpenInterest),
		Greeks: models.OptionGreeks{
			Delta: greek(row.Greeks, "delta"),
			Gamma: greek(row.Greeks, "gamma"),
			Theta: greek(row.Greeks, "theta"),
			Vega:  greek(row.Greeks, "vega"),
			Rho:   greek(row.Greeks, "rho"),
		},
		DaysToExpiry: int(expiry.Sub(today).Hours() / 24),
	}
	if b, ok := number(row.Bid); ok {
		opt.Bid = &b
	}
	if a, ok := number(row.Ask); ok {
		opt.Ask = &a
	}
	return opt, nil
}

// spotPrice prefers the bid/ask midpoint, then last.
func spotPrice(q tradierQuote) *float64 {
	bid, okBid := number(q.Bid)
	ask, okAsk := number(q.Ask)
	if okBid && okAsk {
		mid := (bid + ask) / 2
		return &mid
	}
	if last, ok := number(q.Last); ok {
		return &last
	}
	return nil
}

func midPrice(bid, ask, last interface{}) float64 {
	b, okBid := number(bid)
	a, okAsk := number(ask)
	if okBid && okAsk {
		return (b + a) / 2
	}
	if l, ok := number(last); ok {
		return l
	}
	return 0
}

func impliedVol(greeks map[string]interface{}) float64 {
	for _, k := range ivKeys {
		if v, ok := number(greeks[k]); ok && v > 0 {
			return v
		}
	}
	return 0
}

func greek(greeks map[string]interface{}, key string) float64 {
	v, _ := number(greeks[key])
	return v
}

func count(v interface{}) int64 {
	n, ok := number(v)
	if !ok || n < 0 {
		return 0
	}
	return int64(n)
}

// number reports v as a float only when the source held a JSON number.
func number(v interface{}) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
