package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"option-screener/internal/errors"
	"option-screener/internal/models"
)

var asOf = time.Date(2025, 1, 2, 15, 30, 0, 0, time.UTC)

const groupedSnapshot = `{
  "symbols": ["SPY"],
  "underlying": {"bid": 99.5, "ask": 100.5, "last": 99.0},
  "chains": {
    "SPY": {
      "2025-02-21": [
        {"symbol": "SPY250221C00105000", "option_type": "call", "expiration_date": "2025-02-21",
         "strike": 105, "bid": 2.0, "ask": 2.4, "volume": 40, "open_interest": 800,
         "greeks": {"delta": 0.35, "gamma": 0.02, "theta": -0.04, "vega": 0.12, "rho": 0.01, "mid_iv": 0.21}}
      ],
      "2025-01-17": [
        {"symbol": "SPY250117C00105000", "option_type": "call", "expiration_date": "2025-01-17",
         "strike": 105, "bid": 0.9, "ask": 1.1, "volume": 120, "open_interest": 1500,
         "greeks": {"delta": 0.3, "theta": -0.06, "vega": 0.08, "mid_iv": 0, "bid_iv": 0.19}},
        {"symbol": "SPY250117P00095000", "option_type": "put", "expiration_date": "2025-01-17",
         "strike": 95, "bid": null, "ask": null, "last": 0.75, "volume": null, "open_interest": 300,
         "greeks": null}
      ]
    }
  }
}`

func TestParse_Grouped(t *testing.T) {
	chain, err := Parse(strings.NewReader(groupedSnapshot), asOf)
	require.NoError(t, err)

	assert.Equal(t, "SPY", chain.Symbol)
	require.NotNil(t, chain.Spot)
	assert.InDelta(t, 100.0, *chain.Spot, 1e-9)
	assert.Equal(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), chain.AsOf)

	require.Len(t, chain.Options, 3)
	// Grouped expiries come out in ascending date order.
	assert.Equal(t, "2025-01-17", chain.Options[0].Expiry)
	assert.Equal(t, "2025-01-17", chain.Options[1].Expiry)
	assert.Equal(t, "2025-02-21", chain.Options[2].Expiry)

	c := chain.Options[0]
	assert.Equal(t, models.Call, c.Side)
	assert.Equal(t, 105.0, c.Strike)
	assert.InDelta(t, 1.0, c.Mid, 1e-9)
	assert.InDelta(t, 0.19, c.IV, 1e-9, "bid_iv is used when mid_iv is zero")
	assert.Equal(t, int64(120), c.Volume)
	assert.Equal(t, int64(1500), c.OpenInterest)
	assert.Equal(t, 15, c.DaysToExpiry)
	assert.InDelta(t, -0.06, c.Greeks.Theta, 1e-9)
	require.NotNil(t, c.Bid)
	assert.InDelta(t, 0.9, *c.Bid, 1e-9)

	p := chain.Options[1]
	assert.Equal(t, models.Put, p.Side)
	assert.InDelta(t, 0.75, p.Mid, 1e-9, "last is used without a quote")
	assert.Zero(t, p.IV)
	assert.Zero(t, p.Volume)
	assert.Nil(t, p.Bid)
	assert.Nil(t, p.Ask)

	assert.Equal(t, 50, chain.Options[2].DaysToExpiry)
	assert.InDelta(t, 0.21, chain.Options[2].IV, 1e-9)
}

func TestParse_FlatRows(t *testing.T) {
	doc := `{
	  "symbols": ["QQQ"],
	  "underlying": {"last": 400.25},
	  "chains": {"QQQ": [
	    {"option_type": "put", "expiration_date": "2025-01-10", "strike": 390, "bid": 1, "ask": 2},
	    {"option_type": "call", "expiration_date": "2025-01-03", "strike": 410, "bid": 0.5, "ask": 0.7}
	  ]}
	}`
	chain, err := Parse(strings.NewReader(doc), asOf)
	require.NoError(t, err)

	require.NotNil(t, chain.Spot)
	assert.Equal(t, 400.25, *chain.Spot)
	require.Len(t, chain.Options, 2)
	assert.Equal(t, "2025-01-10", chain.Options[0].Expiry, "flat rows keep document order")
	assert.Equal(t, 8, chain.Options[0].DaysToExpiry)
	assert.Equal(t, 1, chain.Options[1].DaysToExpiry)
}

func TestParse_NoSpot(t *testing.T) {
	doc := `{"symbols": ["SPY"], "underlying": {"bid": 1.0}, "chains": {}}`
	chain, err := Parse(strings.NewReader(doc), asOf)
	require.NoError(t, err)
	assert.Nil(t, chain.Spot)
	assert.Empty(t, chain.Options)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"malformed json", `{"symbols": [`},
		{"no symbols", `{"symbols": [], "chains": {}}`},
		{"bad strike", `{"symbols": ["SPY"], "chains": {"SPY": [{"option_type": "call", "expiration_date": "2025-01-17", "strike": "abc"}]}}`},
		{"zero strike", `{"symbols": ["SPY"], "chains": {"SPY": [{"option_type": "call", "expiration_date": "2025-01-17", "strike": 0}]}}`},
		{"bad side", `{"symbols": ["SPY"], "chains": {"SPY": [{"option_type": "future", "expiration_date": "2025-01-17", "strike": 100}]}}`},
		{"bad expiry", `{"symbols": ["SPY"], "chains": {"SPY": [{"option_type": "put", "expiration_date": "17/01/2025", "strike": 100}]}}`},
		{"bad chain shape", `{"symbols": ["SPY"], "chains": {"SPY": 42}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc), asOf)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrSnapshotInvalid))

			var de *errors.DataError
			assert.True(t, errors.As(err, &de))
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spy.json")
	require.NoError(t, os.WriteFile(path, []byte(groupedSnapshot), 0644))

	chain, err := Load(path, asOf)
	require.NoError(t, err)
	assert.Len(t, chain.Options, 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"), asOf)
	assert.Error(t, err)
}
