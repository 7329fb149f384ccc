package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"option-screener/internal/errors"
	"option-screener/internal/models"
	"option-screener/internal/screener"
	"option-screener/internal/strategy"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "db", "screener.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func option(side models.OptionSide, strike, mid, iv float64) models.Option {
	return models.Option{Symbol: "SPY", Expiry: "2025-01-17", Strike: strike, Side: side, Mid: mid, IV: iv}
}

func sampleRun(symbol string, created time.Time) *Run {
	straddle := strategy.NewStraddle(option(models.Call, 100, 2.5, 0.2), option(models.Put, 100, 2.0, 0), models.Short)
	condor := strategy.NewIronCondor(
		option(models.Call, 105, 1.2, 0.18), option(models.Call, 110, 0.4, 0.17),
		option(models.Put, 95, 1.1, 0.22), option(models.Put, 90, 0.3, 0.25),
		models.Short,
	)

	return &Run{
		ID:        uuid.New().String(),
		CreatedAt: created,
		Symbol:    symbol,
		Spot:      100.25,
		RankKey:   "rr",
		Reverse:   true,
		TopN:      10,
		Elapsed:   1500 * time.Microsecond,
		Stats: screener.Stats{
			UniverseSize: 10,
			FilteredSize: 8,
			Kinds: []screener.KindStats{
				{Kind: strategy.KindIronCondor, Generated: 4, Accepted: 1, Rejected: map[string]int{screener.RuleRiskReward: 3}},
				{Kind: strategy.KindStraddle, Generated: 5, Accepted: 1, Rejected: map[string]int{screener.RulePotentialLoss: 4}},
			},
		},
		Results: []strategy.Summary{condor.Summarize(), straddle.Summarize()},
	}
}

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := sampleRun("SPY", time.Date(2025, 1, 2, 15, 30, 0, 0, time.UTC))
	require.NoError(t, s.SaveRun(ctx, run))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)

	assert.Equal(t, run.ID, got.ID)
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, run.Symbol, got.Symbol)
	assert.Equal(t, run.Spot, got.Spot)
	assert.Equal(t, run.RankKey, got.RankKey)
	assert.True(t, got.Reverse)
	assert.Equal(t, run.TopN, got.TopN)
	assert.Equal(t, run.Elapsed, got.Elapsed)
	assert.Equal(t, run.Stats, got.Stats)
	assert.Equal(t, 2, got.Accepted())

	require.Len(t, got.Results, 2)
	assert.Equal(t, run.Results[0], got.Results[0])

	straddle := got.Results[1]
	assert.Equal(t, strategy.KindStraddle, straddle.Kind)
	assert.True(t, math.IsInf(float64(straddle.MaxLoss), 1), "+Inf survives storage")
	assert.InDelta(t, 450.0, float64(straddle.Credit), 1e-9)
	require.NotNil(t, straddle.AvgIV)
	assert.InDelta(t, 0.2, *straddle.AvgIV, 1e-9)
}

func TestSQLiteStore_SaveReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := sampleRun("SPY", time.Now().UTC())
	require.NoError(t, s.SaveRun(ctx, run))

	run.TopN = 3
	require.NoError(t, s.SaveRun(ctx, run))

	runs, err := s.GetRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 3, runs[0].TopN)
}

func TestSQLiteStore_GetRunsFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, sym := range []string{"SPY", "QQQ", "SPY", "IWM", "SPY"} {
		require.NoError(t, s.SaveRun(ctx, sampleRun(sym, base.Add(time.Duration(i)*time.Hour))))
	}

	all, err := s.GetRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.True(t, all[i-1].CreatedAt.After(all[i].CreatedAt), "newest first")
	}

	spy, err := s.GetRuns(ctx, RunFilter{Symbol: "SPY"})
	require.NoError(t, err)
	assert.Len(t, spy, 3)
	for _, r := range spy {
		assert.Equal(t, "SPY", r.Symbol)
	}

	limited, err := s.GetRuns(ctx, RunFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "SPY", limited[0].Symbol)
	assert.Equal(t, "IWM", limited[1].Symbol)

	recent, err := s.GetRuns(ctx, RunFilter{Since: base.Add(3 * time.Hour)})
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestSQLiteStore_RunNotFound(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetRun(context.Background(), "missing")
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, errors.ErrRunNotFound))
}

func TestNewRun(t *testing.T) {
	res := &screener.Result{
		ID:        "abc",
		CreatedAt: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		Symbol:    "SPY",
		Spot:      100,
		RankKey:   screener.RankCost,
		TopN:      5,
		Strategies: screener.List{
			strategy.NewStraddle(option(models.Call, 100, 2.5, 0), option(models.Put, 100, 2.0, 0), models.Long),
		},
	}

	run := NewRun(res)
	assert.Equal(t, "abc", run.ID)
	assert.Equal(t, "cost", run.RankKey)
	assert.False(t, run.Reverse)
	require.Len(t, run.Results, 1)
	assert.Equal(t, strategy.Metric(450), run.Results[0].Debit)
}

func TestSQLiteStore_SaveErrorKeepsDriverError(t *testing.T) {
	s := newTestStore(t)
	_, err := s.db.Exec("DROP TABLE screen_runs")
	require.NoError(t, err)

	err = s.SaveRun(context.Background(), sampleRun("SPY", time.Now().UTC()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDatabaseError))

	var driverErr sqlite3.Error
	require.True(t, errors.As(err, &driverErr), "driver error stays reachable")
	assert.Equal(t, sqlite3.ErrError, driverErr.Code)
}
