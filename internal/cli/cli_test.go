package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"option-screener/internal/errors"
	"option-screener/internal/models"
	"option-screener/internal/store"
	"option-screener/internal/strategy"
)

const cliSnapshot = `{
  "symbols": ["SPY"],
  "underlying": {"bid": 99.9, "ask": 100.1},
  "chains": {"SPY": {"2025-01-17": [
    {"option_type": "call", "expiration_date": "2025-01-17", "strike": 95,  "bid": 5.9, "ask": 6.1, "volume": 50, "open_interest": 900, "greeks": {"delta": 0.8, "mid_iv": 0.2}},
    {"option_type": "put",  "expiration_date": "2025-01-17", "strike": 95,  "bid": 0.9, "ask": 1.1, "volume": 50, "open_interest": 900, "greeks": {"delta": -0.2, "mid_iv": 0.22}},
    {"option_type": "call", "expiration_date": "2025-01-17", "strike": 100, "bid": 2.9, "ask": 3.1, "volume": 80, "open_interest": 1500, "greeks": {"delta": 0.5, "mid_iv": 0.19}},
    {"option_type": "put",  "expiration_date": "2025-01-17", "strike": 100, "bid": 2.7, "ask": 2.9, "volume": 80, "open_interest": 1500, "greeks": {"delta": -0.5, "mid_iv": 0.2}},
    {"option_type": "call", "expiration_date": "2025-01-17", "strike": 105, "bid": 1.1, "ask": 1.3, "volume": 40, "open_interest": 700, "greeks": {"delta": 0.25, "mid_iv": 0.18}},
    {"option_type": "put",  "expiration_date": "2025-01-17", "strike": 105, "bid": 5.9, "ask": 6.3, "volume": 40, "open_interest": 700, "greeks": {"delta": -0.75, "mid_iv": 0.21}}
  ]}}
}`

type fixture struct {
	config   string
	snapshot string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()

	cfg := map[string]interface{}{
		"strategy_filter": map[string]bool{"straddles": true},
		"config_filter":   map[string]interface{}{"direction": "short", "min_oi": 100},
		"ranking":         map[string]interface{}{"key": "gain", "top_n": 10, "reverse": true},
		"log":             map[string]interface{}{"console": false, "file": false},
		"store":           map[string]interface{}{"path": filepath.Join(dir, "runs.db")},
	}
	body, err := json.Marshal(cfg)
	require.NoError(t, err)

	f := fixture{
		config:   filepath.Join(dir, "screener.json"),
		snapshot: filepath.Join(dir, "spy.json"),
	}
	require.NoError(t, os.WriteFile(f.config, body, 0644))
	require.NoError(t, os.WriteFile(f.snapshot, []byte(cliSnapshot), 0644))
	return f
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd(zerolog.Nop())
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestScreenCommand_JSON(t *testing.T) {
	f := newFixture(t)

	out, err := execute(t, "--config", f.config, "-o", "json", "screen", "-s", f.snapshot, "--as-of", "2025-01-02")
	require.NoError(t, err)

	var run store.Run
	require.NoError(t, json.Unmarshal([]byte(out), &run))
	assert.Equal(t, "SPY", run.Symbol)
	assert.InDelta(t, 100.0, run.Spot, 1e-9)
	assert.Equal(t, "gain", run.RankKey)
	require.Len(t, run.Results, 3)
	for i, s := range run.Results {
		assert.Equal(t, strategy.KindStraddle, s.Kind)
		assert.Equal(t, models.Short, s.Direction)
		if i > 0 {
			assert.GreaterOrEqual(t, float64(run.Results[i-1].MaxGain), float64(s.MaxGain))
		}
	}
}

func TestScreenCommand_FlagOverrides(t *testing.T) {
	f := newFixture(t)

	out, err := execute(t, "--config", f.config, "-o", "json", "screen", "-s", f.snapshot,
		"--as-of", "2025-01-02", "--kinds", "strangle", "--direction", "long", "--rank", "cost", "--reverse=false", "--top", "1")
	require.NoError(t, err)

	var run store.Run
	require.NoError(t, json.Unmarshal([]byte(out), &run))
	assert.Equal(t, "cost", run.RankKey)
	assert.False(t, run.Reverse)
	require.Len(t, run.Results, 1)
	assert.Equal(t, strategy.KindStrangle, run.Results[0].Kind)
	assert.Equal(t, models.Long, run.Results[0].Direction)
	assert.Equal(t, "Strangle LONG C:105 P:95 exp 2025-01-17", run.Results[0].Description)
}

func TestScreenCommand_Table(t *testing.T) {
	f := newFixture(t)

	out, err := execute(t, "--config", f.config, "screen", "-s", f.snapshot, "--as-of", "2025-01-02")
	require.NoError(t, err)
	assert.Contains(t, out, "SPY")
	assert.Contains(t, out, "+inf", "short straddle loss is unbounded")
	assert.Contains(t, out, "Options: 6 in snapshot, 6 after filter")
}

func TestScreenCommand_Errors(t *testing.T) {
	f := newFixture(t)

	_, err := execute(t, "--config", f.config, "screen", "-s", f.snapshot, "--rank", "theta")
	assert.True(t, errors.Is(err, errors.ErrConfigInvalid))

	_, err = execute(t, "--config", f.config, "screen", "-s", f.snapshot, "--kinds", "butterfly")
	assert.True(t, errors.Is(err, errors.ErrConfigInvalid))

	_, err = execute(t, "--config", f.config, "screen", "-s", f.snapshot, "--as-of", "yesterday")
	assert.True(t, errors.Is(err, errors.ErrConfigInvalid))

	_, err = execute(t, "--config", f.config, "-o", "xml", "version")
	assert.Error(t, err)

	_, err = execute(t, "--config", f.config, "screen")
	assert.Error(t, err, "snapshot flag is required")
}

func TestHistoryCommands(t *testing.T) {
	f := newFixture(t)

	out, err := execute(t, "--config", f.config, "-o", "json", "screen", "-s", f.snapshot, "--as-of", "2025-01-02", "--save")
	require.NoError(t, err)
	var saved store.Run
	require.NoError(t, json.Unmarshal([]byte(out), &saved))

	out, err = execute(t, "--config", f.config, "-o", "json", "history", "list")
	require.NoError(t, err)
	var runs []store.Run
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, saved.ID, runs[0].ID)

	out, err = execute(t, "--config", f.config, "-o", "yaml", "history", "show", saved.ID)
	require.NoError(t, err)
	assert.Contains(t, out, saved.ID)
	assert.Regexp(t, `max_loss: '?\+Inf'?`, out)

	out, err = execute(t, "--config", f.config, "history", "list", "--symbol", "QQQ")
	require.NoError(t, err)
	assert.Contains(t, out, "No saved runs")

	_, err = execute(t, "--config", f.config, "history", "show", "missing")
	assert.True(t, errors.Is(err, errors.ErrRunNotFound))
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	out, err := execute(t, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, path)

	_, err = execute(t, "--config", path, "config", "validate")
	require.NoError(t, err)

	out, err = execute(t, "--config", path, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, path, strings.TrimSpace(out))

	_, err = execute(t, "--config", path, "config", "init")
	assert.Error(t, err, "init never overwrites")
}

func TestParseKinds(t *testing.T) {
	sf, err := parseKinds([]string{"IC", " straddle "})
	require.NoError(t, err)
	assert.Equal(t, models.StrategyFilter{IronCondors: true, Straddles: true}, sf)

	sf, err = parseKinds([]string{"all"})
	require.NoError(t, err)
	assert.Equal(t, models.StrategyFilter{SingleLegs: true, IronCondors: true, Straddles: true, Strangles: true}, sf)

	_, err = parseKinds([]string{"single", "calendar"})
	var ve *errors.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "kinds", ve.Field)
}

// failingStore rejects every save and records whether it was closed.
type failingStore struct {
	closed bool
}

func (s *failingStore) SaveRun(ctx context.Context, run *store.Run) error {
	return fmt.Errorf("disk full: %w", errors.ErrDatabaseError)
}

func (s *failingStore) GetRuns(ctx context.Context, filter store.RunFilter) ([]store.Run, error) {
	return nil, nil
}

func (s *failingStore) GetRun(ctx context.Context, id string) (*store.Run, error) {
	return nil, errors.ErrRunNotFound
}

func (s *failingStore) Close() error {
	s.closed = true
	return nil
}

func TestScreenCommand_SaveFailureClosesStore(t *testing.T) {
	f := newFixture(t)
	st := &failingStore{}
	app := &App{Logger: zerolog.Nop(), Store: st}

	root := newRootCmd(app)
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--config", f.config, "screen", "-s", f.snapshot, "--as-of", "2025-01-02", "--save"})
	err := root.ExecuteContext(context.Background())

	assert.True(t, errors.Is(err, errors.ErrDatabaseError))
	assert.True(t, st.closed, "store is closed when the command fails")
	assert.Nil(t, app.Store)
}

func TestHistoryShow_ErrorClosesStore(t *testing.T) {
	f := newFixture(t)
	st := &failingStore{}
	app := &App{Logger: zerolog.Nop(), Store: st}

	root := newRootCmd(app)
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--config", f.config, "history", "show", "missing"})
	err := root.ExecuteContext(context.Background())

	assert.True(t, errors.Is(err, errors.ErrRunNotFound))
	assert.True(t, st.closed)
}
