package screener

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"option-screener/internal/errors"
	"option-screener/internal/logging"
	"option-screener/internal/models"
)

// DefaultTopN is the result size used when a request leaves TopN unset.
const DefaultTopN = 10

// Request describes one screening run.
type Request struct {
	Chain          models.OptionChain
	StrategyFilter models.StrategyFilter
	ConfigFilter   models.ConfigFilter
	RankKey        RankKey
	Reverse        bool
	TopN           int
}

// Result is the ranked, size-bounded output of a run.
type Result struct {
	ID         string
	CreatedAt  time.Time
	Symbol     string
	Spot       float64
	RankKey    RankKey
	Reverse    bool
	TopN       int
	Stats      Stats
	Strategies List
	Elapsed    time.Duration
}

// Screener runs the full pipeline: option filter, generators, range filter,
// ranking and truncation.
type Screener struct {
	logger  zerolog.Logger
	workers int
}

// New creates a screener. workers bounds per-expiry generation concurrency.
func New(logger zerolog.Logger, workers int) *Screener {
	if workers < 1 {
		workers = 1
	}
	return &Screener{logger: logger, workers: workers}
}

// Run executes one screening pass. The pipeline is a pure computation; ctx
// is only consulted before work starts.
func (s *Screener) Run(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Chain.Spot == nil {
		return nil, errors.NewPreconditionError("screener", "snapshot has no usable spot price", errors.ErrSpotUndefined)
	}
	if invalid := req.ConfigFilter.InvertedRanges(); len(invalid) > 0 {
		return nil, errors.NewValidationError(invalid[0], "low > high", "inverted range never matches")
	}

	start := time.Now()
	id := uuid.NewString()
	logger := logging.WithRunID(s.logger, id)

	factory := NewFactory(req.Chain, s.workers, logger)
	all, stats, err := factory.Generate(req.StrategyFilter, req.ConfigFilter)
	if err != nil {
		return nil, err
	}

	topN := req.TopN
	if topN == 0 {
		topN = DefaultTopN
	}
	ranked := all.Rank(req.RankKey, req.Reverse).Top(topN)

	result := &Result{
		ID:         id,
		CreatedAt:  start.UTC(),
		Symbol:     req.Chain.Symbol,
		Spot:       *req.Chain.Spot,
		RankKey:    req.RankKey,
		Reverse:    req.Reverse,
		TopN:       topN,
		Stats:      stats,
		Strategies: ranked,
		Elapsed:    time.Since(start),
	}

	logging.LogRun(logger, result.Symbol, string(result.RankKey), stats.Accepted(), len(ranked), result.Elapsed)
	return result, nil
}
