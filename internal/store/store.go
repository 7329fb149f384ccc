// Package store provides persistence for screening runs.
package store

import (
	"context"
	"time"

	"option-screener/internal/screener"
	"option-screener/internal/strategy"
)

// RunStore defines the interface for screening run persistence.
type RunStore interface {
	SaveRun(ctx context.Context, run *Run) error
	GetRuns(ctx context.Context, filter RunFilter) ([]Run, error)
	GetRun(ctx context.Context, id string) (*Run, error)

	Close() error
}

// Run is a saved screening run: the request parameters, the rejection
// accounting and the returned strategies.
type Run struct {
	ID        string             `json:"id" yaml:"id"`
	CreatedAt time.Time          `json:"created_at" yaml:"created_at"`
	Symbol    string             `json:"symbol" yaml:"symbol"`
	Spot      float64            `json:"spot" yaml:"spot"`
	RankKey   string             `json:"rank_key" yaml:"rank_key"`
	Reverse   bool               `json:"reverse" yaml:"reverse"`
	TopN      int                `json:"top_n" yaml:"top_n"`
	Elapsed   time.Duration      `json:"elapsed" yaml:"elapsed"`
	Stats     screener.Stats     `json:"stats" yaml:"stats"`
	Results   []strategy.Summary `json:"results" yaml:"results"`
}

// Accepted returns how many strategies passed every filter in the run.
func (r Run) Accepted() int {
	return r.Stats.Accepted()
}

// RunFilter represents filters for listing runs.
type RunFilter struct {
	Symbol string
	Since  time.Time
	Limit  int
}

// NewRun snapshots a screener result into a storable record.
func NewRun(res *screener.Result) *Run {
	return &Run{
		ID:        res.ID,
		CreatedAt: res.CreatedAt,
		Symbol:    res.Symbol,
		Spot:      res.Spot,
		RankKey:   string(res.RankKey),
		Reverse:   res.Reverse,
		TopN:      res.TopN,
		Elapsed:   res.Elapsed,
		Stats:     res.Stats,
		Results:   res.Strategies.Summaries(),
	}
}
