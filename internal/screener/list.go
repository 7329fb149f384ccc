package screener

import (
	"sort"

	"option-screener/internal/strategy"
)

// RankKey selects the metric List.Rank sorts by.
type RankKey string

const (
	RankRiskReward RankKey = "rr"
	RankGain       RankKey = "gain"
	RankLoss       RankKey = "loss"
	RankCost       RankKey = "cost"
)

// Valid reports whether k is one of the known rank keys.
func (k RankKey) Valid() bool {
	switch k {
	case RankRiskReward, RankGain, RankLoss, RankCost:
		return true
	}
	return false
}

func (k RankKey) metric() func(strategy.Strategy) float64 {
	switch k {
	case RankRiskReward:
		return strategy.Strategy.RiskReward
	case RankGain:
		return strategy.Strategy.MaxGain
	case RankLoss:
		return strategy.Strategy.MaxLoss
	case RankCost:
		return strategy.Strategy.Cost
	}
	return nil
}

// List is an ordered set of candidate strategies. Rank and Top never modify
// the receiver.
type List []strategy.Strategy

// Rank returns a stably sorted copy. reverse sorts descending, except for
// RankLoss which is always ascending. An unknown key returns an unsorted copy.
func (l List) Rank(key RankKey, reverse bool) List {
	out := make(List, len(l))
	copy(out, l)

	metric := key.metric()
	if metric == nil || len(out) < 2 {
		return out
	}
	if key == RankLoss {
		reverse = false
	}

	// Evaluate each metric once; sort a permutation alongside it.
	values := make([]float64, len(out))
	for i, s := range out {
		values[i] = metric(s)
	}
	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		if reverse {
			return values[idx[a]] > values[idx[b]]
		}
		return values[idx[a]] < values[idx[b]]
	})

	ranked := make(List, len(out))
	for i, j := range idx {
		ranked[i] = out[j]
	}
	return ranked
}

// Top returns a copy of the first min(n, len) strategies.
func (l List) Top(n int) List {
	if n < 0 {
		n = 0
	}
	n = min(n, len(l))
	out := make(List, n)
	copy(out, l[:n])
	return out
}

// Summaries evaluates every strategy into its serializable view.
func (l List) Summaries() []strategy.Summary {
	out := make([]strategy.Summary, len(l))
	for i, s := range l {
		out[i] = s.Summarize()
	}
	return out
}

// CountByKind returns how many strategies of each kind the list holds.
func (l List) CountByKind() map[strategy.Kind]int {
	counts := make(map[strategy.Kind]int)
	for _, s := range l {
		counts[s.Kind()]++
	}
	return counts
}
