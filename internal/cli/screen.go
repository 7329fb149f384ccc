package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"option-screener/internal/errors"
	"option-screener/internal/logging"
	"option-screener/internal/models"
	"option-screener/internal/screener"
	"option-screener/internal/snapshot"
	"option-screener/internal/store"
	"option-screener/internal/strategy"
)

func newScreenCmd(app *App) *cobra.Command {
	var (
		snapshotPath string
		asOf         string
		rankKey      string
		topN         int
		reverse      bool
		save         bool
		workers      int
		direction    string
		kinds        []string
	)

	cmd := &cobra.Command{
		Use:   "screen",
		Short: "Screen option strategies from a chain snapshot",
		Long: `Load an option chain snapshot, generate the strategy kinds enabled in
strategy_filter, keep those passing config_filter, and print the top ranked.

Flags override the matching configuration keys for this run only.`,
		Example: `  screener screen --snapshot spy.json
  screener screen -s spy.json --kinds ic,strangle --direction short --rank rr --top 20
  screener screen -s spy.json --as-of 2025-10-01 --save -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}

			var day time.Time
			if asOf != "" {
				day, err = time.Parse("2006-01-02", asOf)
				if err != nil {
					return errors.NewValidationError("as-of", asOf, "expected YYYY-MM-DD")
				}
			}

			chain, err := snapshot.Load(snapshotPath, day)
			if err != nil {
				return err
			}
			logging.LogSnapshot(app.Logger, snapshotPath, chain.Symbol, len(chain.Options), chain.Spot)

			sf := cfg.Strategies()
			if cmd.Flags().Changed("kinds") {
				sf, err = parseKinds(kinds)
				if err != nil {
					return err
				}
			}
			cf, err := cfg.Filter()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("direction") {
				d, err := models.ParseDirection(direction)
				if err != nil {
					return errors.NewValidationError("direction", direction, err.Error())
				}
				cf.Direction = &d
			}

			req := screener.Request{
				Chain:          chain,
				StrategyFilter: sf,
				ConfigFilter:   cf,
				RankKey:        screener.RankKey(cfg.Ranking.Key),
				Reverse:        cfg.Ranking.Reverse,
				TopN:           cfg.Ranking.TopN,
			}
			if cmd.Flags().Changed("rank") {
				req.RankKey = screener.RankKey(rankKey)
			}
			if !req.RankKey.Valid() {
				return errors.NewValidationError("rank", req.RankKey, "must be one of rr, gain, loss, cost")
			}
			if cmd.Flags().Changed("top") {
				if topN < 0 {
					return errors.NewValidationError("top", topN, "must be non-negative")
				}
				req.TopN = topN
			}
			if cmd.Flags().Changed("reverse") {
				req.Reverse = reverse
			}
			n := cfg.Engine.Workers
			if cmd.Flags().Changed("workers") {
				n = workers
			}

			if !sf.Any() && !output.IsStructured() {
				output.Warning("No strategy kinds enabled; nothing to generate")
			}

			res, err := screener.New(app.Logger, n).Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			run := store.NewRun(res)

			if save || cfg.Store.Enabled {
				st, err := app.OpenStore()
				if err != nil {
					return err
				}
				defer app.Close()
				if err := st.SaveRun(cmd.Context(), run); err != nil {
					return err
				}
				app.Logger.Debug().Str("run_id", run.ID).Msg("Run saved")
			}

			if output.IsStructured() {
				return output.Encode(run)
			}
			return printRun(output, run)
		},
	}

	cmd.Flags().StringVarP(&snapshotPath, "snapshot", "s", "", "option chain snapshot (Tradier JSON)")
	cmd.Flags().StringVar(&asOf, "as-of", "", "date days to expiry are counted from (default: today)")
	cmd.Flags().StringVar(&rankKey, "rank", "rr", "rank key: rr, gain, loss or cost")
	cmd.Flags().IntVarP(&topN, "top", "n", screener.DefaultTopN, "number of strategies to return")
	cmd.Flags().BoolVar(&reverse, "reverse", true, "sort descending (loss always sorts ascending)")
	cmd.Flags().BoolVar(&save, "save", false, "save the run to the history store")
	cmd.Flags().IntVarP(&workers, "workers", "w", 1, "expiry chains expanded concurrently")
	cmd.Flags().StringVarP(&direction, "direction", "d", "", "LONG or SHORT")
	cmd.Flags().StringSliceVarP(&kinds, "kinds", "k", nil, "strategy kinds: single, ic, straddle, strangle")
	_ = cmd.MarkFlagRequired("snapshot")

	return cmd
}

// parseKinds builds a strategy filter from kind names.
func parseKinds(names []string) (models.StrategyFilter, error) {
	var sf models.StrategyFilter
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "single", "single_leg", "single_calls":
			sf.SingleLegs = true
		case "ic", "iron_condor", "iron_condors":
			sf.IronCondors = true
		case "straddle", "straddles":
			sf.Straddles = true
		case "strangle", "strangles":
			sf.Strangles = true
		case "all":
			sf = models.StrategyFilter{SingleLegs: true, IronCondors: true, Straddles: true, Strangles: true}
		default:
			return sf, errors.NewValidationError("kinds", name, "unknown strategy kind")
		}
	}
	return sf, nil
}

// printRun renders a run header, the ranked strategies and the filter
// accounting.
func printRun(output *Output, run *store.Run) error {
	output.Bold("%s  spot %s  rank %s (top %d)", run.Symbol, FormatCurrency(run.Spot), run.RankKey, run.TopN)
	output.Dim("run %s  %s  %s", run.ID, FormatDateTime(run.CreatedAt), FormatDuration(run.Elapsed))
	output.Println()

	if len(run.Results) == 0 {
		output.Warning("No strategies passed the filters")
	} else if err := printStrategies(output, run.Results); err != nil {
		return err
	}
	output.Println()
	printStats(output, run.Stats)
	return nil
}

// printStrategies renders the ranked strategy table.
func printStrategies(output *Output, results []strategy.Summary) error {
	table := output.Table("#", "Strategy", "Cost", "Max Gain", "Max Loss", "RR", "Delta", "Theta", "Vega", "IV")
	for i, s := range results {
		if err := table.Append(
			fmt.Sprintf("%d", i+1),
			s.Description,
			FormatMetric(float64(s.Cost)),
			FormatMetric(float64(s.MaxGain)),
			FormatMetric(float64(s.MaxLoss)),
			FormatMetric(float64(s.RiskReward)),
			FormatMetric(float64(s.NetDelta)),
			FormatMetric(float64(s.NetTheta)),
			FormatMetric(float64(s.NetVega)),
			FormatIV(s.AvgIV),
		); err != nil {
			return err
		}
	}
	return table.Render()
}

// printStats renders the universe sizes and per-kind rejection counts.
func printStats(output *Output, stats screener.Stats) {
	output.Printf("Options: %d in snapshot, %d after filter\n", stats.UniverseSize, stats.FilteredSize)
	for _, k := range stats.Kinds {
		line := fmt.Sprintf("  %-12s generated %-6d accepted %-6d", k.Kind.Label(), k.Generated, k.Accepted)
		if len(k.Rejected) > 0 {
			rules := make([]string, 0, len(k.Rejected))
			for rule := range k.Rejected {
				rules = append(rules, rule)
			}
			sort.Strings(rules)
			parts := make([]string, len(rules))
			for i, rule := range rules {
				parts[i] = fmt.Sprintf("%s=%d", rule, k.Rejected[rule])
			}
			line += " rejected " + strings.Join(parts, " ")
		}
		output.Printf("%s\n", line)
	}
}
