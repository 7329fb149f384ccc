package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"option-screener/internal/store"
)

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Saved screening runs",
		Long:  "List and inspect screening runs saved with 'screen --save' or store.enabled.",
	}

	cmd.AddCommand(newHistoryListCmd(app))
	cmd.AddCommand(newHistoryShowCmd(app))

	return cmd
}

func newHistoryListCmd(app *App) *cobra.Command {
	var (
		symbol string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			st, err := app.OpenStore()
			if err != nil {
				return err
			}
			defer app.Close()

			runs, err := st.GetRuns(cmd.Context(), store.RunFilter{Symbol: symbol, Limit: limit})
			if err != nil {
				return err
			}

			if output.IsStructured() {
				if runs == nil {
					runs = []store.Run{}
				}
				return output.Encode(runs)
			}
			if len(runs) == 0 {
				output.Dim("No saved runs")
				return nil
			}

			table := output.Table("ID", "Created", "Symbol", "Spot", "Rank", "Top", "Accepted", "Returned")
			for _, r := range runs {
				if err := table.Append(
					ShortID(r.ID),
					FormatDateTime(r.CreatedAt),
					r.Symbol,
					FormatCurrency(r.Spot),
					r.RankKey,
					fmt.Sprintf("%d", r.TopN),
					fmt.Sprintf("%d", r.Accepted()),
					fmt.Sprintf("%d", len(r.Results)),
				); err != nil {
					return err
				}
			}
			return table.Render()
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "", "only runs for this underlying")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs (0 for all)")

	return cmd
}

func newHistoryShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			st, err := app.OpenStore()
			if err != nil {
				return err
			}
			defer app.Close()

			run, err := st.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if output.IsStructured() {
				return output.Encode(run)
			}
			return printRun(output, run)
		},
	}
}
