package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"option-screener/internal/config"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "Create, validate and view the screening configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a commented configuration template",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			path := app.ConfigPath
			if path == "" {
				path = config.DefaultConfigPath()
			}
			if err := config.WriteTemplate(path); err != nil {
				return err
			}
			if output.IsStructured() {
				return output.Encode(map[string]string{"path": path})
			}
			output.Success("✓ Configuration template written to %s", path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			cfg, err := app.LoadConfig()
			if err != nil {
				if !output.IsStructured() {
					output.Error("Configuration validation failed: %v", err)
				}
				return err
			}
			if output.IsStructured() {
				return output.Encode(map[string]interface{}{"valid": true, "path": cfg.Path()})
			}
			output.Success("✓ Configuration is valid (%s)", cfg.Path())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			if output.IsStructured() {
				return output.Encode(cfg)
			}
			showConfig(output, cfg)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path in use",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			path := app.ConfigPath
			if path == "" {
				path = config.DefaultConfigPath()
			}
			output.Println(path)
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	sf := cfg.StrategyFilter
	output.Bold("Strategies")
	output.Printf("  Single legs:     %v\n", sf.SingleCalls)
	output.Printf("  Iron condors:    %v\n", sf.IronCondors)
	output.Printf("  Straddles:       %v\n", sf.Straddles)
	output.Printf("  Strangles:       %v\n", sf.Strangles)
	output.Println()

	cf := cfg.ConfigFilter
	output.Bold("Option Filter")
	output.Printf("  Min volume:      %s\n", optional(cf.MinVolume))
	output.Printf("  Min OI:          %s\n", optional(cf.MinOI))
	output.Printf("  Min price:       %s\n", optional(cf.MinPrice))
	output.Printf("  Expiry:          %s\n", optional(cf.Expiry))
	output.Printf("  Days to expiry:  %s\n", formatIntRange(cf.DaysToExpiryRange))
	output.Printf("  Volume ratio:    %s\n", formatRange(cf.VolumeRatioRange))
	output.Printf("  Max spread:      %s\n", optional(cf.MaxBidAskSpread))
	output.Println()

	output.Bold("Strategy Filter")
	output.Printf("  Direction:       %s\n", optional(cf.Direction))
	output.Printf("  Debit:           %s\n", formatRange(cf.DebitRange))
	output.Printf("  Credit:          %s\n", formatRange(cf.CreditRange))
	output.Printf("  Potential gain:  %s\n", formatRange(cf.PotentialGainRange))
	output.Printf("  Potential loss:  %s\n", formatRange(cf.PotentialLossRange))
	output.Printf("  Risk/reward:     %s\n", formatRange(cf.RRRange))
	output.Printf("  Net delta:       %s\n", formatRange(cf.NetDeltaRange))
	output.Printf("  Net theta:       %s\n", formatRange(cf.NetThetaRange))
	output.Printf("  Net vega:        %s\n", formatRange(cf.NetVegaRange))
	output.Printf("  IV:              %s\n", formatRange(cf.IVRange))
	output.Println()

	output.Bold("Ranking")
	output.Printf("  Key:             %s\n", cfg.Ranking.Key)
	output.Printf("  Top N:           %d\n", cfg.Ranking.TopN)
	output.Printf("  Reverse:         %v\n", cfg.Ranking.Reverse)
	output.Printf("  Workers:         %d\n", cfg.Engine.Workers)
	output.Println()

	output.Bold("Storage")
	output.Printf("  Enabled:         %v\n", cfg.Store.Enabled)
	output.Printf("  Path:            %s\n", cfg.Store.Path)
	output.Printf("  Log level:       %s\n", cfg.Log.Level)
}

func optional[T any](v *T) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}

func formatRange(r []float64) string {
	if r == nil {
		return "-"
	}
	parts := make([]string, len(r))
	for i, v := range r {
		parts[i] = FormatMetric(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatIntRange(r []int) string {
	if r == nil {
		return "-"
	}
	return strings.ReplaceAll(fmt.Sprint(r), " ", ", ")
}
