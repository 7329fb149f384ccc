package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Option Screener Configuration
# Omit a key to leave that constraint unset. Ranges are [low, high], inclusive.

[strategy_filter]
single_calls = false
iron_condors = true
straddles = false
strangles = false

[config_filter]
# Option-level filters
min_volume = 10
min_oi = 50
min_price = 0.05
# expiry = "2025-11-21"
days_to_expiry_range = [7, 60]
# volume_ratio_range = [0.0, 5.0]
# max_bid_ask_spread = 0.25

# Strategy-level filters
# LONG or SHORT; required by every strategy kind
direction = "SHORT"
# debit_range = [0.0, 500.0]
credit_range = [50.0, 1000.0]
# potential_gain_range = [0.0, inf]
# potential_loss_range = [0.0, 1000.0]
rr_range = [0.2, inf]
# net_delta_range = [-20.0, 20.0]
# net_theta_range = [0.0, inf]
# net_vega_range = [-50.0, 50.0]
# iv_range = [0.2, 1.5]

[ranking]
# rr, gain, loss or cost
key = "rr"
top_n = 10
# Descending order; ignored for "loss", which always sorts ascending
reverse = true

[engine]
# Expiry chains expanded concurrently
workers = 1

[log]
level = "info"
console = true
file = false

[store]
# Save every screening run to SQLite
enabled = false
# path = "~/.config/option-screener/screener.db"
`

// WriteTemplate writes a commented TOML config to path. It refuses to
// overwrite an existing file.
func WriteTemplate(path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}
