package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# NSE OI Tracker Configuration

[provider]
# Relay that serves lookup, expiries and option-chain snapshots
base_url = "http://localhost:3001"
# Per-request transport timeout
timeout = "15s"
# Symbol lookup must answer within this window
lookup_timeout = "5s"
user_agent = "NSEOITracker/1.0"
# Consecutive failures before the provider circuit opens
failure_threshold = 5
# How long the circuit stays open before probing again
breaker_timeout = "30s"

[backfill]
# First interval of the trading session (HH:MM, IST)
start = "09:15"
# Minutes between intervals
step_minutes = 15
# Pause between interval requests
request_delay = "200ms"
# Attempts per interval before it is skipped
max_attempts = 2

[store]
# History backend: sqlite, redis, memory
backend = "sqlite"
# SQLite file; defaults to history.db in the config directory
# path = "/var/lib/oi-tracker/history.db"
key = "nse_oi_history"
redis_url = "redis://localhost:6379/0"

[server]
addr = ":8080"

[log]
# debug, info, warn, error
level = "info"
console = true
file = true

[ui]
color_enabled = true
# Strikes shown on each side of ATM
strikes = 10
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
