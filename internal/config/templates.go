package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Price Tracker Configuration

[database]
# SQLite database file. Override with TRACKER_DB_PATH.
path = "%s"

[server]
# HTTP API port. Override with PORT.
port = 8080
# Bearer token required to trigger a collection run over HTTP.
# Override with CRON_SECRET.
run_token = "changeme"

[collector]
# Stores to collect from. Remove entries to disable a source.
stores = ["falabella", "paris", "ripley", "mercadolibre", "sodimac"]
# Timeout for JSON API calls.
api_timeout = "15s"
# Navigation timeout for page-rendering sources.
page_timeout = "30s"
# Settle delay after a page load before evaluating selectors.
settle_delay = "2s"
# Minimum gap between consecutive page fetches against the same host.
host_delay = "1s"
# Result count when resolving a product by free-text search.
search_limit = 1

[alerts]
# Minimum day-over-day drop percentage that emits an alert.
threshold_pct = 5.0

[logging]
# Log level: debug, info, warn, error
level = "info"
console = true
file = true
max_size = 50
max_backups = 5
max_age = 30
`

// createTemplateConfig writes a commented config.toml so a first run leaves
// something editable behind. Defaults stay in effect for the current run.
func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dbPath := filepath.Join(configDir, "prices.db")
	content := fmt.Sprintf(configTemplate, dbPath)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Created config template at %s\n", path)
	return nil
}
