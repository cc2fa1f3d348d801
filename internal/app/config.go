package app

import (
	"os"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (BACKOFFICE_ prefix), flags, or YAML config files.
type Config struct {
	DataDir      string `default:"data" usage:"Directory holding the JSON snapshot files" flag:"data-dir"`
	DatabaseURL  string `usage:"PostgreSQL connection URL; when set, snapshots live in Postgres instead of JSON files (BACKOFFICE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RefundPolicy string `default:"current_price" usage:"Refund pricing policy: current_price or sale_price" flag:"refund-policy"`
	SummaryFile  string `default:"summary_report.json" usage:"Summary report file name, written inside the data dir" flag:"summary-file"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "BACKOFFICE",
		Files:     []string{"config.yaml", "/etc/backoffice/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DataDir == "" {
		return nil, errors.New("data dir is required: set BACKOFFICE_DATA_DIR")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps standard environment variable names like
// DATABASE_URL to the application's BACKOFFICE_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
}
