package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for sisedash.
type Config struct {
	Storage Storage `yaml:"storage"`
	Server  Server  `yaml:"server"`
	Naver   Naver   `yaml:"naver"`
	Enrich  Enrich  `yaml:"enrich"`
	Logging Logging `yaml:"logging"`
}

// Storage holds snapshot and archive locations.
type Storage struct {
	SnapshotDir string `yaml:"snapshot_dir"`
	ArchiveDir  string `yaml:"archive_dir"`
	CatalogPath string `yaml:"catalog_path"`
}

// Server holds the HTTP listener configuration. Addr is the base URL the
// terminal client uses to reach the server.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Addr string `yaml:"addr"`
}

// Naver holds the scraping endpoints and the class names the extraction
// strategies look for.
type Naver struct {
	FinanceURL   string `yaml:"finance_url"`
	SearchURL    string `yaml:"search_url"`
	UserAgent    string `yaml:"user_agent"`
	TimeoutSec   int    `yaml:"timeout_sec"`
	SummaryClass string `yaml:"summary_class"`
	NewsClass    string `yaml:"news_class"`
	NewsLimit    int    `yaml:"news_limit"`
}

// Enrich bounds the per-row enrichment fan-out.
type Enrich struct {
	MaxWorkers      int `yaml:"max_workers"`
	RateLimitPerMin int `yaml:"rate_limit_per_min"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---------------------------------------------------------------------------
// Defaults
// ---------------------------------------------------------------------------

// Default returns a Config with every field set to its default value.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.SnapshotDir == "" {
		cfg.Storage.SnapshotDir = "sise_csv"
	}
	if cfg.Storage.ArchiveDir == "" {
		cfg.Storage.ArchiveDir = "archive"
	}
	if cfg.Storage.CatalogPath == "" {
		cfg.Storage.CatalogPath = "archive/catalog.db"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8501
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "http://" + cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port)
	}
	if cfg.Naver.FinanceURL == "" {
		cfg.Naver.FinanceURL = "https://finance.naver.com/item/main.naver"
	}
	if cfg.Naver.SearchURL == "" {
		cfg.Naver.SearchURL = "https://search.naver.com/search.naver"
	}
	if cfg.Naver.UserAgent == "" {
		cfg.Naver.UserAgent = "Mozilla/5.0"
	}
	if cfg.Naver.TimeoutSec <= 0 {
		cfg.Naver.TimeoutSec = 10
	}
	if cfg.Naver.SummaryClass == "" {
		cfg.Naver.SummaryClass = "summary_info"
	}
	if cfg.Naver.NewsClass == "" {
		cfg.Naver.NewsClass = "news_tit"
	}
	if cfg.Naver.NewsLimit <= 0 {
		cfg.Naver.NewsLimit = 5
	}
	if cfg.Enrich.MaxWorkers <= 0 {
		cfg.Enrich.MaxWorkers = 8
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, applies
// environment variable overrides and then fills in defaults. A missing file
// is not an error: the defaults plus environment are used instead.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SNAPSHOT_DIR"); v != "" {
		cfg.Storage.SnapshotDir = v
	}
	if v := os.Getenv("ARCHIVE_DIR"); v != "" {
		cfg.Storage.ArchiveDir = v
	}
	if v := os.Getenv("CATALOG_PATH"); v != "" {
		cfg.Storage.CatalogPath = v
	}
	if v := os.Getenv("SISE_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("NAVER_USER_AGENT"); v != "" {
		cfg.Naver.UserAgent = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
