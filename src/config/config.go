package config

import (
	"fmt"
	"os"
	"time"

	"price-scout/src/helpers"
	"price-scout/src/models"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read config file '%s'", configPath)
	}

	return Parse(data)
}

// -----------------------------------------------------------------------------

// Parse builds a validated Config from YAML bytes.
func Parse(data []byte) (*Config, error) {
	// 1. Start from defaults so omitted keys keep sane values
	config := NewDefaultConfig()

	// 2. Unmarshal data over the defaults
	if err := yaml.Unmarshal(data, config.MConfig); err != nil {
		return nil, helpers.NewConfigurationError("failed to parse config from YAML", err)
	}
	config.fillDerived()

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// NewDefaultConfig returns the built-in defaults with no vendors configured.
func NewDefaultConfig() *Config {
	c := &Config{MConfig: &models.MConfig{
		Name:     "price-scout",
		Host:     "127.0.0.1",
		Port:     8080,
		LogLevel: "INFO",
		Storage: models.MStorageConfig{
			DBType:   "sqlite",
			DBPath:   "price_history.db",
			DBSchema: "price_scout",
		},
		Network: models.MNetworkConfig{
			RequestTimeout: 15,
			MaxRetries:     2,
		},
		Fetch: models.MFetchConfig{
			DeadlineSeconds:   45,
			VendorConcurrency: 8,
			MatchRule:         models.MatchNormalized,
		},
		Batch: models.MBatchConfig{
			Workers:  5,
			PacingMs: 1000,
		},
	}}
	c.fillDerived()
	return c
}

// -----------------------------------------------------------------------------

func (c *Config) fillDerived() {
	if c.Fetch.PagePoolSize == 0 {
		c.Fetch.PagePoolSize = helpers.RecommendedPagePoolSize()
	}
	if c.Fetch.MatchRule == "" {
		c.Fetch.MatchRule = models.MatchNormalized
	}
}

// -----------------------------------------------------------------------------

// Validate performs configuration validation. Every failure is a
// ConfigurationError.
func (c *Config) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return helpers.NewConfigurationError(fmt.Sprintf(format, args...), nil)
	}

	// Application and server
	if c.Name == "" {
		return invalid("application name cannot be empty")
	}
	if c.Host == "" {
		return invalid("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return invalid("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Storage
	switch c.Storage.DBType {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return invalid("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return invalid("connection string cannot be empty for postgres")
		}
		if c.Storage.DBSchema == "" {
			return invalid("schema cannot be empty for postgres")
		}
	default:
		return invalid("unsupported database type %q", c.Storage.DBType)
	}

	// Network
	if c.Network.RequestTimeout <= 0 {
		return invalid("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return invalid("max retries cannot be negative")
	}
	for _, p := range c.Network.Proxies {
		if !helpers.ValidateProxy(p) {
			return invalid("invalid proxy %q", p)
		}
	}

	// Fetch and batch
	if c.Fetch.DeadlineSeconds <= 0 {
		return invalid("fetch deadline must be greater than 0")
	}
	if c.Fetch.VendorConcurrency <= 0 {
		return invalid("vendor concurrency must be greater than 0")
	}
	if c.Fetch.PagePoolSize <= 0 {
		return invalid("page pool size must be greater than 0")
	}
	if !validRule(c.Fetch.MatchRule) {
		return invalid("unknown match rule %q", c.Fetch.MatchRule)
	}
	if c.Batch.Workers <= 0 {
		return invalid("batch workers must be greater than 0")
	}
	if c.Batch.PacingMs < 0 {
		return invalid("batch pacing cannot be negative")
	}

	// Vendors
	return c.validateVendors()
}

// -----------------------------------------------------------------------------

func (c *Config) validateVendors() error {
	seen := make(map[models.Vendor]bool)
	enabled := 0

	for i, vc := range c.Vendors {
		v, err := models.ParseVendor(vc.Name)
		if err != nil {
			return helpers.NewConfigurationError(fmt.Sprintf("vendor %d", i), err)
		}
		if seen[v] {
			return helpers.NewConfigurationError(fmt.Sprintf("vendor '%s' configured twice", v), nil)
		}
		seen[v] = true

		if vc.MatchRule != "" && !validRule(vc.MatchRule) {
			return helpers.NewConfigurationError(fmt.Sprintf("vendor '%s': unknown match rule %q", v, vc.MatchRule), nil)
		}
		if !vc.Enabled {
			continue
		}
		enabled++

		if vc.API == nil && vc.Page == nil {
			return helpers.NewConfigurationError(fmt.Sprintf("vendor '%s' needs an api or page section", v), nil)
		}
		if vc.API != nil && vc.API.URL == "" {
			return helpers.NewConfigurationError(fmt.Sprintf("vendor '%s': api url cannot be empty", v), nil)
		}
		if p := vc.Page; p != nil && (p.URL == "" || p.Item == "" || p.Price == "") {
			return helpers.NewConfigurationError(fmt.Sprintf("vendor '%s': page needs url, item and price selectors", v), nil)
		}
	}

	if enabled == 0 {
		return helpers.NewConfigurationError("at least one vendor must be enabled", nil)
	}
	return nil
}

// -----------------------------------------------------------------------------

func validRule(r models.MatchRule) bool {
	switch r {
	case models.MatchExact, models.MatchCaseInsensitive, models.MatchNormalized:
		return true
	}
	return false
}

// -----------------------------------------------------------------------------

// Deadline is the per-part fetch deadline.
func (c *Config) Deadline() time.Duration {
	return time.Duration(c.Fetch.DeadlineSeconds) * time.Second
}

// -----------------------------------------------------------------------------

// Pacing is the minimum delay between dispatching parts in a batch.
func (c *Config) Pacing() time.Duration {
	return time.Duration(c.Batch.PacingMs) * time.Millisecond
}

// -----------------------------------------------------------------------------

// EnabledVendors returns the enabled vendors in priority order.
func (c *Config) EnabledVendors() []models.Vendor {
	var out []models.Vendor
	for _, vc := range c.Vendors {
		if !vc.Enabled {
			continue
		}
		if v, err := models.ParseVendor(vc.Name); err == nil {
			out = append(out, v)
		}
	}
	models.SortVendors(out)
	return out
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return eris.Wrap(err, "failed to marshal config to YAML")
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return eris.Wrapf(err, "failed to write config to file '%s'", configPath)
	}

	return nil
}
