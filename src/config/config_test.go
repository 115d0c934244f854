package config

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"price-scout/src/helpers"
	"price-scout/src/models"
)

const sampleYAML = `
name: price-scout
port: 9090
log_level: DEBUG
storage:
  db_type: sqlite
  db_path: /tmp/prices.db
fetch:
  deadline_seconds: 20
  page_pool_size: 3
batch:
  workers: 2
  pacing_ms: 250
vendors:
  - name: Scorptec
    enabled: true
    api:
      url: https://api.example.test/search?q={mpn}
  - name: umart
    enabled: true
    match_rule: exact
    page:
      url: https://umart.example.test/search?q={mpn}
      item: .product
      mpn: .sku
      name: .title
      price: .price
      link: a
  - name: digicor
    enabled: false
`

func TestParseAppliesDefaultsAndOverrides(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.Host != "127.0.0.1" {
		t.Errorf("Host = %q, want default 127.0.0.1", cfg.Host)
	}
	if cfg.Network.RequestTimeout != 15 {
		t.Errorf("RequestTimeout = %d, want default 15", cfg.Network.RequestTimeout)
	}
	if cfg.Deadline() != 20*time.Second {
		t.Errorf("Deadline() = %v, want 20s", cfg.Deadline())
	}
	if cfg.Pacing() != 250*time.Millisecond {
		t.Errorf("Pacing() = %v, want 250ms", cfg.Pacing())
	}
	if cfg.Fetch.MatchRule != models.MatchNormalized {
		t.Errorf("MatchRule = %q, want normalized", cfg.Fetch.MatchRule)
	}

	got := cfg.EnabledVendors()
	want := []models.Vendor{models.VendorScorptec, models.VendorUmart}
	if len(got) != len(want) {
		t.Fatalf("EnabledVendors() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("EnabledVendors()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(c *Config){
		"low port":         func(c *Config) { c.Port = 80 },
		"unknown db":       func(c *Config) { c.Storage.DBType = "mysql" },
		"postgres no dsn":  func(c *Config) { c.Storage.DBType = "postgres" },
		"zero deadline":    func(c *Config) { c.Fetch.DeadlineSeconds = 0 },
		"bad match rule":   func(c *Config) { c.Fetch.MatchRule = "fuzzy" },
		"zero workers":     func(c *Config) { c.Batch.Workers = 0 },
		"negative pacing":  func(c *Config) { c.Batch.PacingMs = -1 },
		"bad proxy":        func(c *Config) { c.Network.Proxies = []string{"ftp://x"} },
		"no vendors":       func(c *Config) { c.Vendors = nil },
		"unknown vendor":   func(c *Config) { c.Vendors[0].Name = "amazon" },
		"duplicate vendor": func(c *Config) { c.Vendors = append(c.Vendors, c.Vendors[0]) },
		"no extractor":     func(c *Config) { c.Vendors[0].API = nil },
		"page missing price": func(c *Config) {
			c.Vendors[0].Page = &models.MVendorPageConfig{URL: "https://x.test/{mpn}", Item: ".p"}
		},
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			var cfgErr *helpers.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Errorf("err = %T, want *helpers.ConfigurationError", err)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := validConfig()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := NewConfig(path)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if loaded.Vendors[0].API.URL != cfg.Vendors[0].API.URL {
		t.Errorf("api url = %q, want %q", loaded.Vendors[0].API.URL, cfg.Vendors[0].API.URL)
	}
}

func TestNewConfigMissingFile(t *testing.T) {
	_, err := NewConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("vendors: [unclosed"))
	var cfgErr *helpers.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err = %v, want ConfigurationError", err)
	}
}

func validConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.Vendors = []models.MVendorConfig{{
		Name:    "mwave",
		Enabled: true,
		API:     &models.MVendorAPIConfig{URL: "https://mwave.example.test/api?q={mpn}"},
	}}
	return cfg
}

func TestExampleConfigCoversEveryVendor(t *testing.T) {
	cfg, err := NewConfig(filepath.Join("..", "..", "config", "config.example.yaml"))
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}

	listed := make(map[models.Vendor]bool)
	for _, vc := range cfg.Vendors {
		v, err := models.ParseVendor(vc.Name)
		if err != nil {
			t.Fatalf("vendor %q: %v", vc.Name, err)
		}
		if vc.API == nil && vc.Page == nil {
			t.Errorf("vendor %s has neither an api nor a page section", v)
		}
		listed[v] = true
	}
	for _, v := range models.KnownVendors {
		if !listed[v] {
			t.Errorf("vendor %s missing from the example config", v)
		}
	}
	if len(cfg.EnabledVendors()) == 0 {
		t.Error("example config enables no vendors")
	}
}
