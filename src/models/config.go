package models

// MConfig Structure
type MConfig struct {
	Name     string          `yaml:"name"`
	Host     string          `yaml:"host"`
	Port     int             `yaml:"port"`
	LogLevel string          `yaml:"log_level"`
	Storage  MStorageConfig  `yaml:"storage"`
	Network  MNetworkConfig  `yaml:"network"`
	Fetch    MFetchConfig    `yaml:"fetch"`
	Batch    MBatchConfig    `yaml:"batch"`
	Vendors  []MVendorConfig `yaml:"vendors"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	DBSchema           string `yaml:"db_schema"`
}

type MNetworkConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Proxies        []string `yaml:"proxies"`
	RequestTimeout int      `yaml:"timeout"`
	MaxRetries     int      `yaml:"retries"`
	UserAgent      string   `yaml:"user_agent"`
}

// MFetchConfig controls a single multi-vendor lookup.
type MFetchConfig struct {
	DeadlineSeconds   int       `yaml:"deadline_seconds"`
	VendorConcurrency int       `yaml:"vendor_concurrency"`
	PagePoolSize      int       `yaml:"page_pool_size"`
	MatchRule         MatchRule `yaml:"match_rule"`
}

// MBatchConfig controls how many parts are processed at once and how fast
// new parts are dispatched.
type MBatchConfig struct {
	Workers  int  `yaml:"workers"`
	PacingMs int  `yaml:"pacing_ms"`
	Record   bool `yaml:"record"`
}

type MVendorConfig struct {
	Name      string             `yaml:"name"`
	Enabled   bool               `yaml:"enabled"`
	MatchRule MatchRule          `yaml:"match_rule,omitempty"`
	API       *MVendorAPIConfig  `yaml:"api,omitempty"`
	Page      *MVendorPageConfig `yaml:"page,omitempty"`
}

// MVendorAPIConfig describes a structured search endpoint. URL may contain
// the {mpn} placeholder.
type MVendorAPIConfig struct {
	URL     string            `yaml:"url"`
	Params  map[string]string `yaml:"params,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

// MVendorPageConfig describes a search results page and the CSS selectors
// used to read the first listing from it.
type MVendorPageConfig struct {
	URL   string `yaml:"url"`
	Item  string `yaml:"item"`
	MPN   string `yaml:"mpn"`
	Name  string `yaml:"name"`
	Price string `yaml:"price"`
	Link  string `yaml:"link"`
	Stock string `yaml:"stock,omitempty"`
}
