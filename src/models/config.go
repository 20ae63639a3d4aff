package models

// MConfig Structure
type MConfig struct {
	Name       string            `yaml:"name"`
	Host       string            `yaml:"host"`
	Port       int               `yaml:"port"`
	LogLevel   string            `yaml:"log_level"`
	GrpcHost   string            `yaml:"grpc_host"`
	GrpcPort   int               `yaml:"grpc_port"`
	Storage    MStorageConfig    `yaml:"storage"`
	Network    MNetworkConfig    `yaml:"network"`
	DataSource MDataSourceConfig `yaml:"data_source"`
	WindowsAgg []string          `yaml:"windows_aggregation"`
	Feed       MFeedConfig       `yaml:"feed"`
}

// MFeedConfig recognizes the options spec.md section 6 names
// (data-queue-handler) plus the set of SubscriptionConfigs to add at
// startup and the universe-selection polling cadence.
type MFeedConfig struct {
	DataQueueHandler  string                  `yaml:"data_queue_handler"`
	Subscriptions     []MSubscriptionConfig   `yaml:"subscriptions"`
	UniverseEnabled   bool                    `yaml:"universe_enabled"`
	UniverseInterval  int                     `yaml:"universe_interval_seconds"`
	MetricsInterval   int                     `yaml:"metrics_interval_seconds"`
}

// MSubscriptionConfig is the YAML shape of one feed.SubscriptionConfig to
// register on startup.
type MSubscriptionConfig struct {
	Symbol              string `yaml:"symbol"`
	SecurityType        string `yaml:"security_type"` // "equity", "forex", "base"
	Resolution          string `yaml:"resolution"`     // "tick", "second", "minute", "hour", "daily"
	TimeZone            string `yaml:"timezone"`
	FillDataForward     bool   `yaml:"fill_forward"`
	ExtendedMarketHours bool   `yaml:"extended_hours"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}

type MNetworkConfig struct {
	Enabled            bool     `yaml:"enabled"`
	Proxies            []string `yaml:"proxies"`
	RequestTimeout     int      `yaml:"timeout"`
	MaxRetries         int      `yaml:"retries"`
	ConcurrentRequests int      `yaml:"concurrent_requests"`
	UserAgent          string   `yaml:"user_agent"`
}

type MDataSourceConfig struct {
	DataRetentionDays     int             `yaml:"data_retention_days"`
	UpdateIntervalSeconds int             `yaml:"update_interval_seconds"`
	Sources               []MSourceConfig `yaml:"sources"`
}

type MSourceConfig struct {
	Name    string   `yaml:"name"`
	Symbols []string `yaml:"symbols"`
	APIKey  string   `yaml:"api_key"` // Optional
}
