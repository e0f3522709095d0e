package config

import "time"

// Config holds runtime settings for the LearnKeeper client.
//
// Units: intervals and timeouts are time.Duration values.
type Config struct {
	// ServerEndpointAddr is the base URL of the learning server,
	// e.g. "http://localhost:8080".
	ServerEndpointAddr string

	// DatabaseDSN locates the local SQLite database file.
	DatabaseDSN string

	// SyncInterval is the period between scheduled sync passes.
	SyncInterval time.Duration

	// OnlineCheckInterval is how often the client probes server
	// reachability.
	OnlineCheckInterval time.Duration

	// RequestTimeout bounds individual HTTP requests.
	RequestTimeout time.Duration

	// MaxQueueRetries bounds replay attempts for a queued action.
	MaxQueueRetries int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.DatabaseDSN = "learnkeeper.db"
	c.SyncInterval = 5 * time.Minute
	c.OnlineCheckInterval = 3 * time.Second
	c.RequestTimeout = 30 * time.Second
	c.MaxQueueRetries = 3
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
