package config

import "time"

// Config holds runtime settings for the member CLI.
//
// Fields:
//   - ServerBaseURL: base URL of the backend HTTP API.
//   - SessionCheckInterval: how often the client revalidates the session.
//   - DatabasePath: sqlite file of the persistent scope.
//   - RedisAddr: host:port of the session-scope redis; empty selects the
//     in-process store.
//   - RememberMeFor: auth cookie lifetime when the user opts into
//     remember-me.
type Config struct {
	ServerBaseURL        string
	SessionCheckInterval time.Duration
	DatabasePath         string
	RedisAddr            string
	RememberMeFor        time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:8000"
	c.SessionCheckInterval = 30 * time.Second
	c.DatabasePath = "membercli.db"
	c.RedisAddr = ""
	c.RememberMeFor = 30 * 24 * time.Hour
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
