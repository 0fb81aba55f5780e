package wspulse

import (
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Config are the construction parameters of a session.
type Config struct {
	// Address is the endpoint to dial, e.g. "wss://host/path".
	Address string

	// MaxRetries is the connection attempt budget. Zero means no retry.
	MaxRetries int

	// BaseDelay seeds the exponential backoff between attempts.
	BaseDelay time.Duration

	// ProbeInterval is the liveness probe cadence. Zero disables probing.
	ProbeInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  time.Second,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Address) == "" {
		return errors.New("session config: address is required")
	}
	if c.MaxRetries < 0 {
		return errors.New("session config: max_retries must be non-negative")
	}
	if c.BaseDelay < 0 {
		return errors.New("session config: base delay must be non-negative")
	}
	if c.ProbeInterval < 0 {
		return errors.New("session config: probe interval must be non-negative")
	}
	return nil
}

func (c Config) Endpoint() Endpoint {
	return Endpoint{Address: c.Address, MaxAttempts: c.MaxRetries}
}

// config.toml key mapping to session settings.
type fileConfig struct {
	Address              string `toml:"address"`
	MaxRetries           int    `toml:"max_retries"`
	BaseDelayMS          int    `toml:"base_delay_ms"`
	ProbeIntervalSeconds int    `toml:"probe_interval_seconds"`
}

// LoadConfig reads a TOML session config, overlaying defined keys onto the
// defaults. probe_interval_seconds must be positive when present; leaving it
// out disables liveness probing.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, errors.Wrap(err, "load session config")
	}

	if meta.IsDefined("address") {
		cfg.Address = strings.TrimSpace(raw.Address)
	}
	if meta.IsDefined("max_retries") {
		cfg.MaxRetries = raw.MaxRetries
	}
	if meta.IsDefined("base_delay_ms") {
		cfg.BaseDelay = time.Duration(raw.BaseDelayMS) * time.Millisecond
	}
	if meta.IsDefined("probe_interval_seconds") {
		if raw.ProbeIntervalSeconds <= 0 {
			return Config{}, errors.New(
				"load session config: probe_interval_seconds must be positive when set",
			)
		}
		cfg.ProbeInterval = time.Duration(raw.ProbeIntervalSeconds) * time.Second
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
