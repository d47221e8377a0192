package config

import (
	"errors"
	"time"
)

// RefreshConfig configures the periodic background reconciliation.
type RefreshConfig struct {
	// StatsInterval is the cadence of the protocol stats refresh cron.
	StatsInterval time.Duration `mapstructure:"stats-interval"`
	// HealthCheckInterval is the node liveness probe cadence in seconds.
	HealthCheckInterval int `mapstructure:"health-check-interval"`
}

func (cfg *RefreshConfig) Validate() error {
	if cfg.StatsInterval < time.Second {
		return errors.New("stats-interval must be at least one second")
	}

	if cfg.HealthCheckInterval <= 0 {
		return errors.New("health-check-interval must be a positive integer")
	}

	return nil
}
