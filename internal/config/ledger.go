package config

import (
	"errors"
	"net/url"
	"time"
)

// LedgerConfig configures the connection to the ledger node's RPC
// surface.
type LedgerConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	// Timeout is the per-request timeout in milliseconds.
	Timeout int `mapstructure:"timeout"`
	// FinalizationTimeout bounds each asynchronous finalization wait.
	// Exceeding it abandons the wait locally; the transaction is not
	// retracted.
	FinalizationTimeout time.Duration `mapstructure:"finalization-timeout"`
	// FinalizationPollInterval is the status poll cadence during a
	// finalization wait.
	FinalizationPollInterval time.Duration `mapstructure:"finalization-poll-interval"`
	// InvokeEnergyLimit is the fixed energy ceiling for read-only
	// invocations.
	InvokeEnergyLimit uint64 `mapstructure:"invoke-energy-limit"`
}

func (cfg *LedgerConfig) Validate() error {
	if cfg.Endpoint == "" {
		return errors.New("ledger endpoint cannot be empty")
	}

	parsedURL, err := url.ParseRequestURI(cfg.Endpoint)
	if err != nil {
		return errors.New("invalid ledger endpoint")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.New("ledger endpoint must start with http or https")
	}

	if cfg.Timeout <= 0 {
		return errors.New("ledger timeout cannot be smaller or equal to 0")
	}

	if cfg.FinalizationTimeout <= 0 {
		return errors.New("finalization-timeout must be positive")
	}

	if cfg.FinalizationPollInterval <= 0 {
		return errors.New("finalization-poll-interval must be positive")
	}

	if cfg.FinalizationPollInterval >= cfg.FinalizationTimeout {
		return errors.New("finalization-poll-interval must be smaller than finalization-timeout")
	}

	if cfg.InvokeEnergyLimit == 0 {
		return errors.New("invoke-energy-limit must be positive")
	}

	return nil
}

// WalletConfig configures the connection to the wallet bridge that
// holds the signing capability.
type WalletConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	// Timeout is the per-request timeout in milliseconds. Signing waits
	// on user interaction, so this is typically much longer than the
	// ledger timeout.
	Timeout int `mapstructure:"timeout"`
}

func (cfg *WalletConfig) Validate() error {
	if cfg.Endpoint == "" {
		return errors.New("wallet endpoint cannot be empty")
	}

	parsedURL, err := url.ParseRequestURI(cfg.Endpoint)
	if err != nil {
		return errors.New("invalid wallet endpoint")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.New("wallet endpoint must start with http or https")
	}

	if cfg.Timeout <= 0 {
		return errors.New("wallet timeout cannot be smaller or equal to 0")
	}

	return nil
}
