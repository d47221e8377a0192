package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/eurostake/staking-sync-service/internal/types"
)

// TransactionConfig configures orchestrated transaction execution.
// Energy ceilings are fixed per payload kind, never estimated.
type TransactionConfig struct {
	EnergyLimits map[string]uint64 `mapstructure:"energy-limits"`
	// RefreshGrace delays the post-commit state refresh to let the
	// node's read path catch up with finalization. A heuristic, not a
	// correctness guarantee.
	RefreshGrace time.Duration `mapstructure:"refresh-grace"`
	// RecordRetention keeps finished operation records inspectable for
	// this long after their last step reached a terminal status.
	RecordRetention time.Duration `mapstructure:"record-retention"`
}

func (cfg *TransactionConfig) Validate() error {
	if len(cfg.EnergyLimits) == 0 {
		return errors.New("transaction energy-limits cannot be empty")
	}

	for kind, limit := range cfg.EnergyLimits {
		if _, err := types.PayloadKindFromString(kind); err != nil {
			return fmt.Errorf("invalid energy-limits entry: %w", err)
		}
		if limit == 0 {
			return fmt.Errorf("energy limit for %q must be positive", kind)
		}
	}

	if cfg.RefreshGrace < 0 {
		return errors.New("refresh-grace cannot be negative")
	}

	if cfg.RecordRetention <= 0 {
		return errors.New("record-retention must be positive")
	}

	return nil
}

// EnergyLimitFor returns the fixed energy ceiling configured for a
// payload kind.
func (cfg *TransactionConfig) EnergyLimitFor(kind types.PayloadKind) (uint64, error) {
	limit, ok := cfg.EnergyLimits[kind.ToString()]
	if !ok {
		return 0, fmt.Errorf("no energy limit configured for payload kind %q", kind)
	}
	return limit, nil
}
