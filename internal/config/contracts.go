package config

import (
	"errors"
	"fmt"

	"github.com/eurostake/staking-sync-service/internal/types"
)

// ContractsConfig pins the deployed contract instances and their module
// references. Module references identify the embedded schemas.
type ContractsConfig struct {
	StakingContract   types.ContractAddress `mapstructure:"staking-contract"`
	TokenContract     types.ContractAddress `mapstructure:"token-contract"`
	StakingModuleHex  string                `mapstructure:"staking-module"`
	TokenModuleHex    string                `mapstructure:"token-module"`

	StakingModule types.ModuleReference
	TokenModule   types.ModuleReference
}

func (cfg *ContractsConfig) Validate() error {
	if cfg.StakingContract.Index == 0 {
		return errors.New("staking-contract index cannot be zero")
	}

	if cfg.TokenContract.Index == 0 {
		return errors.New("token-contract index cannot be zero")
	}

	stakingModule, err := types.ModuleReferenceFromHex(cfg.StakingModuleHex)
	if err != nil {
		return fmt.Errorf("invalid staking-module: %w", err)
	}
	cfg.StakingModule = stakingModule

	tokenModule, err := types.ModuleReferenceFromHex(cfg.TokenModuleHex)
	if err != nil {
		return fmt.Errorf("invalid token-module: %w", err)
	}
	cfg.TokenModule = tokenModule

	return nil
}
