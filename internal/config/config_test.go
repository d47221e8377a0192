package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eurostake/staking-sync-service/internal/types"
)

func validTransactionConfig() TransactionConfig {
	return TransactionConfig{
		EnergyLimits: map[string]uint64{
			"transfer": 5000,
			"stake":    7000,
		},
		RefreshGrace:    3 * time.Second,
		RecordRetention: time.Minute,
	}
}

func TestTransactionConfigValidate(t *testing.T) {
	cfg := validTransactionConfig()
	require.NoError(t, cfg.Validate())

	noLimits := validTransactionConfig()
	noLimits.EnergyLimits = nil
	assert.Error(t, noLimits.Validate())

	unknownKind := validTransactionConfig()
	unknownKind.EnergyLimits["teleport"] = 100
	assert.Error(t, unknownKind.Validate())

	zeroLimit := validTransactionConfig()
	zeroLimit.EnergyLimits["stake"] = 0
	assert.Error(t, zeroLimit.Validate())
}

func TestEnergyLimitFor(t *testing.T) {
	cfg := validTransactionConfig()

	limit, err := cfg.EnergyLimitFor(types.PayloadStake)
	require.NoError(t, err)
	assert.Equal(t, uint64(7000), limit)

	_, err = cfg.EnergyLimitFor(types.PayloadClaimRewards)
	assert.Error(t, err)
}

func TestLedgerConfigValidate(t *testing.T) {
	valid := LedgerConfig{
		Endpoint:                 "http://localhost:9095",
		Timeout:                  1000,
		FinalizationTimeout:      30 * time.Second,
		FinalizationPollInterval: time.Second,
		InvokeEnergyLimit:        10000,
	}
	require.NoError(t, valid.Validate())

	badScheme := valid
	badScheme.Endpoint = "ftp://localhost"
	assert.Error(t, badScheme.Validate())

	pollTooSlow := valid
	pollTooSlow.FinalizationPollInterval = time.Minute
	assert.Error(t, pollTooSlow.Validate())
}

func TestContractsConfigValidateParsesModuleRefs(t *testing.T) {
	hex := "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"
	cfg := ContractsConfig{
		StakingContract:  types.ContractAddress{Index: 7},
		TokenContract:    types.ContractAddress{Index: 8},
		StakingModuleHex: hex,
		TokenModuleHex:   hex,
	}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, hex, cfg.StakingModule.Hex())

	cfg.StakingModuleHex = "zz"
	assert.Error(t, cfg.Validate())
}

func TestNewAppliesMetricsDefaults(t *testing.T) {
	moduleRef := "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"
	content := fmt.Sprintf(`server:
  host: 127.0.0.1
  port: 8092
  write-timeout: 15s
  read-timeout: 15s
  idle-timeout: 2m
  max-content-length: 40960
ledger:
  endpoint: http://localhost:9095
  timeout: 1000
  finalization-timeout: 30s
  finalization-poll-interval: 1s
  invoke-energy-limit: 10000
wallet:
  endpoint: http://localhost:9096
  timeout: 60000
transaction:
  energy-limits:
    transfer: 5000
    stake: 7000
  refresh-grace: 3s
  record-retention: 1m
contracts:
  staking-contract:
    index: 2059
    subindex: 0
  token-contract:
    index: 2060
    subindex: 0
  staking-module: %s
  token-module: %s
refresh:
  stats-interval: 60s
  health-check-interval: 60
`, moduleRef, moduleRef)

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := New(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultMetricsConfig(), cfg.Metrics)
}
