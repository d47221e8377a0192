package main

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/eurostake/staking-sync-service/cmd/staking-sync-service/cli"
	"github.com/eurostake/staking-sync-service/internal/api"
	"github.com/eurostake/staking-sync-service/internal/clients"
	"github.com/eurostake/staking-sync-service/internal/config"
	"github.com/eurostake/staking-sync-service/internal/invoker"
	"github.com/eurostake/staking-sync-service/internal/observability/healthcheck"
	"github.com/eurostake/staking-sync-service/internal/observability/metrics"
	"github.com/eurostake/staking-sync-service/internal/orchestrator"
	"github.com/eurostake/staking-sync-service/internal/schema"
	"github.com/eurostake/staking-sync-service/internal/services"
	"github.com/eurostake/staking-sync-service/internal/store"
	"github.com/eurostake/staking-sync-service/internal/types"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("failed to load .env file")
	}
}

func main() {
	ctx := context.Background()

	// setup cli commands and flags
	if err := cli.Setup(); err != nil {
		log.Fatal().Err(err).Msg("error while setting up cli")
	}

	// load config
	cfgPath := cli.GetConfigPath()
	cfg, err := config.New(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg(fmt.Sprintf("error while loading config file: %s", cfgPath))
	}

	// initialize metrics with the metrics port from config
	metricsPort := cfg.Metrics.GetMetricsPort()
	metrics.Init(metricsPort)

	clients := clients.New(cfg)
	codec := schema.NewCodec(clients.Ledger)
	contractInvoker := invoker.NewContractInvoker(clients.Ledger, cfg.Ledger.InvokeEnergyLimit)
	txOrchestrator := orchestrator.New(
		clients.Ledger, clients.Wallet, &cfg.Transaction, cfg.Ledger.FinalizationTimeout,
	)
	stateStore := store.New(
		codec, contractInvoker, cfg.Contracts.StakingModule, types.StakingContractName,
	)

	services, err := services.New(
		ctx, cfg, codec, contractInvoker, txOrchestrator, stateStore,
		func(ctx context.Context) (types.AccountAddress, *types.Error) {
			return clients.Wallet.ConnectedAccount(ctx)
		},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("error while setting up staking services layer")
	}

	if err := services.StartStatsRefreshCron(ctx); err != nil {
		log.Fatal().Err(err).Msg("error while starting stats refresh cron")
	}

	healthCheckInterval := time.Duration(cfg.Refresh.HealthCheckInterval) * time.Second
	if err := healthcheck.StartHealthCheckCron(ctx, services.DoHealthCheck, healthCheckInterval); err != nil {
		log.Fatal().Err(err).Msg("error while starting health check cron")
	}

	apiServer, err := api.New(ctx, cfg, services)
	if err != nil {
		log.Fatal().Err(err).Msg("error while setting up staking sync service")
	}
	if err = apiServer.Start(); err != nil {
		log.Fatal().Err(err).Msg("error while starting staking sync service")
	}
}
