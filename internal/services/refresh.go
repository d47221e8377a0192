package services

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// DoHealthCheck verifies the ledger node is reachable and serving
// contract reads. The protocol stats view doubles as the probe, so a
// healthy check also keeps the stats slot fresh.
func (s *Services) DoHealthCheck(ctx context.Context) error {
	if _, err := s.store.RefreshProtocolStats(ctx, s.cfg.Contracts.StakingContract); err != nil {
		return err
	}
	return nil
}

// StartStatsRefreshCron keeps the account-independent protocol stats
// slot reconciled on a fixed cadence, independent of user operations.
func (s *Services) StartStatsRefreshCron(ctx context.Context) error {
	c := cron.New()
	cronSpec := fmt.Sprintf("@every %ds", int(s.cfg.Refresh.StatsInterval.Seconds()))

	_, err := c.AddFunc(cronSpec, func() {
		if _, refreshErr := s.store.RefreshProtocolStats(ctx, s.cfg.Contracts.StakingContract); refreshErr != nil {
			log.Ctx(ctx).Warn().Err(refreshErr).Msg("scheduled protocol stats refresh failed")
		}
	})
	if err != nil {
		return err
	}

	c.Start()
	log.Ctx(ctx).Info().Str("interval", s.cfg.Refresh.StatsInterval.String()).Msg("Initiated Stats Refresh Cron")

	go func() {
		<-ctx.Done()
		c.Stop()
	}()

	return nil
}
