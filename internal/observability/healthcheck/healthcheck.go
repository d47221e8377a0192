package healthcheck

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var logger zerolog.Logger = log.Logger

func SetLogger(customLogger zerolog.Logger) {
	logger = customLogger
}

// Probe checks that the ledger node is reachable and answering reads.
type Probe func(ctx context.Context) error

// consecutive probe failures tolerated before the service terminates.
// A single failed poll of a remote node is routine.
const maxConsecutiveFailures = 3

func StartHealthCheckCron(ctx context.Context, probe Probe, interval time.Duration) error {
	c := cron.New()
	logger.Info().Msg("Initiated Health Check Cron")

	if interval <= 0 {
		interval = 60 * time.Second
	}

	cronSpec := fmt.Sprintf("@every %ds", int(interval.Seconds()))

	var failures atomic.Int64
	_, err := c.AddFunc(cronSpec, func() {
		if err := probe(ctx); err != nil {
			count := failures.Add(1)
			logger.Error().Err(err).Int64("consecutiveFailures", count).Msg("Ledger node health check failed.")
			if count >= maxConsecutiveFailures {
				terminateService()
			}
			return
		}
		failures.Store(0)
	})

	if err != nil {
		return err
	}

	c.Start()

	go func() {
		<-ctx.Done()
		logger.Info().Msg("Stopping Health Check Cron")
		c.Stop()
	}()

	return nil
}

func terminateService() {
	logger.Fatal().Msg("Terminating service due to health check failure.")
	os.Exit(1)
}
