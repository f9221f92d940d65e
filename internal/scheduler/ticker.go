package scheduler

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/propertindo/pemilu-api/internal/logger"
)

// Ticker drives the scheduler on a fixed cadence. It is stateless between
// firings: every tick re-reads the ledger, so several instances across
// processes may run concurrently and only one commit of each transition
// wins. An external cron hitting the tick endpoint is equivalent.
type Ticker struct {
	driver   *Driver
	interval time.Duration
	log      *log.Logger
}

// NewTicker creates a ticker around the driver.
func NewTicker(driver *Driver, interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Ticker{
		driver:   driver,
		interval: interval,
		log:      logger.Scheduler(),
	}
}

// Run fires the scheduler until the context is cancelled. Blocking; run it
// on its own goroutine.
func (t *Ticker) Run(ctx context.Context) {
	t.log.Info("scheduler ticker started", "interval", t.interval)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.log.Info("scheduler ticker stopped")
			return
		case <-ticker.C:
			committed, err := t.driver.RunTickAll()
			if err != nil {
				t.log.Error("scheduler tick failed", "error", err)
				continue
			}
			if committed > 0 {
				t.log.Debug("scheduler tick committed transitions", "count", committed)
			}
		}
	}
}
