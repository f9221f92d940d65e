package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickerRunsUntilCancelled(t *testing.T) {
	f := newDriverFixture(t, 60)
	f.registerAgents(t, 1)

	ticker := NewTicker(f.driver, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ticker.Run(ctx)
		close(done)
	}()

	// The sweep begins the event without any explicit start call.
	require.Eventually(t, func() bool {
		snapshot, err := f.driver.GetStatus(f.eventID.String())
		return err == nil && snapshot.ActiveAgentID != nil
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ticker did not stop after cancel")
	}
}

func TestTickerDefaultsInterval(t *testing.T) {
	f := newDriverFixture(t, 60)

	ticker := NewTicker(f.driver, 0)
	assert.Equal(t, 10*time.Second, ticker.interval)
}
