package sweeper_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drover-io/drover/internal/config"
	"github.com/drover-io/drover/internal/engine"
	"github.com/drover-io/drover/internal/store"
	"github.com/drover-io/drover/internal/sweeper"
	"github.com/drover-io/drover/pkg/api"
)

func newTestSetup(t *testing.T) (*engine.Engine, *sweeper.Sweeper) {
	t.Helper()

	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	cfg := config.NewDefaultConfig()
	cfg.Store.Addr = server.Addr()
	cfg.Store.Prefix = "drover-test"

	s, err := store.NewRedisStore(context.Background(), cfg.Store)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	eng := engine.New(cfg, engine.Dependencies{Store: s})
	return eng, sweeper.New(eng, 10*time.Millisecond)
}

func TestSweepOnce(t *testing.T) {
	eng, sw := newTestSetup(t)
	ctx := context.Background()

	flow, err := eng.CreateFlow(ctx, "agent-1", nil, 0)
	require.NoError(t, err)

	count, err := sw.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := eng.GetFlow(ctx, "agent-1", flow.ID)
	require.NoError(t, err)
	assert.Equal(t, api.FlowFailed, got.Status)
	assert.Equal(t, engine.SweeperActor, got.FailureReason.FailedBy)
}

func TestPeriodicSweep(t *testing.T) {
	eng, sw := newTestSetup(t)
	ctx := context.Background()

	flow, err := eng.CreateFlow(ctx, "agent-1", nil, time.Millisecond)
	require.NoError(t, err)

	sw.Start()
	defer sw.Stop()

	assert.Eventually(t, func() bool {
		got, err := eng.GetFlow(ctx, "agent-1", flow.ID)
		return err == nil && got.Status == api.FlowFailed
	}, time.Second, 10*time.Millisecond)
}

func TestOverlappingSweepsAreSafe(t *testing.T) {
	eng, sw := newTestSetup(t)
	ctx := context.Background()

	flow, err := eng.CreateFlow(ctx, "agent-1", nil, 0)
	require.NoError(t, err)

	done := make(chan int, 2)
	for range 2 {
		go func() {
			count, err := sw.SweepOnce(ctx)
			assert.NoError(t, err)
			done <- count
		}()
	}

	total := <-done + <-done
	assert.Equal(t, 1, total)

	got, err := eng.GetFlow(ctx, "agent-1", flow.ID)
	require.NoError(t, err)
	assert.Equal(t, api.FlowFailed, got.Status)
}

func TestStopHaltsSweeping(t *testing.T) {
	_, sw := newTestSetup(t)

	sw.Start()
	sw.Stop() // returns promptly, no goroutine leak
}
