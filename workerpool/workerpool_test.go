package workerpool_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzalendo/lingopref/workerpool"
)

func TestSubmitRunsTask(t *testing.T) {
	pool, err := workerpool.New(nil)
	require.NoError(t, err)
	defer pool.Shutdown()

	var ran atomic.Bool
	require.NoError(t, pool.Submit(t.Context(), func(_ context.Context) {
		ran.Store(true)
	}))

	assert.Eventually(t, ran.Load, time.Second, 5*time.Millisecond)
}

func TestSubmitRejectsCancelledContext(t *testing.T) {
	pool, err := workerpool.New(nil)
	require.NoError(t, err)
	defer pool.Shutdown()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err = pool.Submit(ctx, func(_ context.Context) {})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSubmitAfterShutdown(t *testing.T) {
	pool, err := workerpool.New(&workerpool.Options{Capacity: 2, Nonblocking: true})
	require.NoError(t, err)

	pool.Shutdown()

	err = pool.Submit(t.Context(), func(_ context.Context) {})
	assert.ErrorIs(t, err, workerpool.ErrPoolClosed)
}
