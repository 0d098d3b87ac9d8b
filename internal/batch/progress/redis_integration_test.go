//go:build integration

package progress_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/potchii/data-match-system-sub000/internal/batch/progress"
	"github.com/potchii/data-match-system-sub000/pkg/testutil/containers"
)

func TestRedisTracker(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	redis := containers.NewRedisContainer(t)
	tracker := progress.NewRedisTracker(redis.Client)
	ctx := context.Background()

	require.NoError(t, tracker.Incr(ctx, "batch-1", progress.FieldProcessed))
	require.NoError(t, tracker.Incr(ctx, "batch-1", progress.FieldProcessed))
	require.NoError(t, tracker.Incr(ctx, "batch-1", progress.FieldNewRecords))
	require.NoError(t, tracker.Incr(ctx, "batch-2", progress.FieldSkipped))

	counters, err := tracker.Snapshot(ctx, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), counters[progress.FieldProcessed])
	assert.Equal(t, int64(1), counters[progress.FieldNewRecords])

	counters, err = tracker.Snapshot(ctx, "batch-2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), counters[progress.FieldSkipped])

	// Counter keys expire so abandoned batches do not accumulate.
	ttl, err := redis.Client.TTL(ctx, "registry:batch:batch-1:progress").Result()
	require.NoError(t, err)
	assert.Positive(t, ttl)

	require.NoError(t, tracker.Clear(ctx, "batch-1"))
	counters, err = tracker.Snapshot(ctx, "batch-1")
	require.NoError(t, err)
	assert.Empty(t, counters)
}
