package core_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/rueidis"
	"github.com/rolewarden/rolewarden/internal/worker/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTest(t *testing.T) (rueidis.Client, func()) {
	t.Helper()
	// Start miniredis server
	mr, err := miniredis.Run()
	require.NoError(t, err)

	// Create Redis client
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return client, cleanup
}

func TestReportAndGetStatuses(t *testing.T) {
	t.Parallel()
	client, cleanup := setupTest(t)
	defer cleanup()

	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	monitor := core.NewMonitor(client, logger)

	err = monitor.ReportStatus(t.Context(), core.Status{
		WorkerID:    "worker-1",
		WorkerType:  "reconcile",
		CurrentTask: "Running tick",
		IsHealthy:   true,
	})
	require.NoError(t, err)

	statuses, err := monitor.GetAllStatuses(t.Context())
	require.NoError(t, err)
	require.Len(t, statuses, 1)

	assert.Equal(t, "worker-1", statuses[0].WorkerID)
	assert.Equal(t, "reconcile", statuses[0].WorkerType)
	assert.Equal(t, "Running tick", statuses[0].CurrentTask)
	assert.True(t, statuses[0].IsHealthy)
	assert.WithinDuration(t, time.Now(), statuses[0].LastSeen, time.Minute)
}

func TestStatusReporterLifecycle(t *testing.T) {
	t.Parallel()
	client, cleanup := setupTest(t)
	defer cleanup()

	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	reporter := core.NewStatusReporter(client, "reconcile", logger)
	assert.NotEmpty(t, reporter.GetWorkerID())

	reporter.UpdateStatus("Waiting for next tick")
	reporter.SetHealthy(false)

	reporter.Start(t.Context())
	defer reporter.Stop()

	// The reporter writes its initial status as soon as it starts.
	monitor := core.NewMonitor(client, logger)
	require.Eventually(t, func() bool {
		statuses, err := monitor.GetAllStatuses(t.Context())
		return err == nil && len(statuses) == 1
	}, 5*time.Second, 50*time.Millisecond)

	statuses, err := monitor.GetAllStatuses(t.Context())
	require.NoError(t, err)
	require.Len(t, statuses, 1)

	assert.Equal(t, reporter.GetWorkerID(), statuses[0].WorkerID)
	assert.Equal(t, "Waiting for next tick", statuses[0].CurrentTask)
	assert.False(t, statuses[0].IsHealthy)
}
