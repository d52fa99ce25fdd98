package commands

import (
	"testing"

	"github.com/rolewarden/rolewarden/internal/worker/core"
	"github.com/stretchr/testify/assert"
)

func TestFormatWorkerStatuses(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Workers: none reporting", formatWorkerStatuses(nil))

	statuses := []core.Status{
		{WorkerType: "reconcile", CurrentTask: "Running tick", IsHealthy: true},
		{WorkerType: "reconcile", CurrentTask: "Waiting for next tick", IsHealthy: false},
	}

	out := formatWorkerStatuses(statuses)
	assert.Equal(t,
		"Workers:\n- reconcile (healthy): Running tick\n- reconcile (unhealthy): Waiting for next tick",
		out)
}
