package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPingMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "🏓 Pong! Gateway latency: 42ms", pingMessage(42*time.Millisecond))
	assert.Equal(t, "🏓 Pong! Gateway latency: 0ms", pingMessage(0))
}
