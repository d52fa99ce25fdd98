package commands

import (
	"fmt"
	"time"

	"github.com/disgoorg/disgo/events"
)

// HandlePing replies with the current gateway latency. Unlike the rest of
// the command surface it is open to every member as a liveness check.
func (h *Handler) HandlePing(event *events.ApplicationCommandInteractionCreate) {
	h.Respond(event, pingMessage(event.Client().Gateway().Latency()))
}

func pingMessage(latency time.Duration) string {
	return fmt.Sprintf("🏓 Pong! Gateway latency: %dms", latency.Milliseconds())
}
