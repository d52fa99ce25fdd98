package bot

import (
	"testing"

	"github.com/disgoorg/disgo/discord"
	"github.com/rolewarden/rolewarden/internal/bot/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandCreates(t *testing.T) {
	t.Parallel()

	creates := commandCreates()

	names := make([]string, 0, len(creates))
	for _, create := range creates {
		cmd, ok := create.(discord.SlashCommandCreate)
		require.True(t, ok)

		// Every command is guild-scoped.
		require.NotNil(t, cmd.DMPermission)
		assert.False(t, *cmd.DMPermission)

		names = append(names, cmd.Name)
	}

	assert.ElementsMatch(t, []string{
		constants.SetupCommandName,
		constants.TrackCommandName,
		constants.SyncCommandName,
		constants.UnbanCommandName,
		constants.StatsCommandName,
		constants.PingCommandName,
	}, names)
}
