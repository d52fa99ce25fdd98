package types_test

import (
	"testing"

	"github.com/rolewarden/rolewarden/internal/database/types"
	"github.com/stretchr/testify/assert"
)

func TestGuildChannelsTextChannelIDs(t *testing.T) {
	t.Parallel()

	channels := &types.GuildChannels{
		GuildID:     10,
		NewsID:      1,
		FloodID:     2,
		TagsID:      3,
		MediaID:     4,
		LogsID:      5,
		HighFloodID: 6,
	}

	// Tracked roles get access to the public text channels only; the
	// admin-only logs and high-flood channels are never included.
	assert.Equal(t, []uint64{1, 2, 3, 4}, channels.TextChannelIDs())
}
