package types_test

import (
	"testing"

	"github.com/rolewarden/rolewarden/internal/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupTrackedRoles(t *testing.T) {
	t.Parallel()

	entries := []*types.TrackedRole{
		{ID: 1, GuildID: 10, SourceGuildID: 20, SourceRoleID: 111, LocalRoleID: 444},
		{ID: 2, GuildID: 10, SourceGuildID: 30, SourceRoleID: 333, LocalRoleID: 555},
		{ID: 3, GuildID: 10, SourceGuildID: 20, SourceRoleID: 222, LocalRoleID: 444},
	}

	groups := types.GroupTrackedRoles(entries)
	require.Len(t, groups, 2)

	// Source guilds keep their first-appearance order.
	assert.Equal(t, uint64(20), groups[0].SourceGuildID)
	assert.Equal(t, uint64(444), groups[0].LocalRoleID)
	assert.Len(t, groups[0].Entries, 2)

	assert.Equal(t, uint64(30), groups[1].SourceGuildID)
	assert.Equal(t, uint64(555), groups[1].LocalRoleID)
	assert.Len(t, groups[1].Entries, 1)
}

func TestGroupTrackedRolesUnresolvedEntry(t *testing.T) {
	t.Parallel()

	// The group's local role comes from the first resolved entry even when
	// an unresolved entry appears first.
	entries := []*types.TrackedRole{
		{ID: 1, GuildID: 10, SourceGuildID: 20, SourceRoleID: 111},
		{ID: 2, GuildID: 10, SourceGuildID: 20, SourceRoleID: 222, LocalRoleID: 444},
	}

	groups := types.GroupTrackedRoles(entries)
	require.Len(t, groups, 1)

	assert.Equal(t, uint64(444), groups[0].LocalRoleID)
	assert.True(t, groups[0].Resolved())
	assert.Len(t, groups[0].Entries, 2)
}

func TestGroupTrackedRolesAllUnresolved(t *testing.T) {
	t.Parallel()

	entries := []*types.TrackedRole{
		{ID: 1, GuildID: 10, SourceGuildID: 20, SourceRoleID: 111},
	}

	groups := types.GroupTrackedRoles(entries)
	require.Len(t, groups, 1)
	assert.False(t, groups[0].Resolved())
}

func TestGroupTrackedRolesEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, types.GroupTrackedRoles(nil))
}

func TestTrackedRoleResolved(t *testing.T) {
	t.Parallel()

	assert.False(t, (&types.TrackedRole{}).Resolved())
	assert.True(t, (&types.TrackedRole{LocalRoleID: 444}).Resolved())
}
