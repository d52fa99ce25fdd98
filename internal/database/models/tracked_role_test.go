package models

import (
	"testing"
	"time"

	"github.com/rolewarden/rolewarden/internal/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanUpsertMissingKey(t *testing.T) {
	t.Parallel()

	now := time.Now()

	entry, action := planUpsert(nil, 10, 20, 111, now)

	assert.Equal(t, upsertInsert, action)
	require.NotNil(t, entry)
	assert.Equal(t, uint64(10), entry.GuildID)
	assert.Equal(t, uint64(20), entry.SourceGuildID)
	assert.Equal(t, uint64(111), entry.SourceRoleID)
	assert.True(t, entry.Active)
	assert.Equal(t, now, entry.CreatedAt)
}

func TestPlanUpsertActiveKeyIsNoOp(t *testing.T) {
	t.Parallel()

	created := time.Now().Add(-time.Hour)
	existing := &types.TrackedRole{
		ID:            7,
		GuildID:       10,
		SourceGuildID: 20,
		SourceRoleID:  111,
		LocalRoleID:   444,
		Active:        true,
		UpdatedAt:     created,
	}

	entry, action := planUpsert(existing, 10, 20, 111, time.Now())

	// Adding the same key twice while active keeps the one active record
	// unchanged, original ID included.
	assert.Equal(t, upsertReuse, action)
	assert.Same(t, existing, entry)
	assert.Equal(t, uint64(7), entry.ID)
	assert.Equal(t, created, entry.UpdatedAt)
}

func TestPlanUpsertRevivesDeactivatedKey(t *testing.T) {
	t.Parallel()

	now := time.Now()
	existing := &types.TrackedRole{
		ID:            7,
		GuildID:       10,
		SourceGuildID: 20,
		SourceRoleID:  111,
		LocalRoleID:   444,
		Active:        false,
	}

	entry, action := planUpsert(existing, 10, 20, 111, now)

	// Re-adding a deactivated key reactivates the original record instead
	// of inserting a duplicate.
	assert.Equal(t, upsertReactivate, action)
	assert.Equal(t, uint64(7), entry.ID)
	assert.Equal(t, uint64(444), entry.LocalRoleID)
	assert.True(t, entry.Active)
	assert.Equal(t, now, entry.UpdatedAt)
}
