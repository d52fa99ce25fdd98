package types_test

import (
	"testing"
	"time"

	"github.com/rolewarden/rolewarden/internal/database/types"
	"github.com/stretchr/testify/assert"
)

func TestTempBanExpired(t *testing.T) {
	t.Parallel()

	now := time.Now()

	tests := []struct {
		name    string
		unbanAt time.Time
		expired bool
	}{
		{name: "cooldown elapsed", unbanAt: now.Add(-time.Second), expired: true},
		{name: "exactly at boundary", unbanAt: now, expired: true},
		{name: "still cooling down", unbanAt: now.Add(time.Second), expired: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ban := &types.TempBan{UnbanAt: tt.unbanAt}
			assert.Equal(t, tt.expired, ban.Expired(now))
		})
	}
}

func TestTempBanIsActive(t *testing.T) {
	t.Parallel()

	assert.True(t, (&types.TempBan{}).IsActive())
	assert.False(t, (&types.TempBan{Unbanned: true}).IsActive())
}
