package types

import "time"

// DefaultBanCooldown is how long a non-compliant member stays banned before
// the sweep automatically unbans them.
const DefaultBanCooldown = 600 * time.Second

// TempBan records a member banned for holding no tracked role in any group.
// At most one row per (guild, user) may have Unbanned=false; the partial
// unique index in the schema enforces this.
type TempBan struct {
	ID        uint64    `bun:",pk,autoincrement"`
	GuildID   uint64    `bun:",notnull"`   // Managed guild the ban applies to
	UserID    uint64    `bun:",notnull"`   // Banned Discord user
	Reason    string    `bun:",type:text"` // Why the ban was issued
	BannedAt  time.Time `bun:",notnull"`   // When the ban was issued
	UnbanAt   time.Time `bun:",notnull"`   // When the sweep should lift the ban
	Unbanned  bool      `bun:",notnull"`   // Whether the ban has been lifted
	UpdatedAt time.Time `bun:",notnull"`   // When the record was last updated
}

// Expired reports whether the ban's cooldown has elapsed at the given time.
func (b *TempBan) Expired(now time.Time) bool {
	return !b.UnbanAt.After(now)
}

// IsActive reports whether the ban is still in force.
func (b *TempBan) IsActive() bool {
	return !b.Unbanned
}
