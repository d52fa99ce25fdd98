package types

import "time"

// TrackedRole links a role on a source guild to a local role on a managed
// guild. All active entries sharing the same source guild form a group that
// resolves to a single local role; holding any remote role in the group
// grants the group's local role.
//
// Entries are deactivated rather than deleted so that re-adding the same
// (guild, source guild, source role) key reactivates the original record.
type TrackedRole struct {
	ID            uint64    `bun:",pk,autoincrement"`
	GuildID       uint64    `bun:",notnull"` // Managed guild the entry belongs to
	SourceGuildID uint64    `bun:",notnull"` // Guild the remote role lives in
	SourceRoleID  uint64    `bun:",notnull"` // Remote role whose possession is tracked
	LocalRoleID   uint64    `bun:",notnull"` // Local role granted to holders (0 until resolved)
	Active        bool      `bun:",notnull"`
	CreatedAt     time.Time `bun:",notnull"`
	UpdatedAt     time.Time `bun:",notnull"`
}

// Resolved reports whether the entry has been mapped to a local role yet.
// Unresolved entries contribute no access and are skipped by the engine.
func (t *TrackedRole) Resolved() bool {
	return t.LocalRoleID != 0
}

// TrackedGroup is the evaluation unit of the reconciliation engine: the set
// of tracked roles from one source guild, gating one local role.
type TrackedGroup struct {
	GuildID       uint64
	SourceGuildID uint64
	LocalRoleID   uint64
	Entries       []*TrackedRole
}

// Resolved reports whether the group has a local role to grant.
func (g *TrackedGroup) Resolved() bool {
	return g.LocalRoleID != 0
}

// GroupTrackedRoles buckets tracked roles by source guild, preserving the
// order in which source guilds first appear. The group's local role is taken
// from the first resolved entry; entries added before the group was resolved
// keep a zero local role and still count towards group membership.
func GroupTrackedRoles(entries []*TrackedRole) []*TrackedGroup {
	groups := make(map[uint64]*TrackedGroup)
	ordered := make([]*TrackedGroup, 0, len(entries))

	for _, entry := range entries {
		group, ok := groups[entry.SourceGuildID]
		if !ok {
			group = &TrackedGroup{
				GuildID:       entry.GuildID,
				SourceGuildID: entry.SourceGuildID,
			}
			groups[entry.SourceGuildID] = group
			ordered = append(ordered, group)
		}

		group.Entries = append(group.Entries, entry)
		if group.LocalRoleID == 0 && entry.LocalRoleID != 0 {
			group.LocalRoleID = entry.LocalRoleID
		}
	}

	return ordered
}
