package reconcile_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rolewarden/rolewarden/internal/database/types"
	"github.com/rolewarden/rolewarden/internal/setup/config"
	"github.com/rolewarden/rolewarden/internal/worker/reconcile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeStore is an in-memory Store.
type fakeStore struct {
	mu     sync.Mutex
	groups map[uint64][]*types.TrackedGroup
	bans   []*types.TempBan
	nextID uint64
}

func newFakeStore() *fakeStore {
	return &fakeStore{groups: make(map[uint64][]*types.TrackedGroup)}
}

func (s *fakeStore) GuildsWithActive(_ context.Context) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	guilds := make([]uint64, 0, len(s.groups))
	for guildID := range s.groups {
		guilds = append(guilds, guildID)
	}

	return guilds, nil
}

func (s *fakeStore) ActiveGroups(_ context.Context, guildID uint64) ([]*types.TrackedGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.groups[guildID], nil
}

func (s *fakeStore) ActiveBan(_ context.Context, guildID, userID uint64) (*types.TempBan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ban := range s.bans {
		if ban.GuildID == guildID && ban.UserID == userID && !ban.Unbanned {
			return ban, nil
		}
	}

	return nil, nil
}

func (s *fakeStore) BanIfAbsent(
	_ context.Context, guildID, userID uint64, reason string, cooldown time.Duration,
) (*types.TempBan, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ban := range s.bans {
		if ban.GuildID == guildID && ban.UserID == userID && !ban.Unbanned {
			return ban, false, nil
		}
	}

	now := time.Now()
	s.nextID++
	ban := &types.TempBan{
		ID:       s.nextID,
		GuildID:  guildID,
		UserID:   userID,
		Reason:   reason,
		BannedAt: now,
		UnbanAt:  now.Add(cooldown),
	}
	s.bans = append(s.bans, ban)

	return ban, true, nil
}

func (s *fakeStore) SweepCandidates(_ context.Context, now time.Time, limit int) ([]*types.TempBan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expired := make([]*types.TempBan, 0)
	for _, ban := range s.bans {
		if !ban.Unbanned && !ban.UnbanAt.After(now) {
			expired = append(expired, ban)
			if len(expired) == limit {
				break
			}
		}
	}

	return expired, nil
}

func (s *fakeStore) Lift(_ context.Context, banID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ban := range s.bans {
		if ban.ID == banID {
			ban.Unbanned = true
			return nil
		}
	}

	return nil
}

// fakeOracle answers from a fixed (guild, user, role) set.
type fakeOracle struct {
	held map[string]bool
	errs map[uint64]error // per-user lookup failures
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{held: make(map[string]bool), errs: make(map[uint64]error)}
}

func oracleKey(guildID, userID, roleID uint64) string {
	return fmt.Sprintf("%d:%d:%d", guildID, userID, roleID)
}

func (o *fakeOracle) set(guildID, userID, roleID uint64, held bool) {
	o.held[oracleKey(guildID, userID, roleID)] = held
}

func (o *fakeOracle) HasRole(_ context.Context, guildID, userID, roleID uint64) (bool, error) {
	if err := o.errs[userID]; err != nil {
		return false, err
	}

	return o.held[oracleKey(guildID, userID, roleID)], nil
}

type actuatorCall struct {
	guildID uint64
	userID  uint64
	roleID  uint64
}

// fakeActuator records every mutation.
type fakeActuator struct {
	mu      sync.Mutex
	grants  []actuatorCall
	revokes []actuatorCall
	bans    []actuatorCall
	unbans  []actuatorCall

	banErrFor   map[uint64]error // per-user ban failures
	unbanErrFor map[uint64]error // per-user unban failures
}

func newFakeActuator() *fakeActuator {
	return &fakeActuator{
		banErrFor:   make(map[uint64]error),
		unbanErrFor: make(map[uint64]error),
	}
}

func (a *fakeActuator) GrantRole(_ context.Context, guildID, userID, roleID uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.grants = append(a.grants, actuatorCall{guildID, userID, roleID})

	return nil
}

func (a *fakeActuator) RevokeRole(_ context.Context, guildID, userID, roleID uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.revokes = append(a.revokes, actuatorCall{guildID, userID, roleID})

	return nil
}

func (a *fakeActuator) BanMember(_ context.Context, guildID, userID uint64, _ string) error {
	if err := a.banErrFor[userID]; err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.bans = append(a.bans, actuatorCall{guildID, userID, 0})

	return nil
}

func (a *fakeActuator) UnbanMember(_ context.Context, guildID, userID uint64) error {
	if err := a.unbanErrFor[userID]; err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.unbans = append(a.unbans, actuatorCall{guildID, userID, 0})

	return nil
}

func (a *fakeActuator) totalCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.grants) + len(a.revokes) + len(a.bans) + len(a.unbans)
}

// fakeMembers serves member pages in ascending user ID order.
type fakeMembers struct {
	members map[uint64][]reconcile.Member
}

func newFakeMembers() *fakeMembers {
	return &fakeMembers{members: make(map[uint64][]reconcile.Member)}
}

func (m *fakeMembers) ListMembers(
	_ context.Context, guildID uint64, limit int, afterUserID uint64,
) ([]reconcile.Member, error) {
	page := make([]reconcile.Member, 0, limit)
	for _, member := range m.members[guildID] {
		if member.UserID <= afterUserID {
			continue
		}

		page = append(page, member)
		if len(page) == limit {
			break
		}
	}

	return page, nil
}

func (m *fakeMembers) GetMember(_ context.Context, guildID, userID uint64) (*reconcile.Member, error) {
	for i := range m.members[guildID] {
		if m.members[guildID][i].UserID == userID {
			member := m.members[guildID][i]
			return &member, nil
		}
	}

	return nil, nil
}

func (m *fakeMembers) setRoles(guildID, userID uint64, roleIDs ...uint64) {
	for i := range m.members[guildID] {
		if m.members[guildID][i].UserID == userID {
			m.members[guildID][i].RoleIDs = roleIDs
			return
		}
	}

	m.members[guildID] = append(m.members[guildID], reconcile.Member{UserID: userID, RoleIDs: roleIDs})
}

func testConfig() *config.Reconcile {
	return &config.Reconcile{
		IntervalSeconds:       60,
		MemberDelayMillis:     1,
		MemberJitterMillis:    0,
		BanCooldownSeconds:    600,
		MembersPerTick:        200,
		SweepBatchSize:        100,
		RequestTimeoutSeconds: 5,
	}
}

func setupEngine(t *testing.T, cfg *config.Reconcile) (*reconcile.Engine, *fakeStore, *fakeOracle, *fakeActuator, *fakeMembers) {
	t.Helper()

	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	store := newFakeStore()
	oracle := newFakeOracle()
	actuator := newFakeActuator()
	members := newFakeMembers()

	engine := reconcile.NewEngine(store, oracle, actuator, members, cfg, logger)

	return engine, store, oracle, actuator, members
}

func trackedGroup(guildID, sourceGuildID, localRoleID uint64, sourceRoleIDs ...uint64) *types.TrackedGroup {
	group := &types.TrackedGroup{
		GuildID:       guildID,
		SourceGuildID: sourceGuildID,
		LocalRoleID:   localRoleID,
	}
	for _, roleID := range sourceRoleIDs {
		group.Entries = append(group.Entries, &types.TrackedRole{
			GuildID:       guildID,
			SourceGuildID: sourceGuildID,
			SourceRoleID:  roleID,
			LocalRoleID:   localRoleID,
			Active:        true,
		})
	}

	return group
}

func TestGrantMissingRole(t *testing.T) {
	t.Parallel()
	engine, store, oracle, actuator, members := setupEngine(t, testConfig())

	store.groups[10] = []*types.TrackedGroup{trackedGroup(10, 20, 444, 111)}
	oracle.set(20, 1, 111, true)
	members.setRoles(10, 1)

	require.NoError(t, engine.RunTick(t.Context()))

	require.Len(t, actuator.grants, 1)
	assert.Equal(t, actuatorCall{10, 1, 444}, actuator.grants[0])
	assert.Empty(t, actuator.revokes)
	assert.Empty(t, actuator.bans)
}

func TestRevokeStaleRole(t *testing.T) {
	t.Parallel()
	engine, store, oracle, actuator, members := setupEngine(t, testConfig())

	store.groups[10] = []*types.TrackedGroup{
		trackedGroup(10, 20, 444, 111),
		trackedGroup(10, 30, 555, 222),
	}

	// Holds the second group's remote role, so the stale first local role is
	// revoked without a ban.
	oracle.set(30, 1, 222, true)
	members.setRoles(10, 1, 444, 555)

	require.NoError(t, engine.RunTick(t.Context()))

	require.Len(t, actuator.revokes, 1)
	assert.Equal(t, actuatorCall{10, 1, 444}, actuator.revokes[0])
	assert.Empty(t, actuator.bans)
}

func TestTickIdempotence(t *testing.T) {
	t.Parallel()
	engine, store, oracle, actuator, members := setupEngine(t, testConfig())

	store.groups[10] = []*types.TrackedGroup{trackedGroup(10, 20, 444, 111)}
	oracle.set(20, 1, 111, true)
	members.setRoles(10, 1)

	require.NoError(t, engine.RunTick(t.Context()))
	require.Len(t, actuator.grants, 1)

	// The platform state now matches the oracle. A second tick with an
	// unchanged oracle produces no further actuator calls.
	members.setRoles(10, 1, 444)
	before := actuator.totalCalls()

	require.NoError(t, engine.RunTick(t.Context()))
	assert.Equal(t, before, actuator.totalCalls())
}

func TestBanNonCompliantExactlyOnce(t *testing.T) {
	t.Parallel()
	engine, store, _, actuator, members := setupEngine(t, testConfig())

	store.groups[10] = []*types.TrackedGroup{trackedGroup(10, 20, 444, 111)}
	members.setRoles(10, 1)

	require.NoError(t, engine.RunTick(t.Context()))

	require.Len(t, actuator.bans, 1)
	require.Len(t, store.bans, 1)
	assert.WithinDuration(t, time.Now().Add(600*time.Second), store.bans[0].UnbanAt, 5*time.Second)

	// The ban landed, so the member is gone from the guild. Later ticks
	// neither touch the platform nor record a second row.
	members.members[10] = nil

	require.NoError(t, engine.RunTick(t.Context()))
	require.NoError(t, engine.RunTick(t.Context()))

	assert.Len(t, actuator.bans, 1)
	assert.Len(t, store.bans, 1)
}

func TestBanReissuedAfterPlatformFailure(t *testing.T) {
	t.Parallel()
	engine, store, _, actuator, members := setupEngine(t, testConfig())

	store.groups[10] = []*types.TrackedGroup{trackedGroup(10, 20, 444, 111)}
	members.setRoles(10, 1)

	// The row is recorded but the platform call fails, leaving the member
	// unbanned on Discord.
	actuator.banErrFor[1] = errors.New("api down")
	require.NoError(t, engine.RunTick(t.Context()))

	require.Len(t, store.bans, 1)
	assert.Empty(t, actuator.bans)
	recordedUnbanAt := store.bans[0].UnbanAt

	// The member is still present on the next tick, so the recorded ban is
	// reissued without creating a second row or resetting the cooldown.
	delete(actuator.banErrFor, 1)
	require.NoError(t, engine.RunTick(t.Context()))

	require.Len(t, actuator.bans, 1)
	assert.Equal(t, actuatorCall{10, 1, 0}, actuator.bans[0])
	require.Len(t, store.bans, 1)
	assert.Equal(t, recordedUnbanAt, store.bans[0].UnbanAt)
}

func TestOrWithinGroupPreventsBan(t *testing.T) {
	t.Parallel()
	engine, store, oracle, actuator, members := setupEngine(t, testConfig())

	// Two remote roles in one group; holding either one is enough.
	store.groups[10] = []*types.TrackedGroup{trackedGroup(10, 20, 444, 111, 222)}
	oracle.set(20, 1, 222, true)
	members.setRoles(10, 1, 444)

	require.NoError(t, engine.RunTick(t.Context()))

	assert.Empty(t, actuator.bans)
	assert.Empty(t, actuator.revokes)
}

func TestSweepExpiredBans(t *testing.T) {
	t.Parallel()
	engine, store, _, actuator, _ := setupEngine(t, testConfig())

	now := time.Now()
	store.bans = []*types.TempBan{
		{ID: 1, GuildID: 10, UserID: 1, UnbanAt: now.Add(-time.Minute)},
		{ID: 2, GuildID: 10, UserID: 2, UnbanAt: now.Add(time.Hour)},
		{ID: 3, GuildID: 11, UserID: 3, UnbanAt: now.Add(-time.Second)},
	}

	// The sweep runs even with no tracked roles configured.
	require.NoError(t, engine.RunTick(t.Context()))

	require.Len(t, actuator.unbans, 2)
	assert.True(t, store.bans[0].Unbanned)
	assert.False(t, store.bans[1].Unbanned)
	assert.True(t, store.bans[2].Unbanned)
}

func TestSweepKeepsRowOnUnbanFailure(t *testing.T) {
	t.Parallel()
	engine, store, _, actuator, _ := setupEngine(t, testConfig())

	store.bans = []*types.TempBan{
		{ID: 1, GuildID: 10, UserID: 1, UnbanAt: time.Now().Add(-time.Minute)},
	}
	actuator.unbanErrFor[1] = errors.New("api down")

	require.NoError(t, engine.RunTick(t.Context()))

	// The row is only marked unbanned after the platform call succeeds, so a
	// failed unban is retried on the next sweep.
	assert.False(t, store.bans[0].Unbanned)

	delete(actuator.unbanErrFor, 1)
	require.NoError(t, engine.RunTick(t.Context()))

	assert.True(t, store.bans[0].Unbanned)
}

func TestUnresolvedGroupSkipped(t *testing.T) {
	t.Parallel()
	engine, store, oracle, actuator, members := setupEngine(t, testConfig())

	// No local role resolved yet: the group is still being configured and
	// must not produce any actuator traffic.
	store.groups[10] = []*types.TrackedGroup{trackedGroup(10, 20, 0, 111)}
	oracle.set(20, 1, 111, true)
	members.setRoles(10, 1)

	require.NoError(t, engine.RunTick(t.Context()))

	assert.Zero(t, actuator.totalCalls())
}

func TestDeactivatedGroupNoLongerSynced(t *testing.T) {
	t.Parallel()
	engine, store, oracle, actuator, members := setupEngine(t, testConfig())

	store.groups[10] = []*types.TrackedGroup{trackedGroup(10, 20, 444, 111)}
	oracle.set(20, 1, 111, true)
	members.setRoles(10, 1)

	require.NoError(t, engine.RunTick(t.Context()))
	require.Len(t, actuator.grants, 1)

	// The sole entry is removed. The member keeps the role on the platform
	// but the engine never grants or revokes it again.
	store.groups = map[uint64][]*types.TrackedGroup{}
	members.setRoles(10, 1, 444)
	before := actuator.totalCalls()

	require.NoError(t, engine.RunTick(t.Context()))
	assert.Equal(t, before, actuator.totalCalls())
}

func TestBotsSkipped(t *testing.T) {
	t.Parallel()
	engine, store, _, actuator, members := setupEngine(t, testConfig())

	store.groups[10] = []*types.TrackedGroup{trackedGroup(10, 20, 444, 111)}
	members.members[10] = []reconcile.Member{{UserID: 1, Bot: true}}

	require.NoError(t, engine.RunTick(t.Context()))

	assert.Zero(t, actuator.totalCalls())
}

func TestMemberFailureIsolation(t *testing.T) {
	t.Parallel()
	engine, store, oracle, actuator, members := setupEngine(t, testConfig())

	store.groups[10] = []*types.TrackedGroup{trackedGroup(10, 20, 444, 111)}
	oracle.errs[1] = errors.New("lookup failed")
	oracle.set(20, 2, 111, true)
	members.setRoles(10, 1)
	members.setRoles(10, 2)

	require.NoError(t, engine.RunTick(t.Context()))

	// Member 1's failure neither bans them nor stops member 2's grant.
	require.Len(t, actuator.grants, 1)
	assert.Equal(t, uint64(2), actuator.grants[0].userID)
	assert.Empty(t, actuator.bans)
}

func TestCursorRotation(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.MembersPerTick = 2

	engine, store, oracle, actuator, members := setupEngine(t, cfg)

	store.groups[10] = []*types.TrackedGroup{trackedGroup(10, 20, 444, 111)}
	for userID := uint64(1); userID <= 3; userID++ {
		oracle.set(20, userID, 111, true)
		members.setRoles(10, userID)
	}

	// First tick covers members 1 and 2, second covers member 3 and wraps,
	// third starts over from member 1.
	require.NoError(t, engine.RunTick(t.Context()))
	require.Len(t, actuator.grants, 2)
	assert.Equal(t, uint64(1), actuator.grants[0].userID)
	assert.Equal(t, uint64(2), actuator.grants[1].userID)

	require.NoError(t, engine.RunTick(t.Context()))
	require.Len(t, actuator.grants, 3)
	assert.Equal(t, uint64(3), actuator.grants[2].userID)

	require.NoError(t, engine.RunTick(t.Context()))
	require.Len(t, actuator.grants, 5)
	assert.Equal(t, uint64(1), actuator.grants[3].userID)
	assert.Equal(t, uint64(2), actuator.grants[4].userID)
}

func TestSyncMember(t *testing.T) {
	t.Parallel()
	engine, store, oracle, actuator, members := setupEngine(t, testConfig())

	store.groups[10] = []*types.TrackedGroup{trackedGroup(10, 20, 444, 111)}
	oracle.set(20, 1, 111, true)
	members.setRoles(10, 1)

	require.NoError(t, engine.SyncMember(t.Context(), 10, 1))

	require.Len(t, actuator.grants, 1)
	assert.Equal(t, actuatorCall{10, 1, 444}, actuator.grants[0])
}

func TestSyncMemberAbsentUser(t *testing.T) {
	t.Parallel()
	engine, store, _, actuator, _ := setupEngine(t, testConfig())

	store.groups[10] = []*types.TrackedGroup{trackedGroup(10, 20, 444, 111)}

	require.NoError(t, engine.SyncMember(t.Context(), 10, 999))
	assert.Zero(t, actuator.totalCalls())
}

// TestPackAccessScenario walks the full lifecycle: a member gains the local
// role through one of two grouped remote roles, loses it when the remote
// role disappears, is banned for global non-compliance and is unbanned once
// the cooldown elapses.
func TestPackAccessScenario(t *testing.T) {
	t.Parallel()
	engine, store, oracle, actuator, members := setupEngine(t, testConfig())

	const (
		communityX = uint64(1000)
		communityA = uint64(2000)
		wolfRole   = uint64(111)
		alphaRole  = uint64(222)
		packAccess = uint64(444)
		memberU    = uint64(42)
	)

	store.groups[communityX] = []*types.TrackedGroup{
		trackedGroup(communityX, communityA, packAccess, wolfRole, alphaRole),
	}

	// U holds Alpha but not Wolf: OR within the group grants PackAccess.
	oracle.set(communityA, memberU, alphaRole, true)
	members.setRoles(communityX, memberU)

	require.NoError(t, engine.RunTick(t.Context()))

	require.Len(t, actuator.grants, 1)
	assert.Equal(t, actuatorCall{communityX, memberU, packAccess}, actuator.grants[0])

	// U loses Alpha and holds nothing else tracked: PackAccess is revoked
	// and U is banned with the unban scheduled a cooldown away.
	oracle.set(communityA, memberU, alphaRole, false)
	members.setRoles(communityX, memberU, packAccess)

	require.NoError(t, engine.RunTick(t.Context()))

	require.Len(t, actuator.revokes, 1)
	assert.Equal(t, actuatorCall{communityX, memberU, packAccess}, actuator.revokes[0])
	require.Len(t, actuator.bans, 1)
	require.Len(t, store.bans, 1)
	assert.WithinDuration(t, time.Now().Add(600*time.Second), store.bans[0].UnbanAt, 5*time.Second)

	// Cooldown elapses; the next sweep unbans U and flips the flag.
	store.bans[0].UnbanAt = time.Now().Add(-time.Second)
	members.members[communityX] = nil

	require.NoError(t, engine.RunTick(t.Context()))

	require.Len(t, actuator.unbans, 1)
	assert.Equal(t, actuatorCall{communityX, memberU, 0}, actuator.unbans[0])
	assert.True(t, store.bans[0].Unbanned)
}
