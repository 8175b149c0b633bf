package app

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/dkeye/Nearby/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertIndexConsistent(t *testing.T, m *Membership) {
	t.Helper()
	m.mu.RLock()
	defer m.mu.RUnlock()
	for rid, occ := range m.rooms {
		require.NotEmpty(t, occ, "empty room %s kept", rid)
		for uid := range occ {
			_, ok := m.users[uid][rid]
			require.True(t, ok, "%s in %s but not reverse-indexed", uid, rid)
		}
	}
	for uid, set := range m.users {
		require.NotEmpty(t, set, "empty room set for %s kept", uid)
		for rid := range set {
			_, ok := m.rooms[rid][uid]
			require.True(t, ok, "%s lists %s but room does not contain it", uid, rid)
		}
	}
}

func TestMembership_CapacityEnforcement(t *testing.T) {
	m := NewMembership()
	assert.Equal(t, Joined, m.TryJoin("r", "a", 2))
	assert.Equal(t, Joined, m.TryJoin("r", "b", 2))
	assert.Equal(t, AtCapacity, m.TryJoin("r", "c", 2))

	assert.ElementsMatch(t, []domain.UserID{"a", "b"}, m.MemberIDs("r"))
	assert.Empty(t, m.RoomsOf("c"))
}

func TestMembership_AlreadyMemberBeforeCapacity(t *testing.T) {
	m := NewMembership()
	m.TryJoin("r", "a", 1)
	assert.Equal(t, AlreadyMember, m.TryJoin("r", "a", 1))
	assert.Equal(t, 1, m.Count("r"))
}

func TestMembership_UnlimitedCapacity(t *testing.T) {
	m := NewMembership()
	for i := 0; i < 50; i++ {
		require.Equal(t, Joined, m.TryJoin("r", domain.UserID(fmt.Sprint(i)), 0))
	}
	assert.Equal(t, 50, m.Count("r"))
}

func TestMembership_LeavePrunesEmptyRoom(t *testing.T) {
	m := NewMembership()
	m.TryJoin("r", "a", 0)
	assert.Equal(t, Left, m.Leave("r", "a"))
	assert.Equal(t, NotMember, m.Leave("r", "a"))
	assert.NotContains(t, m.Occupancy(), domain.RoomID("r"))
	assertIndexConsistent(t, m)
}

func TestMembership_RemoveUserEverywhere(t *testing.T) {
	m := NewMembership()
	m.TryJoin("r1", "a", 0)
	m.TryJoin("r1", "b", 0)
	m.TryJoin("r2", "a", 0)

	deps := m.RemoveUserEverywhere("a")
	require.Len(t, deps, 2)
	assert.Equal(t, domain.RoomID("r1"), deps[0].Room)
	assert.Equal(t, []domain.UserID{"b"}, deps[0].Remaining)
	assert.Equal(t, domain.RoomID("r2"), deps[1].Room)
	assert.Empty(t, deps[1].Remaining)

	assert.Empty(t, m.RoomsOf("a"))
	assert.False(t, m.IsMember("r1", "a"))
	assert.Equal(t, map[domain.RoomID]int{"r1": 1}, m.Occupancy())
	assertIndexConsistent(t, m)
}

func TestMembership_MembersOfOrderedByJoin(t *testing.T) {
	m := NewMembership()
	m.TryJoin("r", "z", 0)
	m.TryJoin("r", "a", 0)
	members := m.MembersOf("r")
	require.Len(t, members, 2)
	assert.False(t, members[0].JoinedAt.After(members[1].JoinedAt))
}

func TestMembership_BidirectionalInvariantUnderConcurrency(t *testing.T) {
	m := NewMembership()
	rooms := []domain.RoomID{"r1", "r2", "r3"}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(seed))
			for i := 0; i < 500; i++ {
				uid := domain.UserID(fmt.Sprint("u", rnd.Intn(10)))
				rid := rooms[rnd.Intn(len(rooms))]
				switch rnd.Intn(3) {
				case 0:
					m.TryJoin(rid, uid, 4)
				case 1:
					m.Leave(rid, uid)
				default:
					m.RemoveUserEverywhere(uid)
				}
			}
		}(int64(w))
	}
	wg.Wait()

	assertIndexConsistent(t, m)
	for rid, n := range m.Occupancy() {
		assert.LessOrEqual(t, n, 4, "room %s over capacity", rid)
	}
}
