package app

import (
	"sort"
	"sync"
	"time"

	"github.com/dkeye/Nearby/internal/domain"
	"github.com/rs/zerolog/log"
)

type JoinResult int

const (
	Joined JoinResult = iota
	AtCapacity
	AlreadyMember
)

func (r JoinResult) String() string {
	switch r {
	case Joined:
		return "joined"
	case AtCapacity:
		return "at_capacity"
	case AlreadyMember:
		return "already_member"
	default:
		return "unknown"
	}
}

type LeaveResult int

const (
	Left LeaveResult = iota
	NotMember
)

// Occupant is a room member together with the moment it joined.
type Occupant struct {
	UserID   domain.UserID
	JoinedAt time.Time
}

// Departure lists who is left in a room after a user was removed from it.
type Departure struct {
	Room      domain.RoomID
	Remaining []domain.UserID
}

// Membership is the bidirectional room <-> user index.
// u is in rooms[r] iff r is in users[u]; empty rooms are pruned.
type Membership struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]map[domain.UserID]time.Time
	users map[domain.UserID]map[domain.RoomID]struct{}
	now   func() time.Time
}

func NewMembership() *Membership {
	return &Membership{
		rooms: make(map[domain.RoomID]map[domain.UserID]time.Time),
		users: make(map[domain.UserID]map[domain.RoomID]struct{}),
		now:   time.Now,
	}
}

// TryJoin admits uid into rid unless it is already there or the room holds
// capacity occupants. The occupant count is read under the same lock as the
// insert. capacity <= 0 means unlimited.
func (m *Membership) TryJoin(rid domain.RoomID, uid domain.UserID, capacity int) JoinResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	occ := m.rooms[rid]
	if _, ok := occ[uid]; ok {
		return AlreadyMember
	}
	if capacity > 0 && len(occ) >= capacity {
		return AtCapacity
	}
	if occ == nil {
		occ = make(map[domain.UserID]time.Time)
		m.rooms[rid] = occ
	}
	occ[uid] = m.now()

	set := m.users[uid]
	if set == nil {
		set = make(map[domain.RoomID]struct{})
		m.users[uid] = set
	}
	set[rid] = struct{}{}

	log.Debug().Str("module", "app.membership").Str("room", string(rid)).Str("user", string(uid)).Int("occupants", len(occ)).Msg("joined")
	return Joined
}

func (m *Membership) Leave(rid domain.RoomID, uid domain.UserID) LeaveResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.removeLocked(rid, uid) {
		return NotMember
	}
	log.Debug().Str("module", "app.membership").Str("room", string(rid)).Str("user", string(uid)).Msg("left")
	return Left
}

func (m *Membership) removeLocked(rid domain.RoomID, uid domain.UserID) bool {
	occ, ok := m.rooms[rid]
	if !ok {
		return false
	}
	if _, ok := occ[uid]; !ok {
		return false
	}
	delete(occ, uid)
	if len(occ) == 0 {
		delete(m.rooms, rid)
	}
	if set, ok := m.users[uid]; ok {
		delete(set, rid)
		if len(set) == 0 {
			delete(m.users, uid)
		}
	}
	return true
}

// MembersOf is a snapshot ordered by join time.
func (m *Membership) MembersOf(rid domain.RoomID) []Occupant {
	m.mu.RLock()
	occ := m.rooms[rid]
	out := make([]Occupant, 0, len(occ))
	for uid, at := range occ {
		out = append(out, Occupant{UserID: uid, JoinedAt: at})
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}

// MemberIDs is a snapshot of the user ids in rid.
func (m *Membership) MemberIDs(rid domain.RoomID) []domain.UserID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	occ := m.rooms[rid]
	out := make([]domain.UserID, 0, len(occ))
	for uid := range occ {
		out = append(out, uid)
	}
	return out
}

func (m *Membership) RoomsOf(uid domain.UserID) []domain.RoomID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := m.users[uid]
	out := make([]domain.RoomID, 0, len(set))
	for rid := range set {
		out = append(out, rid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (m *Membership) IsMember(rid domain.RoomID, uid domain.UserID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.rooms[rid][uid]
	return ok
}

func (m *Membership) Count(rid domain.RoomID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms[rid])
}

// Occupancy returns the member count of every non-empty room.
func (m *Membership) Occupancy() map[domain.RoomID]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[domain.RoomID]int, len(m.rooms))
	for rid, occ := range m.rooms {
		out[rid] = len(occ)
	}
	return out
}

// RemoveUserEverywhere drops uid from every room it occupies.
func (m *Membership) RemoveUserEverywhere(uid domain.UserID) []Departure {
	m.mu.Lock()
	defer m.mu.Unlock()

	set := m.users[uid]
	rids := make([]domain.RoomID, 0, len(set))
	for rid := range set {
		rids = append(rids, rid)
	}
	sort.Slice(rids, func(i, j int) bool { return rids[i] < rids[j] })

	out := make([]Departure, 0, len(rids))
	for _, rid := range rids {
		m.removeLocked(rid, uid)
		remaining := make([]domain.UserID, 0, len(m.rooms[rid]))
		for other := range m.rooms[rid] {
			remaining = append(remaining, other)
		}
		out = append(out, Departure{Room: rid, Remaining: remaining})
	}
	if len(out) > 0 {
		log.Debug().Str("module", "app.membership").Str("user", string(uid)).Int("rooms", len(out)).Msg("removed everywhere")
	}
	return out
}
