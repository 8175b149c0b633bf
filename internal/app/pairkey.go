package app

import (
	"time"

	"github.com/dkeye/Nearby/internal/domain"
)

// pairKey identifies an unordered pair of users. lo < hi always holds, so
// (a, b) and (b, a) map to the same key.
type pairKey struct {
	lo, hi domain.UserID
}

func newPairKey(a, b domain.UserID) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

func (k pairKey) has(uid domain.UserID) bool {
	return k.lo == uid || k.hi == uid
}

type pairEntry struct {
	distance float64
	near     bool
	seenAt   time.Time
}

// pairCache holds the last observed distance and near flag per user pair.
type pairCache map[pairKey]pairEntry

// observe stores the new distance and reports the previous flag. A missing
// entry counts as "not near".
func (c pairCache) observe(a, b domain.UserID, distance, threshold float64, at time.Time) (was, is bool) {
	k := newPairKey(a, b)
	was = c[k].near
	is = distance <= threshold
	c[k] = pairEntry{distance: distance, near: is, seenAt: at}
	return was, is
}

func (c pairCache) dropUser(uid domain.UserID) int {
	n := 0
	for k := range c {
		if k.has(uid) {
			delete(c, k)
			n++
		}
	}
	return n
}

func (c pairCache) dropOlderThan(cutoff time.Time) int {
	n := 0
	for k, e := range c {
		if e.seenAt.Before(cutoff) {
			delete(c, k)
			n++
		}
	}
	return n
}

// fenceKey identifies a (user, room) geofence status.
type fenceKey struct {
	user domain.UserID
	room domain.RoomID
}

type fenceStatus struct {
	inside bool
	seenAt time.Time
}
