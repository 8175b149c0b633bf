package app

import (
	"errors"
	"testing"

	"github.com/dkeye/Nearby/internal/core"
	"github.com/dkeye/Nearby/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRoomFixture(t *testing.T, uids ...string) (*Broadcaster, map[string]*fakeConn) {
	t.Helper()
	reg := NewRegistry(nil, nil)
	mem := NewMembership()
	conns := make(map[string]*fakeConn, len(uids))
	for _, uid := range uids {
		conns[uid] = bind(reg, uid, "sid-"+uid)
		require.Equal(t, Joined, mem.TryJoin("r", domain.UserID(uid), 0))
	}
	return NewBroadcaster(reg, mem), conns
}

func TestBroadcaster_FanOutIsolation(t *testing.T) {
	b, conns := newRoomFixture(t, "a", "b", "c")
	conns["b"].err = errors.New("reset by peer")

	var reported []Eviction
	b.OnFailure = func(evicted []Eviction) { reported = append(reported, evicted...) }

	res := b.BroadcastToRoom("r", core.Frame("msg"), "")
	assert.Equal(t, 2, res.SendTo)
	assert.Equal(t, []domain.UserID{"b"}, res.Failed)
	assert.Equal(t, []string{"msg"}, conns["a"].Frames())
	assert.Equal(t, []string{"msg"}, conns["c"].Frames())

	assert.False(t, b.Registry.IsOnline("b"))
	assert.Equal(t, []Eviction{{User: "b", SID: "sid-b"}}, reported)
}

func TestBroadcaster_Exclude(t *testing.T) {
	b, conns := newRoomFixture(t, "a", "b")
	res := b.BroadcastToRoom("r", core.Frame("x"), "a")
	assert.Equal(t, 1, res.SendTo)
	assert.Empty(t, conns["a"].Frames())
	assert.Equal(t, []string{"x"}, conns["b"].Frames())
}

func TestBroadcaster_MemberWithoutSessionIsSkipped(t *testing.T) {
	b, _ := newRoomFixture(t, "a")
	b.Membership.TryJoin("r", "offline", 0)
	res := b.BroadcastToRoom("r", core.Frame("x"), "")
	assert.Equal(t, 1, res.SendTo)
	assert.Empty(t, res.Failed)
}

func TestBroadcaster_BroadcastToAllHeals(t *testing.T) {
	b, conns := newRoomFixture(t, "a", "b", "c")
	conns["c"].Close()

	res := b.BroadcastToAll(core.Frame("hello"))
	assert.Equal(t, 2, res.SendTo)
	assert.Equal(t, []domain.UserID{"c"}, res.Failed)
	assert.Equal(t, 2, b.Registry.Count())
}

func TestBroadcaster_SendToUser(t *testing.T) {
	b, conns := newRoomFixture(t, "a")
	var reported []Eviction
	b.OnFailure = func(evicted []Eviction) { reported = append(reported, evicted...) }

	assert.Equal(t, core.Delivered, b.SendToUser("a", core.Frame("1")))
	assert.Equal(t, core.NotConnected, b.SendToUser("nobody", core.Frame("1")))
	assert.Empty(t, reported)

	conns["a"].err = errors.New("eof")
	assert.Equal(t, core.TransportError, b.SendToUser("a", core.Frame("2")))
	assert.Equal(t, []Eviction{{User: "a", SID: "sid-a"}}, reported)
}
