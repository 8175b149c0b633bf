package app

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Nearby/internal/core"
	"github.com/dkeye/Nearby/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type presenceLog struct {
	mu     sync.Mutex
	events []bool
}

func (p *presenceLog) record(_ domain.UserID, online bool, _ time.Time) {
	p.mu.Lock()
	p.events = append(p.events, online)
	p.mu.Unlock()
}

func bind(reg *Registry, uid, sid string) *fakeConn {
	c := &fakeConn{}
	reg.Bind(&Binding{SID: core.SessionID(sid), User: domain.User{ID: domain.UserID(uid), Name: uid}, Conn: c})
	return c
}

func TestRegistry_SupersedeKeepsOneSession(t *testing.T) {
	reg := NewRegistry(nil, nil)
	c1 := &fakeConn{}
	prev := reg.Bind(&Binding{SID: "s1", User: domain.User{ID: "u"}, Conn: c1})
	assert.Nil(t, prev)

	c2 := &fakeConn{}
	prev = reg.Bind(&Binding{SID: "s2", User: domain.User{ID: "u"}, Conn: c2})
	require.NotNil(t, prev)
	assert.Equal(t, core.SessionID("s1"), prev.SID)
	prev.close()

	assert.True(t, reg.IsOnline("u"))
	assert.Equal(t, core.Delivered, reg.Send("u", core.Frame("hi")))
	assert.Empty(t, c1.Frames())
	assert.Equal(t, []string{"hi"}, c2.Frames())
	assert.True(t, c1.IsClosed())
	assert.Equal(t, 1, reg.Count())
}

func TestRegistry_UnbindSessionIgnoresSupersededSession(t *testing.T) {
	reg := NewRegistry(nil, nil)
	bind(reg, "u", "s1")
	bind(reg, "u", "s2")

	_, ok := reg.UnbindSession("u", "s1")
	assert.False(t, ok)
	assert.True(t, reg.IsOnline("u"))

	_, ok = reg.UnbindSession("u", "s2")
	assert.True(t, ok)
	assert.False(t, reg.IsOnline("u"))
}

func TestRegistry_SendResults(t *testing.T) {
	pl := &presenceLog{}
	reg := NewRegistry(nil, pl.record)

	assert.Equal(t, core.NotConnected, reg.Send("ghost", core.Frame("x")))

	c := bind(reg, "u", "s1")
	c.err = errors.New("broken pipe")
	assert.Equal(t, core.TransportError, reg.Send("u", core.Frame("x")))
	assert.False(t, reg.IsOnline("u"))
	assert.True(t, c.IsClosed())
	assert.Equal(t, []bool{true, false}, pl.events)
}

func TestRegistry_BackpressurePolicy(t *testing.T) {
	tests := []struct {
		name       string
		policy     Policy
		wantResult core.SendResult
		wantOnline bool
	}{
		{"kick", SimplePolicy{}, core.TransportError, false},
		{"drop", LenientPolicy{}, core.Dropped, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry(tt.policy, nil)
			c := bind(reg, "u", "s1")
			c.err = core.ErrBackpressure
			assert.Equal(t, tt.wantResult, reg.Send("u", core.Frame("x")))
			assert.Equal(t, tt.wantOnline, reg.IsOnline("u"))
		})
	}
}

func TestRegistry_ClosedConnIsAlwaysEvicted(t *testing.T) {
	reg := NewRegistry(LenientPolicy{}, nil)
	c := bind(reg, "u", "s1")
	c.Close()
	assert.Equal(t, core.TransportError, reg.Send("u", core.Frame("x")))
	assert.False(t, reg.IsOnline("u"))
}

func TestRegistry_CloseAll(t *testing.T) {
	reg := NewRegistry(nil, nil)
	a := bind(reg, "a", "s1")
	b := bind(reg, "b", "s2")
	reg.CloseAll()
	assert.Zero(t, reg.Count())
	assert.True(t, a.IsClosed())
	assert.True(t, b.IsClosed())
}
