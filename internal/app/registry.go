package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dkeye/Nearby/internal/core"
	"github.com/dkeye/Nearby/internal/domain"
	"github.com/rs/zerolog/log"
)

// PresenceFunc receives online/offline transitions. It is called outside the
// registry lock.
type PresenceFunc func(uid domain.UserID, online bool, at time.Time)

// Binding is one live session bound to a user.
type Binding struct {
	SID     core.SessionID
	User    domain.User
	Conn    core.SignalConnection
	Cancel  context.CancelFunc
	BoundAt time.Time
}

// close cancels the session context and closes the transport.
func (b *Binding) close() {
	if b == nil {
		return
	}
	if b.Cancel != nil {
		b.Cancel()
	}
	if b.Conn != nil {
		b.Conn.Close()
	}
}

// Registry is the single source of truth for "is this user reachable".
// At most one binding exists per user id.
type Registry struct {
	mu     sync.RWMutex
	byUser map[domain.UserID]*Binding

	Policy     Policy
	OnPresence PresenceFunc
	now        func() time.Time
}

func NewRegistry(policy Policy, onPresence PresenceFunc) *Registry {
	if policy == nil {
		policy = SimplePolicy{}
	}
	return &Registry{
		byUser:     make(map[domain.UserID]*Binding),
		Policy:     policy,
		OnPresence: onPresence,
		now:        time.Now,
	}
}

// Bind attaches b to its user and returns the superseded binding, if any.
// The caller is responsible for closing the returned binding.
func (r *Registry) Bind(b *Binding) *Binding {
	if b.BoundAt.IsZero() {
		b.BoundAt = r.now()
	}
	r.mu.Lock()
	prev := r.byUser[b.User.ID]
	r.byUser[b.User.ID] = b
	r.mu.Unlock()

	ev := log.Info().Str("module", "app.registry").Str("user", string(b.User.ID)).Str("sid", string(b.SID))
	if prev != nil {
		ev = ev.Str("superseded", string(prev.SID))
	}
	ev.Msg("bound session")

	r.presence(b.User.ID, true)
	return prev
}

// Unbind removes whatever session is bound to uid.
func (r *Registry) Unbind(uid domain.UserID) (*Binding, bool) {
	r.mu.Lock()
	b, ok := r.byUser[uid]
	if ok {
		delete(r.byUser, uid)
	}
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	log.Info().Str("module", "app.registry").Str("user", string(uid)).Str("sid", string(b.SID)).Msg("unbind session")
	r.presence(uid, false)
	return b, true
}

// UnbindSession removes the binding for uid only if it still belongs to sid.
// A superseded session closing late must not unbind its replacement.
func (r *Registry) UnbindSession(uid domain.UserID, sid core.SessionID) (*Binding, bool) {
	r.mu.Lock()
	b, ok := r.byUser[uid]
	if !ok || b.SID != sid {
		r.mu.Unlock()
		return nil, false
	}
	delete(r.byUser, uid)
	r.mu.Unlock()

	log.Info().Str("module", "app.registry").Str("user", string(uid)).Str("sid", string(sid)).Msg("unbind session")
	r.presence(uid, false)
	return b, true
}

func (r *Registry) IsOnline(uid domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byUser[uid]
	return ok
}

// Lookup returns a copy of the binding for uid.
func (r *Registry) Lookup(uid domain.UserID) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.byUser[uid]
	if !ok {
		return Binding{}, false
	}
	return *b, true
}

func (r *Registry) User(uid domain.UserID) (domain.User, bool) {
	b, ok := r.Lookup(uid)
	return b.User, ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

// UserIDs is a snapshot of every bound user.
func (r *Registry) UserIDs() []domain.UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.UserID, 0, len(r.byUser))
	for uid := range r.byUser {
		out = append(out, uid)
	}
	return out
}

// Send enqueues f on the user's transport without blocking. A failed enqueue
// is resolved through the Policy; the default evicts the session.
func (r *Registry) Send(uid domain.UserID, f core.Frame) core.SendResult {
	res, _ := r.send(uid, f)
	return res
}

// send also reports the session the frame was addressed to.
func (r *Registry) send(uid domain.UserID, f core.Frame) (core.SendResult, core.SessionID) {
	r.mu.RLock()
	b, ok := r.byUser[uid]
	r.mu.RUnlock()
	if !ok {
		return core.NotConnected, ""
	}

	err := b.Conn.TrySend(f)
	if err == nil {
		return core.Delivered, b.SID
	}

	action := KickMember
	if errors.Is(err, core.ErrBackpressure) {
		action = r.Policy.OnBackPressure(uid, err)
	}
	switch action {
	case DropFrame:
		log.Warn().Str("module", "app.registry").Str("user", string(uid)).Msg("frame dropped")
		return core.Dropped, b.SID
	default:
		log.Warn().Err(err).Str("module", "app.registry").Str("user", string(uid)).Str("sid", string(b.SID)).Msg("send failed, evicting session")
		if evicted, ok := r.UnbindSession(uid, b.SID); ok {
			evicted.close()
		}
		return core.TransportError, b.SID
	}
}

// CloseAll closes every bound session; used at shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.byUser
	r.byUser = make(map[domain.UserID]*Binding)
	r.mu.Unlock()
	for uid, b := range all {
		b.close()
		r.presence(uid, false)
	}
}

func (r *Registry) presence(uid domain.UserID, online bool) {
	if r.OnPresence != nil {
		r.OnPresence(uid, online, r.now())
	}
}
