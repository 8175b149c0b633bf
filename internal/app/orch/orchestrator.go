package orch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/dkeye/Nearby/internal/app"
	"github.com/dkeye/Nearby/internal/core"
	"github.com/dkeye/Nearby/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

var errLocationRequired = errors.New("location required")

// Deps are the components and collaborators the orchestrator coordinates.
// Store, Friends and Events may be nil.
type Deps struct {
	Registry   *app.Registry
	Membership *app.Membership
	Tracker    *app.Tracker
	Broadcast  *app.Broadcaster
	Persist    *app.Persister
	Limiter    *app.RateLimiter

	Verifier core.Verifier
	Store    core.Store
	Rooms    core.RoomProvider
	Friends  core.FriendProvider
	Events   core.EventPublisher
}

type Config struct {
	RecentMessages  int
	LookupTimeout   time.Duration
	MaxMessageLen   int
	RejoinOnConnect bool
}

func DefaultConfig() Config {
	return Config{
		RecentMessages:  50,
		LookupTimeout:   3 * time.Second,
		MaxMessageLen:   2000,
		RejoinOnConnect: true,
	}
}

type sessionState int

const (
	stateUnauthenticated sessionState = iota
	stateAuthenticated
	stateClosed
)

type session struct {
	id     core.SessionID
	conn   core.SignalConnection
	cancel context.CancelFunc

	mu    sync.Mutex
	state sessionState
	user  domain.User
}

func (s *session) snapshot() (sessionState, domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.user
}

// Orchestrator is the per-session protocol state machine:
// Unauthenticated -> Authenticated(user) -> Closed.
type Orchestrator struct {
	Deps
	cfg Config

	mu       sync.Mutex
	sessions map[core.SessionID]*session

	locks roomLocks
	bg    conc.WaitGroup

	now   func() time.Time
	newID func() string
}

func New(d Deps, cfg Config) *Orchestrator {
	def := DefaultConfig()
	if cfg.RecentMessages <= 0 {
		cfg.RecentMessages = def.RecentMessages
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = def.LookupTimeout
	}
	if cfg.MaxMessageLen <= 0 {
		cfg.MaxMessageLen = def.MaxMessageLen
	}

	if d.Registry == nil {
		d.Registry = app.NewRegistry(app.SimplePolicy{}, nil)
	}
	if d.Membership == nil {
		d.Membership = app.NewMembership()
	}
	if d.Tracker == nil {
		d.Tracker = app.NewTracker(app.DefaultTrackerConfig())
	}
	if d.Broadcast == nil {
		d.Broadcast = app.NewBroadcaster(d.Registry, d.Membership)
	}
	if d.Persist == nil {
		d.Persist = app.NewPersister(1, 256, 5*time.Second)
	}
	if d.Limiter == nil {
		d.Limiter = app.NewRateLimiter(0, 0)
	}

	o := &Orchestrator{
		Deps:     d,
		cfg:      cfg,
		sessions: make(map[core.SessionID]*session),
		locks:    roomLocks{m: make(map[domain.RoomID]*roomLock)},
		now:      time.Now,
		newID:    uuid.NewString,
	}
	if d.Registry.OnPresence == nil {
		d.Registry.OnPresence = o.persistPresence
	}
	d.Broadcast.OnFailure = o.onTransportFailure
	return o
}

// OnSessionOpened registers a fresh unauthenticated session. cancel, when
// set, is invoked as the session is torn down.
func (o *Orchestrator) OnSessionOpened(conn core.SignalConnection, cancel context.CancelFunc) core.SessionID {
	s := &session{
		id:     core.SessionID(o.newID()),
		conn:   conn,
		cancel: cancel,
	}
	o.mu.Lock()
	o.sessions[s.id] = s
	o.mu.Unlock()
	log.Info().Str("module", "orch").Str("sid", string(s.id)).Msg("session opened")
	return s.id
}

// OnSessionClosed releases the session. If it was the user's live session the
// user is removed from every room and the tracker, and rooms are notified.
func (o *Orchestrator) OnSessionClosed(sid core.SessionID) {
	o.mu.Lock()
	s, ok := o.sessions[sid]
	delete(o.sessions, sid)
	o.mu.Unlock()
	if !ok {
		return
	}

	s.mu.Lock()
	prev := s.state
	s.state = stateClosed
	user := s.user
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("user", string(user.ID)).Msg("session closed")

	if prev != stateAuthenticated {
		return
	}
	if _, bound := o.Registry.UnbindSession(user.ID, sid); !bound {
		// superseded or already evicted
		return
	}
	o.dropUser(user)
}

// HandleInboundEvent interprets one raw client frame.
func (o *Orchestrator) HandleInboundEvent(ctx context.Context, sid core.SessionID, raw core.Frame) {
	o.mu.Lock()
	s, ok := o.sessions[sid]
	o.mu.Unlock()
	if !ok {
		log.Warn().Str("module", "orch").Str("sid", string(sid)).Msg("event for unknown session")
		return
	}

	state, user := s.snapshot()
	if state == stateClosed {
		return
	}

	var ev inbound
	if err := json.Unmarshal(raw, &ev); err != nil || ev.Type == "" {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Msg("bad json")
		o.reply(s, errorEvent{Type: EvError, Message: "Invalid message format"})
		if state == stateUnauthenticated {
			o.closeSession(s)
		}
		return
	}

	if state == stateUnauthenticated {
		if ev.Type != EvAuthenticate {
			o.reply(s, errorEvent{Type: EvError, Message: "Authentication required"})
			o.closeSession(s)
			return
		}
		o.authenticate(ctx, s, &ev)
		return
	}

	switch ev.Type {
	case EvAuthenticate:
		o.reply(s, errorEvent{Type: EvError, Message: "Already authenticated"})
	case EvJoinRoom:
		o.handleJoin(ctx, s, user, &ev)
	case EvLeaveRoom:
		o.handleLeave(s, user, &ev)
	case EvSendMessage:
		o.handleSend(s, user, &ev)
	case EvLocationUpdate:
		o.handleLocation(ctx, s, user, &ev)
	case EvPing:
		o.reply(s, pongEvent{Type: EvPong, Timestamp: o.now().UnixMilli()})
	default:
		log.Warn().Str("module", "orch").Str("sid", string(sid)).Str("type", ev.Type).Msg("unknown event")
		o.reply(s, errorEvent{Type: EvError, Message: "Unknown message type: " + ev.Type})
	}
}

func (o *Orchestrator) authenticate(ctx context.Context, s *session, ev *inbound) {
	credential := ev.Token
	if credential == "" {
		credential = ev.UserID
	}
	if credential == "" {
		o.reply(s, errorEvent{Type: EvError, Message: "User ID required"})
		o.closeSession(s)
		return
	}

	vctx, cancel := context.WithTimeout(ctx, o.cfg.LookupTimeout)
	user, err := o.Verifier.Verify(vctx, credential)
	cancel()
	if err != nil || user == nil {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(s.id)).Msg("authentication failed")
		o.reply(s, errorEvent{Type: EvError, Message: "Authentication failed"})
		o.closeSession(s)
		return
	}

	s.mu.Lock()
	if s.state != stateUnauthenticated {
		s.mu.Unlock()
		return
	}
	s.state = stateAuthenticated
	s.user = *user
	s.mu.Unlock()

	prev := o.Registry.Bind(&app.Binding{SID: s.id, User: *user, Conn: s.conn, Cancel: s.cancel})
	if prev != nil {
		o.supersede(prev)
	}
	log.Info().Str("module", "orch").Str("sid", string(s.id)).Str("user", string(user.ID)).Msg("authenticated")

	o.Broadcast.SendToUser(user.ID, o.mustEncode(connectedEvent{
		Type:      EvConnected,
		User:      userRef{ID: user.ID, Name: user.Name},
		Rooms:     o.Membership.RoomsOf(user.ID),
		Timestamp: o.now().UnixMilli(),
	}))

	if o.cfg.RejoinOnConnect && o.Store != nil {
		o.rejoin(ctx, s.id, *user)
	}
}

// markClosed stops a tracked session from handling further events.
func (o *Orchestrator) markClosed(sid core.SessionID) {
	o.mu.Lock()
	s, ok := o.sessions[sid]
	o.mu.Unlock()
	if !ok {
		return
	}
	s.mu.Lock()
	s.state = stateClosed
	s.mu.Unlock()
}

// bound reports whether sid still holds uid's live binding.
func (o *Orchestrator) bound(uid domain.UserID, sid core.SessionID) bool {
	b, ok := o.Registry.Lookup(uid)
	return ok && b.SID == sid
}

// supersede closes the session that lost its binding to a newer one.
func (o *Orchestrator) supersede(prev *app.Binding) {
	o.markClosed(prev.SID)
	if prev.Cancel != nil {
		prev.Cancel()
	}
	if prev.Conn != nil {
		prev.Conn.Close()
	}
	log.Info().Str("module", "orch").Str("sid", string(prev.SID)).Str("user", string(prev.User.ID)).Msg("session superseded")
}

// rejoin restores memberships the store still considers active.
func (o *Orchestrator) rejoin(ctx context.Context, sid core.SessionID, user domain.User) {
	lctx, cancel := context.WithTimeout(ctx, o.cfg.LookupTimeout)
	rids, err := o.Store.ActiveMemberships(lctx, user.ID)
	cancel()
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("user", string(user.ID)).Msg("load active memberships")
		return
	}
	for _, rid := range rids {
		if o.Membership.IsMember(rid, user.ID) {
			continue
		}
		if msg := o.joinRoom(ctx, sid, user, rid, nil); msg != "" {
			log.Info().Str("module", "orch").Str("user", string(user.ID)).Str("room", string(rid)).Str("reason", msg).Msg("rejoin skipped")
		}
	}
}

// onTransportFailure runs after a fan-out whose recipients could not be
// written to. Cleanup is deferred to a goroutine because the fan-out may be
// running under a room ordering lock.
func (o *Orchestrator) onTransportFailure(evicted []app.Eviction) {
	for _, ev := range evicted {
		// events still in flight on the evicted session must not re-add it
		o.markClosed(ev.SID)
		uid := ev.User
		o.bg.Go(func() {
			if o.Registry.IsOnline(uid) {
				// reconnected in between
				return
			}
			o.dropUser(domain.User{ID: uid, Name: o.displayName(uid)})
		})
	}
}

// dropUser removes an already-unbound user from every room and the tracker,
// then tells the remaining members. The user's rooms are locked in id order
// for the whole removal so no later room event can overtake the departure.
func (o *Orchestrator) dropUser(user domain.User) {
	uid := user.ID

	rooms := o.Membership.RoomsOf(uid)
	unlocks := make([]func(), 0, len(rooms))
	for _, rid := range rooms {
		unlocks = append(unlocks, o.locks.lock(rid))
	}

	for _, dep := range o.Membership.RemoveUserEverywhere(uid) {
		rid := dep.Room
		o.persist("close_membership", func(ctx context.Context) error {
			return o.Store.CloseMembership(ctx, rid, uid)
		})
		if len(dep.Remaining) > 0 {
			o.announceDeparture(rid, userRef{ID: uid, Name: user.Name})
		}
	}

	for i := len(unlocks) - 1; i >= 0; i-- {
		unlocks[i]()
	}
	o.Tracker.RemoveUser(uid)
	o.Limiter.Forget(uid)
	log.Info().Str("module", "orch").Str("user", string(uid)).Int("rooms", len(rooms)).Msg("user dropped")
}

func (o *Orchestrator) closeSession(s *session) {
	s.mu.Lock()
	s.state = stateClosed
	s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.conn.Close()
}

// reply writes directly to the originating session, bound or not.
func (o *Orchestrator) reply(s *session, v any) {
	f, err := encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("encode reply")
		return
	}
	if err := s.conn.TrySend(f); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(s.id)).Msg("reply failed")
		o.closeSession(s)
	}
}

func (o *Orchestrator) mustEncode(v any) core.Frame {
	f, err := encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("encode event")
		return core.Frame("{}")
	}
	return f
}

// displayName prefers the live binding and falls back to any session still
// tracked for the user (an evicted one waits here until its transport closes).
func (o *Orchestrator) displayName(uid domain.UserID) string {
	if u, ok := o.Registry.User(uid); ok && u.Name != "" {
		return u.Name
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, s := range o.sessions {
		s.mu.Lock()
		u := s.user
		s.mu.Unlock()
		if u.ID == uid && u.Name != "" {
			return u.Name
		}
	}
	return "Anonymous"
}

func (o *Orchestrator) persist(name string, fn func(ctx context.Context) error) {
	if o.Store == nil {
		return
	}
	o.Persist.Submit(name, fn)
}

func (o *Orchestrator) persistPresence(uid domain.UserID, online bool, at time.Time) {
	o.persist("set_online", func(ctx context.Context) error {
		return o.Store.SetOnline(ctx, uid, online, at)
	})
}

// Wait blocks until deferred cleanups have finished.
func (o *Orchestrator) Wait() {
	o.bg.Wait()
}

// Shutdown closes every session and waits for pending cleanup.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	all := make([]*session, 0, len(o.sessions))
	for _, s := range o.sessions {
		all = append(all, s)
	}
	o.mu.Unlock()
	for _, s := range all {
		o.closeSession(s)
	}
	o.Registry.CloseAll()
	o.bg.Wait()
	log.Info().Str("module", "orch").Int("sessions", len(all)).Msg("orchestrator shut down")
}
