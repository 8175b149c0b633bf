package orch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/dkeye/Nearby/internal/app"
	"github.com/dkeye/Nearby/internal/core"
	"github.com/dkeye/Nearby/internal/domain"
	"github.com/dkeye/Nearby/internal/geo"
	"github.com/rs/zerolog/log"
)

// roomLocks serialises accept-and-enqueue per room so every recipient sees a
// room's events in acceptance order. Entries are reference counted and
// removed once unused.
type roomLocks struct {
	mu sync.Mutex
	m  map[domain.RoomID]*roomLock
}

type roomLock struct {
	sync.Mutex
	refs int
}

func (l *roomLocks) lock(rid domain.RoomID) (unlock func()) {
	l.mu.Lock()
	rl, ok := l.m[rid]
	if !ok {
		rl = &roomLock{}
		l.m[rid] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.Lock()
	return func() {
		rl.Unlock()
		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.m, rid)
		}
		l.mu.Unlock()
	}
}

func (o *Orchestrator) handleJoin(ctx context.Context, s *session, user domain.User, ev *inbound) {
	rid := domain.RoomID(strings.TrimSpace(ev.RoomID))
	if rid == "" {
		o.reply(s, errorEvent{Type: EvError, Message: "Room ID required"})
		return
	}

	var loc *domain.LocationSample
	if ev.Location != nil {
		sample, err := ev.Location.sample(o.now())
		if err != nil {
			o.reply(s, errorEvent{Type: EvError, Message: "Invalid location"})
			return
		}
		loc = &sample
	}

	if msg := o.joinRoom(ctx, s.id, user, rid, loc); msg != "" {
		o.reply(s, errorEvent{Type: EvError, Message: msg})
	}
}

// joinRoom runs admission and, on success, the join notifications. It
// returns a client-facing reason when the join was refused. sid is the
// session the request arrived on; a join racing that session's eviction is
// undone without notifying anyone.
func (o *Orchestrator) joinRoom(ctx context.Context, sid core.SessionID, user domain.User, rid domain.RoomID, loc *domain.LocationSample) string {
	lctx, cancel := context.WithTimeout(ctx, o.cfg.LookupTimeout)
	defer cancel()

	room, err := o.Rooms.GetRoom(lctx, rid)
	switch {
	case errors.Is(err, core.ErrRoomNotFound):
		return "Room not found"
	case err != nil:
		log.Error().Err(err).Str("module", "orch").Str("room", string(rid)).Msg("room lookup")
		return "Failed to join room"
	case !room.Active:
		return "Room not found"
	}

	if loc != nil && room.HasBoundary() && !geo.WithinRadius(loc.Coordinate, room.Center, room.BoundaryRadius) {
		return "Outside room boundaries"
	}

	var messages []domain.MessageRecord
	if o.Store != nil {
		messages, err = o.Store.RecentMessages(lctx, rid, o.cfg.RecentMessages)
		if err != nil {
			log.Error().Err(err).Str("module", "orch").Str("room", string(rid)).Msg("recent messages")
			messages = nil
		}
	}
	if messages == nil {
		messages = []domain.MessageRecord{}
	}

	unlock := o.locks.lock(rid)
	defer unlock()

	res := o.Membership.TryJoin(rid, user.ID, room.Capacity)
	if !o.bound(user.ID, sid) {
		if res == app.Joined {
			o.Membership.Leave(rid, user.ID)
		}
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(rid)).Msg("join from stale session discarded")
		return ""
	}
	switch res {
	case app.AtCapacity:
		return "Room is at maximum capacity"
	case app.AlreadyMember:
		o.Broadcast.SendToUser(user.ID, o.mustEncode(roomJoinedEvent{
			Type: EvRoomJoined, Room: room, Users: o.memberViews(rid), Messages: messages,
		}))
		return ""
	}

	o.persist("record_membership", func(ctx context.Context) error {
		return o.Store.RecordMembership(ctx, rid, user.ID, loc)
	})
	log.Info().Str("module", "orch").Str("user", string(user.ID)).Str("room", string(rid)).Msg("joined room")

	users := o.memberViews(rid)
	o.Broadcast.SendToUser(user.ID, o.mustEncode(roomJoinedEvent{
		Type: EvRoomJoined, Room: room, Users: users, Messages: messages,
	}))
	o.Broadcast.BroadcastToRoom(rid, o.mustEncode(membershipEvent{
		Type: EvUserJoined, User: userRef{ID: user.ID, Name: user.Name}, RoomID: rid,
	}), user.ID)
	o.Broadcast.BroadcastToRoom(rid, o.mustEncode(roomUsersEvent{
		Type: EvRoomUsersUpdate, RoomID: rid, Users: users,
	}), "")
	return ""
}

func (o *Orchestrator) handleLeave(s *session, user domain.User, ev *inbound) {
	rid := domain.RoomID(strings.TrimSpace(ev.RoomID))
	if rid == "" {
		o.reply(s, errorEvent{Type: EvError, Message: "Room ID required"})
		return
	}

	unlock := o.locks.lock(rid)
	defer unlock()

	if o.Membership.Leave(rid, user.ID) == app.NotMember {
		o.reply(s, errorEvent{Type: EvError, Message: "Not a member of this room"})
		return
	}
	o.persist("close_membership", func(ctx context.Context) error {
		return o.Store.CloseMembership(ctx, rid, user.ID)
	})
	log.Info().Str("module", "orch").Str("user", string(user.ID)).Str("room", string(rid)).Msg("left room")
	o.announceDeparture(rid, userRef{ID: user.ID, Name: user.Name})
}

// announceDeparture must run under the room's ordering lock.
func (o *Orchestrator) announceDeparture(rid domain.RoomID, who userRef) {
	if o.Membership.Count(rid) == 0 {
		return
	}
	o.Broadcast.BroadcastToRoom(rid, o.mustEncode(membershipEvent{
		Type: EvUserLeft, User: who, RoomID: rid,
	}), who.ID)
	o.Broadcast.BroadcastToRoom(rid, o.mustEncode(roomUsersEvent{
		Type: EvRoomUsersUpdate, RoomID: rid, Users: o.memberViews(rid),
	}), "")
}

func (o *Orchestrator) handleSend(s *session, user domain.User, ev *inbound) {
	rid := domain.RoomID(strings.TrimSpace(ev.RoomID))
	content := strings.TrimSpace(ev.Message)
	if rid == "" || content == "" {
		o.reply(s, errorEvent{Type: EvError, Message: "Room ID and message content required"})
		return
	}
	if utf8.RuneCountInString(content) > o.cfg.MaxMessageLen {
		o.reply(s, errorEvent{Type: EvError, Message: "Message too long"})
		return
	}
	if !o.Limiter.Allow(user.ID) {
		o.reply(s, errorEvent{Type: EvError, Message: "Rate limited"})
		return
	}

	unlock := o.locks.lock(rid)
	if !o.Membership.IsMember(rid, user.ID) {
		unlock()
		o.reply(s, errorEvent{Type: EvError, Message: "Not a member of this room"})
		return
	}
	msg := domain.NewMessageRecord(o.newID(), rid, &user, content, o.now())
	o.Broadcast.BroadcastToRoom(rid, o.mustEncode(newMessageEvent{Type: EvNewMessage, Message: msg}), "")
	unlock()

	o.persist("insert_message", func(ctx context.Context) error {
		return o.Store.InsertMessage(ctx, msg)
	})
}

// memberViews renders the current occupants of rid for the wire.
func (o *Orchestrator) memberViews(rid domain.RoomID) []memberView {
	occ := o.Membership.MembersOf(rid)
	out := make([]memberView, 0, len(occ))
	for _, m := range occ {
		v := memberView{
			ID:       m.UserID,
			Name:     o.displayName(m.UserID),
			IsOnline: o.Registry.IsOnline(m.UserID),
			JoinedAt: m.JoinedAt.UTC(),
		}
		if s, ok := o.Tracker.LastLocation(m.UserID); ok {
			c := s.Coordinate
			v.Location = &c
		}
		out = append(out, v)
	}
	return out
}
