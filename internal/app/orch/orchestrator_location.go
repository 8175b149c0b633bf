package orch

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/dkeye/Nearby/internal/app"
	"github.com/dkeye/Nearby/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrInvalidGeofence = errors.New("invalid geofence")

func (o *Orchestrator) handleLocation(ctx context.Context, s *session, user domain.User, ev *inbound) {
	sample, err := ev.Location.sample(o.now())
	switch {
	case errors.Is(err, errLocationRequired):
		o.reply(s, errorEvent{Type: EvError, Message: "Location required"})
		return
	case err != nil:
		o.reply(s, errorEvent{Type: EvError, Message: "Invalid coordinates"})
		return
	}

	var friends []domain.Friend
	if o.Friends != nil {
		fctx, cancel := context.WithTimeout(ctx, o.cfg.LookupTimeout)
		friends, err = o.Friends.FriendsOf(fctx, user.ID)
		cancel()
		if err != nil {
			log.Error().Err(err).Str("module", "orch").Str("user", string(user.ID)).Msg("friends lookup")
			friends = nil
		}
	}

	obs := o.Tracker.ObserveLocation(user.ID, sample, friends)
	if !o.bound(user.ID, s.id) {
		// evicted while the lookup ran
		if !o.Registry.IsOnline(user.ID) {
			o.Tracker.RemoveUser(user.ID)
		}
		return
	}

	o.persist("upsert_location", func(ctx context.Context) error {
		return o.Store.UpsertLocation(ctx, user.ID, sample)
	})

	for _, pe := range obs.Proximity {
		log.Info().Str("module", "orch").Str("user", string(pe.User)).Str("peer", string(pe.Peer)).
			Str("event", string(pe.Kind)).Float64("distance", pe.Distance).Msg("proximity transition")
		o.publish(string(pe.User), domainEvent{
			Kind: "proximity", EventType: string(pe.Kind), UserID: pe.User, PeerID: pe.Peer,
			Distance: round1(pe.Distance), Timestamp: pe.At,
		})
		if pe.Kind != app.Entered {
			continue
		}
		o.Broadcast.SendToUser(user.ID, o.mustEncode(friendNearbyEvent{
			Type:     EvFriendNearby,
			Friend:   userRef{ID: pe.Peer, Name: o.displayName(pe.Peer)},
			Distance: math.Round(pe.Distance),
		}))
	}
	for _, ge := range obs.Geofence {
		o.publish(string(ge.User), domainEvent{
			Kind: "geofence", EventType: string(ge.Kind), UserID: ge.User, RoomID: ge.Room,
			Distance: round1(ge.Distance), Timestamp: ge.At,
		})
	}
}

// publish forwards a domain event off the realtime path.
func (o *Orchestrator) publish(key string, ev domainEvent) {
	if o.Events == nil {
		return
	}
	o.Persist.Submit("publish_"+ev.Kind, func(ctx context.Context) error {
		return o.Events.Publish(ctx, key, ev)
	})
}

// CreateGeofence registers the circular region of a room.
func (o *Orchestrator) CreateGeofence(rid domain.RoomID, name string, center domain.Coordinate, radius float64) error {
	if rid == "" || radius <= 0 {
		return ErrInvalidGeofence
	}
	if err := center.Validate(); err != nil {
		return err
	}
	o.Tracker.CreateGeofence(app.Geofence{Room: rid, Name: name, Center: center, Radius: radius, Active: true})
	return nil
}

func (o *Orchestrator) RemoveGeofence(rid domain.RoomID) bool {
	return o.Tracker.RemoveGeofence(rid)
}

func (o *Orchestrator) Geofences() []app.Geofence {
	return o.Tracker.Geofences()
}

// NearbyUser is a nearby-users query result.
type NearbyUser struct {
	UserID   domain.UserID         `json:"user_id"`
	Name     string                `json:"name"`
	Distance float64               `json:"distance_meters"`
	IsOnline bool                  `json:"is_online"`
	Location domain.LocationSample `json:"location"`
}

// NearbyUsers lists users within radius of uid's last known location,
// nearest first.
func (o *Orchestrator) NearbyUsers(uid domain.UserID, radius float64, includeOffline bool) []NearbyUser {
	var include func(domain.UserID) bool
	if !includeOffline {
		include = o.Registry.IsOnline
	}
	found := o.Tracker.Nearby(uid, radius, include)
	out := make([]NearbyUser, 0, len(found))
	for _, n := range found {
		out = append(out, NearbyUser{
			UserID:   n.UserID,
			Name:     o.displayName(n.UserID),
			Distance: round1(n.Distance),
			IsOnline: o.Registry.IsOnline(n.UserID),
			Location: n.Location,
		})
	}
	return out
}

type MovementInfo struct {
	UserID   domain.UserID     `json:"user_id"`
	State    app.MovementState `json:"movement_state"`
	Interval int               `json:"recommended_update_interval"`
}

func (o *Orchestrator) Movement(uid domain.UserID) MovementInfo {
	st := o.Tracker.Movement(uid)
	return MovementInfo{UserID: uid, State: st, Interval: int(st.UpdateInterval() / time.Second)}
}
