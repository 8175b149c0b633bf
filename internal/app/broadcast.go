package app

import (
	"github.com/dkeye/Nearby/internal/core"
	"github.com/dkeye/Nearby/internal/domain"
	"github.com/rs/zerolog/log"
)

// PublishResult summarises one fan-out.
type PublishResult struct {
	SendTo  int
	Dropped int
	Failed  []domain.UserID
}

// Broadcaster resolves recipients and delivers frames through the Registry.
// Sends never happen under a Membership or Registry lock.
type Broadcaster struct {
	Registry   *Registry
	Membership *Membership

	// OnFailure is called once per fan-out with every session whose transport
	// failed. The Registry has already unbound them.
	OnFailure func(evicted []Eviction)
}

// Eviction names a session the Registry dropped after a failed send.
type Eviction struct {
	User domain.UserID
	SID  core.SessionID
}

func NewBroadcaster(reg *Registry, mem *Membership) *Broadcaster {
	return &Broadcaster{Registry: reg, Membership: mem}
}

// SendToUser is best-effort; failures are logged, never returned.
func (b *Broadcaster) SendToUser(uid domain.UserID, f core.Frame) core.SendResult {
	res, sid := b.Registry.send(uid, f)
	switch res {
	case core.NotConnected:
		log.Debug().Str("module", "app.broadcast").Str("user", string(uid)).Msg("recipient not connected")
	case core.TransportError:
		b.failed([]Eviction{{User: uid, SID: sid}})
	}
	return res
}

// BroadcastToRoom delivers f to every member of rid except exclude (empty
// means nobody is excluded). One failed recipient never stops the others.
func (b *Broadcaster) BroadcastToRoom(rid domain.RoomID, f core.Frame, exclude domain.UserID) PublishResult {
	members := b.Membership.MemberIDs(rid)
	res := b.fanOut(members, f, exclude)
	if len(res.Failed) > 0 || res.Dropped > 0 {
		log.Warn().Str("module", "app.broadcast").Str("room", string(rid)).
			Int("sent", res.SendTo).Int("dropped", res.Dropped).Int("failed", len(res.Failed)).Msg("room broadcast degraded")
	}
	return res
}

// BroadcastToAll delivers f to every bound session. Failed sessions are
// evicted by the Registry as a side effect.
func (b *Broadcaster) BroadcastToAll(f core.Frame) PublishResult {
	res := b.fanOut(b.Registry.UserIDs(), f, "")
	log.Info().Str("module", "app.broadcast").Int("sent", res.SendTo).Int("failed", len(res.Failed)).Msg("broadcast to all")
	return res
}

func (b *Broadcaster) fanOut(recipients []domain.UserID, f core.Frame, exclude domain.UserID) PublishResult {
	var res PublishResult
	var evicted []Eviction
	for _, uid := range recipients {
		if exclude != "" && uid == exclude {
			continue
		}
		switch out, sid := b.Registry.send(uid, f); out {
		case core.Delivered:
			res.SendTo++
		case core.Dropped:
			res.Dropped++
		case core.TransportError:
			res.Failed = append(res.Failed, uid)
			evicted = append(evicted, Eviction{User: uid, SID: sid})
		}
	}
	b.failed(evicted)
	return res
}

func (b *Broadcaster) failed(evicted []Eviction) {
	if len(evicted) == 0 || b.OnFailure == nil {
		return
	}
	b.OnFailure(evicted)
}
