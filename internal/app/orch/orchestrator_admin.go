package orch

import (
	"github.com/dkeye/Nearby/internal/app"
	"github.com/dkeye/Nearby/internal/domain"
)

type Stats struct {
	OnlineUsers int                   `json:"online_users"`
	Sessions    int                   `json:"sessions"`
	Rooms       map[domain.RoomID]int `json:"rooms"`
	Geofences   int                   `json:"geofences"`
}

func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	sessions := len(o.sessions)
	o.mu.Unlock()
	return Stats{
		OnlineUsers: o.Registry.Count(),
		Sessions:    sessions,
		Rooms:       o.Membership.Occupancy(),
		Geofences:   len(o.Tracker.Geofences()),
	}
}

// BroadcastAll sends v to every connected user. Sessions that fail are
// evicted and cleaned up like any other transport failure.
func (o *Orchestrator) BroadcastAll(v any) (app.PublishResult, error) {
	f, err := encode(v)
	if err != nil {
		return app.PublishResult{}, err
	}
	return o.Broadcast.BroadcastToAll(f), nil
}
