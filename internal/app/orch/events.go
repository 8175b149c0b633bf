package orch

import (
	"encoding/json"
	"math"
	"time"

	"github.com/dkeye/Nearby/internal/core"
	"github.com/dkeye/Nearby/internal/domain"
)

// Inbound event types.
const (
	EvAuthenticate   = "authenticate"
	EvJoinRoom       = "join_room"
	EvLeaveRoom      = "leave_room"
	EvSendMessage    = "send_message"
	EvLocationUpdate = "location_update"
	EvPing           = "ping"
)

// Outbound event types.
const (
	EvConnected       = "connected"
	EvError           = "error"
	EvRoomJoined      = "room_joined"
	EvRoomUsersUpdate = "room_users_update"
	EvUserJoined      = "user_joined"
	EvUserLeft        = "user_left"
	EvNewMessage      = "new_message"
	EvPong            = "pong"
	EvFriendNearby    = "friend_nearby"
)

// inbound is the union of every client event's fields.
type inbound struct {
	Type     string           `json:"type"`
	UserID   string           `json:"userId"`
	Token    string           `json:"token"`
	Name     string           `json:"name"`
	RoomID   string           `json:"roomId"`
	Message  string           `json:"message"`
	Location *locationPayload `json:"location"`
}

type locationPayload struct {
	Lat       *float64 `json:"lat"`
	Lng       *float64 `json:"lng"`
	Accuracy  *float64 `json:"accuracy"`
	Altitude  *float64 `json:"altitude"`
	Speed     *float64 `json:"speed"`
	Heading   *float64 `json:"heading"`
	Timestamp int64    `json:"timestamp"`
}

// sample converts the payload; now is used when the client sent no timestamp.
func (p *locationPayload) sample(now time.Time) (domain.LocationSample, error) {
	if p == nil || p.Lat == nil || p.Lng == nil {
		return domain.LocationSample{}, errLocationRequired
	}
	s := domain.LocationSample{
		Coordinate: domain.Coordinate{Lat: *p.Lat, Lng: *p.Lng},
		Accuracy:   p.Accuracy,
		Altitude:   p.Altitude,
		Speed:      p.Speed,
		Heading:    p.Heading,
		CapturedAt: now,
	}
	if err := s.Validate(); err != nil {
		return domain.LocationSample{}, err
	}
	if p.Timestamp > 0 {
		s.CapturedAt = time.UnixMilli(p.Timestamp)
	}
	return s, nil
}

type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type userRef struct {
	ID   domain.UserID `json:"id"`
	Name string        `json:"name"`
}

type connectedEvent struct {
	Type      string          `json:"type"`
	User      userRef         `json:"user"`
	Rooms     []domain.RoomID `json:"rooms"`
	Timestamp int64           `json:"timestamp"`
}

type memberView struct {
	ID       domain.UserID      `json:"id"`
	Name     string             `json:"name"`
	IsOnline bool               `json:"is_online"`
	JoinedAt time.Time          `json:"joined_at"`
	Location *domain.Coordinate `json:"location,omitempty"`
}

type roomJoinedEvent struct {
	Type     string                 `json:"type"`
	Room     *domain.Room           `json:"room"`
	Users    []memberView           `json:"users"`
	Messages []domain.MessageRecord `json:"messages"`
}

type roomUsersEvent struct {
	Type   string        `json:"type"`
	RoomID domain.RoomID `json:"room_id"`
	Users  []memberView  `json:"users"`
}

// membershipEvent is user_joined / user_left.
type membershipEvent struct {
	Type   string        `json:"type"`
	User   userRef       `json:"user"`
	RoomID domain.RoomID `json:"room_id"`
}

type newMessageEvent struct {
	Type    string                `json:"type"`
	Message *domain.MessageRecord `json:"message"`
}

type pongEvent struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

type friendNearbyEvent struct {
	Type     string  `json:"type"`
	Friend   userRef `json:"friend"`
	Distance float64 `json:"distance"`
}

// domainEvent is what goes onto the event stream.
type domainEvent struct {
	Kind      string        `json:"kind"`
	EventType string        `json:"event_type"`
	UserID    domain.UserID `json:"user_id"`
	PeerID    domain.UserID `json:"peer_id,omitempty"`
	RoomID    domain.RoomID `json:"room_id,omitempty"`
	Distance  float64       `json:"distance_meters"`
	Timestamp time.Time     `json:"timestamp"`
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func encode(v any) (core.Frame, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return core.Frame(b), nil
}
