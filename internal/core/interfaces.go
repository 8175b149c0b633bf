package core

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/Nearby/internal/domain"
)

//go:generate mockgen -destination=mocks/mock_collaborators.go -package=mocks . Verifier,Store,RoomProvider,FriendProvider,EventPublisher

var (
	ErrInvalidCredential = errors.New("invalid credential")
	ErrRoomNotFound      = errors.New("room not found")
)

// Verifier resolves a client credential (token or bare user id) to a user.
type Verifier interface {
	Verify(ctx context.Context, credential string) (*domain.User, error)
}

// Store is the persistence collaborator. Every write is best-effort from the
// realtime core's point of view.
type Store interface {
	UpsertLocation(ctx context.Context, uid domain.UserID, sample domain.LocationSample) error
	RecordMembership(ctx context.Context, rid domain.RoomID, uid domain.UserID, joinLocation *domain.LocationSample) error
	CloseMembership(ctx context.Context, rid domain.RoomID, uid domain.UserID) error
	InsertMessage(ctx context.Context, msg *domain.MessageRecord) error
	SetOnline(ctx context.Context, uid domain.UserID, online bool, at time.Time) error

	RecentMessages(ctx context.Context, rid domain.RoomID, limit int) ([]domain.MessageRecord, error)
	ActiveMemberships(ctx context.Context, uid domain.UserID) ([]domain.RoomID, error)
}

// RoomProvider returns external room metadata or ErrRoomNotFound.
type RoomProvider interface {
	GetRoom(ctx context.Context, rid domain.RoomID) (*domain.Room, error)
}

type FriendProvider interface {
	FriendsOf(ctx context.Context, uid domain.UserID) ([]domain.Friend, error)
}

// EventPublisher forwards domain events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
	Close() error
}
