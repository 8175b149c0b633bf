package store

import (
	"time"

	"github.com/dkeye/Nearby/internal/domain"
)

type UserModel struct {
	ID        string    `gorm:"type:varchar(64);primaryKey"`
	Name      string    `gorm:"type:varchar(100);not null"`
	IsOnline  bool      `gorm:"index"`
	LastSeen  time.Time
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (UserModel) TableName() string { return "users" }

func (m *UserModel) ToDomain() *domain.User {
	name := m.Name
	if name == "" {
		name = "Anonymous"
	}
	return &domain.User{ID: domain.UserID(m.ID), Name: name}
}

type RoomModel struct {
	ID             string  `gorm:"type:varchar(64);primaryKey"`
	Name           string  `gorm:"type:varchar(200);not null"`
	Description    string  `gorm:"type:text"`
	Lat            float64 `gorm:"not null"`
	Lng            float64 `gorm:"not null"`
	MaxUsers       int     `gorm:"default:50"`
	BoundaryRadius float64
	IsActive       bool      `gorm:"index"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

func (RoomModel) TableName() string { return "rooms" }

func (m *RoomModel) ToDomain() *domain.Room {
	return &domain.Room{
		ID:             domain.RoomID(m.ID),
		Name:           m.Name,
		Description:    m.Description,
		Center:         domain.Coordinate{Lat: m.Lat, Lng: m.Lng},
		Capacity:       m.MaxUsers,
		BoundaryRadius: m.BoundaryRadius,
		Active:         m.IsActive,
	}
}

func RoomToModel(r *domain.Room) *RoomModel {
	return &RoomModel{
		ID:             string(r.ID),
		Name:           r.Name,
		Description:    r.Description,
		Lat:            r.Center.Lat,
		Lng:            r.Center.Lng,
		MaxUsers:       r.Capacity,
		BoundaryRadius: r.BoundaryRadius,
		IsActive:       r.Active,
	}
}

// MembershipModel is one stay of a user in a room. LeftAt is nil while the
// stay is open.
type MembershipModel struct {
	ID       uint      `gorm:"primaryKey;autoIncrement"`
	RoomID   string    `gorm:"type:varchar(64);index:idx_membership_room_user;not null"`
	UserID   string    `gorm:"type:varchar(64);index:idx_membership_room_user;index;not null"`
	JoinedAt time.Time `gorm:"not null"`
	LeftAt   *time.Time
	JoinLat  *float64
	JoinLng  *float64
	IsActive bool `gorm:"index"`
}

func (MembershipModel) TableName() string { return "room_memberships" }

type MessageModel struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	RoomID    string    `gorm:"type:varchar(64);index:idx_messages_room_created;not null"`
	UserID    string    `gorm:"type:varchar(64);not null"`
	UserName  string    `gorm:"type:varchar(100)"`
	Content   string    `gorm:"type:text;not null"`
	Type      string    `gorm:"type:varchar(20);default:'text'"`
	CreatedAt time.Time `gorm:"index:idx_messages_room_created;not null"`
}

func (MessageModel) TableName() string { return "messages" }

func (m *MessageModel) ToDomain() domain.MessageRecord {
	return domain.MessageRecord{
		ID:        m.ID,
		RoomID:    domain.RoomID(m.RoomID),
		UserID:    domain.UserID(m.UserID),
		UserName:  m.UserName,
		Content:   m.Content,
		Type:      m.Type,
		CreatedAt: m.CreatedAt.UTC(),
		Timestamp: m.CreatedAt.UnixMilli(),
	}
}

func MessageToModel(r *domain.MessageRecord) *MessageModel {
	return &MessageModel{
		ID:        r.ID,
		RoomID:    string(r.RoomID),
		UserID:    string(r.UserID),
		UserName:  r.UserName,
		Content:   r.Content,
		Type:      r.Type,
		CreatedAt: r.CreatedAt,
	}
}

// LocationModel holds the latest known position, one row per user.
type LocationModel struct {
	UserID     string `gorm:"type:varchar(64);primaryKey"`
	Lat        float64
	Lng        float64
	Accuracy   *float64
	Altitude   *float64
	Speed      *float64
	Heading    *float64
	CapturedAt time.Time
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (LocationModel) TableName() string { return "user_locations" }

type LocationHistoryModel struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	UserID     string `gorm:"type:varchar(64);index:idx_history_user_time;not null"`
	Lat        float64
	Lng        float64
	Accuracy   *float64
	Speed      *float64
	CapturedAt time.Time `gorm:"index:idx_history_user_time"`
}

func (LocationHistoryModel) TableName() string { return "location_history" }

const (
	FriendshipPending  = "pending"
	FriendshipAccepted = "accepted"
)

// FriendshipModel is a directed edge. An accepted friendship is stored once
// per direction, each with its own visibility flag.
type FriendshipModel struct {
	UserID         string `gorm:"type:varchar(64);primaryKey"`
	FriendID       string `gorm:"type:varchar(64);primaryKey"`
	Status         string `gorm:"type:varchar(20);index;default:'pending'"`
	CanSeeLocation bool
	CreatedAt      time.Time
}

func (FriendshipModel) TableName() string { return "friendships" }

func allModels() []any {
	return []any{
		&UserModel{}, &RoomModel{}, &MembershipModel{}, &MessageModel{},
		&LocationModel{}, &LocationHistoryModel{}, &FriendshipModel{},
	}
}
