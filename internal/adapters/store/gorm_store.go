package store

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dkeye/Nearby/internal/core"
	"github.com/dkeye/Nearby/internal/domain"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is the relational backing for presence, rooms, chat history and
// the friend graph.
type GormStore struct {
	db *gorm.DB
}

var (
	_ core.Store          = (*GormStore)(nil)
	_ core.RoomProvider   = (*GormStore)(nil)
	_ core.FriendProvider = (*GormStore)(nil)
	_ core.Verifier       = (*GormStore)(nil)
)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Verify treats the credential as a user id that must already exist.
func (s *GormStore) Verify(ctx context.Context, credential string) (*domain.User, error) {
	var m UserModel
	err := s.db.WithContext(ctx).First(&m, "id = ?", credential).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.ErrInvalidCredential
	}
	if err != nil {
		return nil, err
	}
	return m.ToDomain(), nil
}

// SaveUser creates or renames a user.
func (s *GormStore) SaveUser(ctx context.Context, u *domain.User) error {
	m := UserModel{ID: string(u.ID), Name: u.Name, LastSeen: time.Now().UTC()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name"}),
	}).Create(&m).Error
}

func (s *GormStore) SetOnline(ctx context.Context, uid domain.UserID, online bool, at time.Time) error {
	m := UserModel{ID: string(uid), Name: "Anonymous", IsOnline: online, LastSeen: at.UTC()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_online", "last_seen"}),
	}).Create(&m).Error
}

func (s *GormStore) GetRoom(ctx context.Context, rid domain.RoomID) (*domain.Room, error) {
	var m RoomModel
	err := s.db.WithContext(ctx).First(&m, "id = ?", string(rid)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.ErrRoomNotFound
	}
	if err != nil {
		log.Error().Err(err).Str("module", "store").Str("room", string(rid)).Msg("get room")
		return nil, err
	}
	return m.ToDomain(), nil
}

func (s *GormStore) SaveRoom(ctx context.Context, r *domain.Room) error {
	return s.db.WithContext(ctx).Save(RoomToModel(r)).Error
}

func (s *GormStore) RecordMembership(ctx context.Context, rid domain.RoomID, uid domain.UserID, joinLocation *domain.LocationSample) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := closeOpen(tx, rid, uid, time.Now().UTC()); err != nil {
			return err
		}
		m := MembershipModel{
			RoomID:   string(rid),
			UserID:   string(uid),
			JoinedAt: time.Now().UTC(),
			IsActive: true,
		}
		if joinLocation != nil {
			lat, lng := joinLocation.Lat, joinLocation.Lng
			m.JoinLat, m.JoinLng = &lat, &lng
		}
		return tx.Create(&m).Error
	})
}

func (s *GormStore) CloseMembership(ctx context.Context, rid domain.RoomID, uid domain.UserID) error {
	return closeOpen(s.db.WithContext(ctx), rid, uid, time.Now().UTC())
}

func closeOpen(tx *gorm.DB, rid domain.RoomID, uid domain.UserID, at time.Time) error {
	return tx.Model(&MembershipModel{}).
		Where("room_id = ? AND user_id = ? AND is_active = ?", string(rid), string(uid), true).
		Updates(map[string]any{"is_active": false, "left_at": at}).Error
}

// ActiveMemberships lists rooms with an open stay, oldest join first.
func (s *GormStore) ActiveMemberships(ctx context.Context, uid domain.UserID) ([]domain.RoomID, error) {
	var rows []MembershipModel
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", string(uid), true).
		Order("joined_at ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.RoomID, 0, len(rows))
	for _, r := range rows {
		rid := domain.RoomID(r.RoomID)
		if !slices.Contains(out, rid) {
			out = append(out, rid)
		}
	}
	return out, nil
}

func (s *GormStore) InsertMessage(ctx context.Context, msg *domain.MessageRecord) error {
	return s.db.WithContext(ctx).Create(MessageToModel(msg)).Error
}

// RecentMessages returns up to limit messages in chronological order.
func (s *GormStore) RecentMessages(ctx context.Context, rid domain.RoomID, limit int) ([]domain.MessageRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	var rows []MessageModel
	err := s.db.WithContext(ctx).
		Where("room_id = ?", string(rid)).
		Order("created_at DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.MessageRecord, len(rows))
	for i := range rows {
		out[len(rows)-1-i] = rows[i].ToDomain()
	}
	return out, nil
}

// UpsertLocation replaces the current position and appends to the history.
func (s *GormStore) UpsertLocation(ctx context.Context, uid domain.UserID, sample domain.LocationSample) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur := LocationModel{
			UserID:     string(uid),
			Lat:        sample.Lat,
			Lng:        sample.Lng,
			Accuracy:   sample.Accuracy,
			Altitude:   sample.Altitude,
			Speed:      sample.Speed,
			Heading:    sample.Heading,
			CapturedAt: sample.CapturedAt.UTC(),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).Create(&cur).Error; err != nil {
			return err
		}
		return tx.Create(&LocationHistoryModel{
			UserID:     string(uid),
			Lat:        sample.Lat,
			Lng:        sample.Lng,
			Accuracy:   sample.Accuracy,
			Speed:      sample.Speed,
			CapturedAt: sample.CapturedAt.UTC(),
		}).Error
	})
}

// PruneHistory deletes location history captured before cutoff.
func (s *GormStore) PruneHistory(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("captured_at < ?", cutoff.UTC()).Delete(&LocationHistoryModel{})
	return res.RowsAffected, res.Error
}

// FriendsOf lists accepted friends of uid. CanSeeLocation is set only when
// both directions of the friendship share location.
func (s *GormStore) FriendsOf(ctx context.Context, uid domain.UserID) ([]domain.Friend, error) {
	var rows []struct {
		FriendID string
		Mine     bool
		Theirs   bool
	}
	err := s.db.WithContext(ctx).
		Table("friendships AS f").
		Select("f.friend_id AS friend_id, f.can_see_location AS mine, r.can_see_location AS theirs").
		Joins("JOIN friendships AS r ON r.user_id = f.friend_id AND r.friend_id = f.user_id").
		Where("f.user_id = ? AND f.status = ? AND r.status = ?", string(uid), FriendshipAccepted, FriendshipAccepted).
		Order("f.friend_id").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Friend, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Friend{ID: domain.UserID(r.FriendID), CanSeeLocation: r.Mine && r.Theirs})
	}
	return out, nil
}

// Befriend stores an accepted friendship in both directions.
func (s *GormStore) Befriend(ctx context.Context, a, b domain.UserID) error {
	now := time.Now().UTC()
	rows := []FriendshipModel{
		{UserID: string(a), FriendID: string(b), Status: FriendshipAccepted, CanSeeLocation: true, CreatedAt: now},
		{UserID: string(b), FriendID: string(a), Status: FriendshipAccepted, CanSeeLocation: true, CreatedAt: now},
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "friend_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status"}),
	}).Create(&rows).Error
}

// SetLocationVisibility toggles the visibility flag on the owner->friend edge.
func (s *GormStore) SetLocationVisibility(ctx context.Context, owner, friend domain.UserID, visible bool) error {
	return s.db.WithContext(ctx).Model(&FriendshipModel{}).
		Where("user_id = ? AND friend_id = ?", string(owner), string(friend)).
		Update("can_see_location", visible).Error
}
