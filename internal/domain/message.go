package domain

import "time"

const MessageTypeText = "text"

type MessageRecord struct {
	ID        string    `json:"id"`
	RoomID    RoomID    `json:"room_id"`
	UserID    UserID    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Content   string    `json:"content"`
	Type      string    `json:"message_type"`
	CreatedAt time.Time `json:"created_at"`
	Timestamp int64     `json:"timestamp"`
}

func NewMessageRecord(id string, room RoomID, user *User, content string, at time.Time) *MessageRecord {
	return &MessageRecord{
		ID:        id,
		RoomID:    room,
		UserID:    user.ID,
		UserName:  user.Name,
		Content:   content,
		Type:      MessageTypeText,
		CreatedAt: at.UTC(),
		Timestamp: at.UnixMilli(),
	}
}
