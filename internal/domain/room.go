package domain

type RoomID string

// Room is the external room metadata the realtime core admits against.
type Room struct {
	ID             RoomID     `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	Center         Coordinate `json:"location"`
	Capacity       int        `json:"max_users"`
	BoundaryRadius float64    `json:"boundary_radius"`
	Active         bool       `json:"is_active"`
}

// HasBoundary reports whether joins must be checked against the room radius.
func (r *Room) HasBoundary() bool {
	return r.BoundaryRadius > 0
}
