package domain

import (
	"errors"
	"time"
)

var ErrInvalidCoordinate = errors.New("invalid coordinate")

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (c Coordinate) Validate() error {
	if c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180 {
		return ErrInvalidCoordinate
	}
	return nil
}

// LocationSample is a single position report. Optional fields are nil when
// the client did not supply them.
type LocationSample struct {
	Coordinate
	Accuracy   *float64  `json:"accuracy,omitempty"`
	Altitude   *float64  `json:"altitude,omitempty"`
	Speed      *float64  `json:"speed,omitempty"`
	Heading    *float64  `json:"heading,omitempty"`
	CapturedAt time.Time `json:"timestamp"`
}
