package app

import (
	"time"

	"github.com/dkeye/Nearby/internal/domain"
	"github.com/dkeye/Nearby/internal/geo"
)

type MovementState string

const (
	Stationary MovementState = "stationary"
	Walking    MovementState = "walking"
	Driving    MovementState = "driving"
	Unknown    MovementState = "unknown"
)

// classifyWindow is how many trailing samples feed the speed estimate.
const classifyWindow = 5

// UpdateInterval is the suggested client polling period for the state.
func (s MovementState) UpdateInterval() time.Duration {
	switch s {
	case Stationary:
		return 60 * time.Second
	case Walking:
		return 15 * time.Second
	case Driving:
		return 5 * time.Second
	default:
		return 30 * time.Second
	}
}

// ClassifyMovement averages speed over the last few samples.
func ClassifyMovement(history []domain.LocationSample) MovementState {
	if len(history) > classifyWindow {
		history = history[len(history)-classifyWindow:]
	}
	if len(history) < 2 {
		return Unknown
	}

	var meters, seconds float64
	for i := 1; i < len(history); i++ {
		meters += geo.DistanceMeters(history[i-1].Coordinate, history[i].Coordinate)
		seconds += history[i].CapturedAt.Sub(history[i-1].CapturedAt).Seconds()
	}
	if seconds <= 0 {
		return Unknown
	}

	kmh := meters / seconds * 3.6
	switch {
	case kmh < 1:
		return Stationary
	case kmh < 8:
		return Walking
	default:
		return Driving
	}
}
