package app

import (
	"testing"
	"time"

	"github.com/dkeye/Nearby/internal/domain"
	"github.com/stretchr/testify/assert"
)

// track builds samples moving east at a constant speed.
func track(n int, step time.Duration, kmh float64) []domain.LocationSample {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	perStep := kmh / 3.6 * step.Seconds()
	out := make([]domain.LocationSample, n)
	for i := range out {
		out[i] = at(metersEast(perStep * float64(i)))
		out[i].CapturedAt = base.Add(time.Duration(i) * step)
	}
	return out
}

func TestClassifyMovement(t *testing.T) {
	sameInstant := track(3, 0, 0)

	tests := []struct {
		name    string
		samples []domain.LocationSample
		want    MovementState
	}{
		{"no samples", nil, Unknown},
		{"single sample", track(1, time.Second, 5), Unknown},
		{"zero elapsed", sameInstant, Unknown},
		{"stationary", track(5, 10*time.Second, 0.2), Stationary},
		{"walking", track(5, 10*time.Second, 5), Walking},
		{"driving", track(5, 10*time.Second, 50), Driving},
		{"only last five count", append(track(10, 10*time.Second, 60)[:5:5], track(5, 10*time.Second, 0)...), Stationary},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyMovement(tt.samples))
		})
	}
}

func TestMovementState_UpdateInterval(t *testing.T) {
	assert.Equal(t, 60*time.Second, Stationary.UpdateInterval())
	assert.Equal(t, 15*time.Second, Walking.UpdateInterval())
	assert.Equal(t, 5*time.Second, Driving.UpdateInterval())
	assert.Equal(t, 30*time.Second, Unknown.UpdateInterval())
}
