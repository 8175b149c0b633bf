package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dkeye/Nearby/internal/domain"
	"github.com/dkeye/Nearby/internal/geo"
	"github.com/rs/zerolog/log"
)

type TransitionKind string

const (
	Entered TransitionKind = "entered"
	Exited  TransitionKind = "exited"
)

type ProximityEvent struct {
	Kind     TransitionKind `json:"event_type"`
	User     domain.UserID  `json:"user1_id"`
	Peer     domain.UserID  `json:"user2_id"`
	Distance float64        `json:"distance_meters"`
	At       time.Time      `json:"timestamp"`
}

type GeofenceEvent struct {
	Kind     TransitionKind `json:"event_type"`
	User     domain.UserID  `json:"user_id"`
	Room     domain.RoomID  `json:"room_id"`
	Distance float64        `json:"distance_to_center"`
	At       time.Time      `json:"timestamp"`
}

// Observation is everything a single location update produced.
type Observation struct {
	Movement  MovementState
	Proximity []ProximityEvent
	Geofence  []GeofenceEvent
}

type Geofence struct {
	Room      domain.RoomID     `json:"room_id"`
	Name      string            `json:"name,omitempty"`
	Center    domain.Coordinate `json:"center"`
	Radius    float64           `json:"radius_meters"`
	Active    bool              `json:"active"`
	CreatedAt time.Time         `json:"created_at"`
}

type NearbyUser struct {
	UserID   domain.UserID         `json:"user_id"`
	Distance float64               `json:"distance_meters"`
	Location domain.LocationSample `json:"location"`
}

type TrackerConfig struct {
	ThresholdMeters  float64
	SweepInterval    time.Duration
	PairStaleness    time.Duration
	HistoryInterval  time.Duration
	HistoryRetention time.Duration
	HistoryLimit     int
}

func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		ThresholdMeters:  100,
		SweepInterval:    30 * time.Second,
		PairStaleness:    5 * time.Minute,
		HistoryInterval:  time.Hour,
		HistoryRetention: 2 * time.Hour,
		HistoryLimit:     100,
	}
}

// Tracker owns last-known locations, movement history, the pairwise
// proximity cache and geofence state. All transitions are edge-triggered.
type Tracker struct {
	mu       sync.Mutex
	cfg      TrackerConfig
	last     map[domain.UserID]domain.LocationSample
	history  map[domain.UserID][]domain.LocationSample
	movement map[domain.UserID]MovementState
	pairs    pairCache
	// shares[u] holds the friends u currently shows its location to, as of
	// u's last report.
	shares   map[domain.UserID]map[domain.UserID]bool
	fences   map[domain.RoomID]Geofence
	statuses map[fenceKey]fenceStatus
	now      func() time.Time
}

func NewTracker(cfg TrackerConfig) *Tracker {
	def := DefaultTrackerConfig()
	if cfg.ThresholdMeters <= 0 {
		cfg.ThresholdMeters = def.ThresholdMeters
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if cfg.PairStaleness <= 0 {
		cfg.PairStaleness = def.PairStaleness
	}
	if cfg.HistoryInterval <= 0 {
		cfg.HistoryInterval = def.HistoryInterval
	}
	if cfg.HistoryRetention <= 0 {
		cfg.HistoryRetention = def.HistoryRetention
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = def.HistoryLimit
	}
	return &Tracker{
		cfg:      cfg,
		last:     make(map[domain.UserID]domain.LocationSample),
		history:  make(map[domain.UserID][]domain.LocationSample),
		movement: make(map[domain.UserID]MovementState),
		pairs:    make(pairCache),
		shares:   make(map[domain.UserID]map[domain.UserID]bool),
		fences:   make(map[domain.RoomID]Geofence),
		statuses: make(map[fenceKey]fenceStatus),
		now:      time.Now,
	}
}

// ObserveLocation records sample for uid and evaluates every friend with a
// known position where visibility is mutual: uid shows its location to the
// friend and the friend, as of its own last report, shows its location back.
// Every active geofence is evaluated too. A pair or status with no prior entry counts as "outside", so the
// first observation of an already-close peer yields Entered.
func (t *Tracker) ObserveLocation(uid domain.UserID, sample domain.LocationSample, friends []domain.Friend) Observation {
	now := t.now()
	if sample.CapturedAt.IsZero() {
		sample.CapturedAt = now
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.last[uid] = sample
	h := append(t.history[uid], sample)
	if len(h) > t.cfg.HistoryLimit {
		h = append([]domain.LocationSample(nil), h[len(h)-t.cfg.HistoryLimit:]...)
	}
	t.history[uid] = h
	state := ClassifyMovement(h)
	t.movement[uid] = state

	obs := Observation{Movement: state}

	shared := make(map[domain.UserID]bool, len(friends))
	for _, f := range friends {
		if f.CanSeeLocation && f.ID != uid {
			shared[f.ID] = true
		}
	}
	t.shares[uid] = shared

	for _, f := range friends {
		if f.ID == uid {
			continue
		}
		if !shared[f.ID] || !t.shares[f.ID][uid] {
			// a pair that lost mutual visibility starts over as "outside"
			delete(t.pairs, newPairKey(uid, f.ID))
			continue
		}
		peer, ok := t.last[f.ID]
		if !ok {
			continue
		}
		d := geo.DistanceMeters(sample.Coordinate, peer.Coordinate)
		was, is := t.pairs.observe(uid, f.ID, d, t.cfg.ThresholdMeters, now)
		if was == is {
			continue
		}
		obs.Proximity = append(obs.Proximity, ProximityEvent{
			Kind: transition(is), User: uid, Peer: f.ID, Distance: d, At: now,
		})
	}

	for rid, fence := range t.fences {
		if !fence.Active {
			continue
		}
		d := geo.DistanceMeters(sample.Coordinate, fence.Center)
		is := d <= fence.Radius
		k := fenceKey{user: uid, room: rid}
		was := t.statuses[k].inside
		t.statuses[k] = fenceStatus{inside: is, seenAt: now}
		if was == is {
			continue
		}
		obs.Geofence = append(obs.Geofence, GeofenceEvent{
			Kind: transition(is), User: uid, Room: rid, Distance: d, At: now,
		})
		log.Info().Str("module", "app.proximity").Str("user", string(uid)).Str("room", string(rid)).Str("event", string(transition(is))).Msg("geofence transition")
	}
	sort.Slice(obs.Geofence, func(i, j int) bool { return obs.Geofence[i].Room < obs.Geofence[j].Room })

	return obs
}

func transition(inside bool) TransitionKind {
	if inside {
		return Entered
	}
	return Exited
}

// CreateGeofence registers or replaces the fence for a room. Existing
// statuses for the room are reset.
func (t *Tracker) CreateGeofence(g Geofence) {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = t.now()
	}
	t.mu.Lock()
	t.fences[g.Room] = g
	t.dropFenceStatusesLocked(g.Room)
	t.mu.Unlock()
	log.Info().Str("module", "app.proximity").Str("room", string(g.Room)).Float64("radius", g.Radius).Msg("geofence created")
}

func (t *Tracker) RemoveGeofence(rid domain.RoomID) bool {
	t.mu.Lock()
	_, ok := t.fences[rid]
	delete(t.fences, rid)
	t.dropFenceStatusesLocked(rid)
	t.mu.Unlock()
	if ok {
		log.Info().Str("module", "app.proximity").Str("room", string(rid)).Msg("geofence removed")
	}
	return ok
}

func (t *Tracker) dropFenceStatusesLocked(rid domain.RoomID) {
	for k := range t.statuses {
		if k.room == rid {
			delete(t.statuses, k)
		}
	}
}

func (t *Tracker) Geofences() []Geofence {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Geofence, 0, len(t.fences))
	for _, g := range t.fences {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Room < out[j].Room })
	return out
}

// RemoveUser forgets everything about uid.
func (t *Tracker) RemoveUser(uid domain.UserID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.last, uid)
	delete(t.history, uid)
	delete(t.movement, uid)
	delete(t.shares, uid)
	t.pairs.dropUser(uid)
	for k := range t.statuses {
		if k.user == uid {
			delete(t.statuses, k)
		}
	}
}

func (t *Tracker) LastLocation(uid domain.UserID) (domain.LocationSample, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.last[uid]
	return s, ok
}

func (t *Tracker) Movement(uid domain.UserID) MovementState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.movement[uid]; ok {
		return s
	}
	return Unknown
}

// PairCount reports how many cached pairs involve uid.
func (t *Tracker) PairCount(uid domain.UserID) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for k := range t.pairs {
		if k.has(uid) {
			n++
		}
	}
	return n
}

// Nearby lists users with a known location within radius of uid, nearest
// first. include filters candidates (e.g. online only); nil keeps all.
func (t *Tracker) Nearby(uid domain.UserID, radius float64, include func(domain.UserID) bool) []NearbyUser {
	t.mu.Lock()
	origin, ok := t.last[uid]
	if !ok {
		t.mu.Unlock()
		return nil
	}
	var out []NearbyUser
	for other, s := range t.last {
		if other == uid {
			continue
		}
		d := geo.DistanceMeters(origin.Coordinate, s.Coordinate)
		if d <= radius {
			out = append(out, NearbyUser{UserID: other, Distance: d, Location: s})
		}
	}
	t.mu.Unlock()

	if include != nil {
		kept := out[:0]
		for _, n := range out {
			if include(n.UserID) {
				kept = append(kept, n)
			}
		}
		out = kept
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance == out[j].Distance {
			return out[i].UserID < out[j].UserID
		}
		return out[i].Distance < out[j].Distance
	})
	return out
}

// SweepStats reports what a sweep removed.
type SweepStats struct {
	Pairs    int
	Statuses int
	History  int
}

// SweepProximity drops pair and geofence-status entries not refreshed within
// the staleness window.
func (t *Tracker) SweepProximity() SweepStats {
	cutoff := t.now().Add(-t.cfg.PairStaleness)
	t.mu.Lock()
	defer t.mu.Unlock()
	st := SweepStats{Pairs: t.pairs.dropOlderThan(cutoff)}
	for k, s := range t.statuses {
		if s.seenAt.Before(cutoff) {
			delete(t.statuses, k)
			st.Statuses++
		}
	}
	return st
}

// SweepHistory trims movement history older than the retention window.
func (t *Tracker) SweepHistory() SweepStats {
	cutoff := t.now().Add(-t.cfg.HistoryRetention)
	t.mu.Lock()
	defer t.mu.Unlock()
	var st SweepStats
	for uid, h := range t.history {
		i := 0
		for i < len(h) && h[i].CapturedAt.Before(cutoff) {
			i++
		}
		if i == 0 {
			continue
		}
		st.History += i
		if i == len(h) {
			delete(t.history, uid)
			delete(t.movement, uid)
			continue
		}
		t.history[uid] = append([]domain.LocationSample(nil), h[i:]...)
	}
	return st
}

// Run sweeps on both intervals until ctx is done.
func (t *Tracker) Run(ctx context.Context) error {
	prox := time.NewTicker(t.cfg.SweepInterval)
	defer prox.Stop()
	hist := time.NewTicker(t.cfg.HistoryInterval)
	defer hist.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.proximity").Msg("sweeper stopped")
			return nil
		case <-prox.C:
			st := t.SweepProximity()
			if st.Pairs > 0 || st.Statuses > 0 {
				log.Debug().Str("module", "app.proximity").Int("pairs", st.Pairs).Int("statuses", st.Statuses).Msg("proximity sweep")
			}
		case <-hist.C:
			st := t.SweepHistory()
			log.Info().Str("module", "app.proximity").Int("samples", st.History).Msg("history sweep")
		}
	}
}
