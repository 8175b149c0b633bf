package orch

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Nearby/internal/app"
	"github.com/dkeye/Nearby/internal/core"
	"github.com/dkeye/Nearby/internal/core/mocks"
	"github.com/dkeye/Nearby/internal/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	err    error
	closed bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrConnClosed
	}
	if c.err != nil {
		return c.err
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) fail(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}

// events decodes every frame received so far.
func (c *fakeConn) events(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.frames))
	for _, f := range c.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(f, &m))
		out = append(out, m)
	}
	return out
}

func (c *fakeConn) types(t *testing.T) []string {
	t.Helper()
	var out []string
	for _, e := range c.events(t) {
		out = append(out, e["type"].(string))
	}
	return out
}

func (c *fakeConn) ofType(t *testing.T, typ string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, e := range c.events(t) {
		if e["type"] == typ {
			out = append(out, e)
		}
	}
	return out
}

type storeCall struct {
	Op   string
	Room domain.RoomID
	User domain.UserID
	Msg  *domain.MessageRecord
}

type harness struct {
	t       *testing.T
	o       *Orchestrator
	persist *app.Persister

	verifier *mocks.MockVerifier
	store    *mocks.MockStore
	rooms    *mocks.MockRoomProvider
	friends  *mocks.MockFriendProvider
	events   *mocks.MockEventPublisher

	mu        sync.Mutex
	roomTable map[domain.RoomID]*domain.Room
	friendsOf map[domain.UserID][]domain.Friend
	active    map[domain.UserID][]domain.RoomID
	recent    map[domain.RoomID][]domain.MessageRecord
	calls     []storeCall
	published []domainEvent
}

func newHarness(t *testing.T) *harness {
	ctrl := gomock.NewController(t)
	h := &harness{
		t:         t,
		verifier:  mocks.NewMockVerifier(ctrl),
		store:     mocks.NewMockStore(ctrl),
		rooms:     mocks.NewMockRoomProvider(ctrl),
		friends:   mocks.NewMockFriendProvider(ctrl),
		events:    mocks.NewMockEventPublisher(ctrl),
		roomTable: make(map[domain.RoomID]*domain.Room),
		friendsOf: make(map[domain.UserID][]domain.Friend),
		active:    make(map[domain.UserID][]domain.RoomID),
		recent:    make(map[domain.RoomID][]domain.MessageRecord),
	}

	h.verifier.EXPECT().Verify(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, cred string) (*domain.User, error) {
			if cred == "bad" {
				return nil, core.ErrInvalidCredential
			}
			return domain.NewUser(cred, "name-"+cred)
		}).AnyTimes()

	h.rooms.EXPECT().GetRoom(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, rid domain.RoomID) (*domain.Room, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			r, ok := h.roomTable[rid]
			if !ok {
				return nil, core.ErrRoomNotFound
			}
			cp := *r
			return &cp, nil
		}).AnyTimes()

	h.friends.EXPECT().FriendsOf(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, uid domain.UserID) ([]domain.Friend, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			return h.friendsOf[uid], nil
		}).AnyTimes()

	h.events.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, ev any) error {
			h.mu.Lock()
			h.published = append(h.published, ev.(domainEvent))
			h.mu.Unlock()
			return nil
		}).AnyTimes()

	h.store.EXPECT().ActiveMemberships(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, uid domain.UserID) ([]domain.RoomID, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			return h.active[uid], nil
		}).AnyTimes()
	h.store.EXPECT().RecentMessages(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, rid domain.RoomID, _ int) ([]domain.MessageRecord, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			return h.recent[rid], nil
		}).AnyTimes()
	h.store.EXPECT().SetOnline(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, uid domain.UserID, online bool, _ time.Time) error {
			op := "offline"
			if online {
				op = "online"
			}
			h.record(storeCall{Op: op, User: uid})
			return nil
		}).AnyTimes()
	h.store.EXPECT().RecordMembership(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, rid domain.RoomID, uid domain.UserID, _ *domain.LocationSample) error {
			h.record(storeCall{Op: "join", Room: rid, User: uid})
			return nil
		}).AnyTimes()
	h.store.EXPECT().CloseMembership(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, rid domain.RoomID, uid domain.UserID) error {
			h.record(storeCall{Op: "leave", Room: rid, User: uid})
			return nil
		}).AnyTimes()
	h.store.EXPECT().InsertMessage(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, msg *domain.MessageRecord) error {
			h.record(storeCall{Op: "message", Room: msg.RoomID, User: msg.UserID, Msg: msg})
			return nil
		}).AnyTimes()
	h.store.EXPECT().UpsertLocation(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, uid domain.UserID, _ domain.LocationSample) error {
			h.record(storeCall{Op: "location", User: uid})
			return nil
		}).AnyTimes()

	h.persist = app.NewPersister(1, 1024, time.Second)
	h.o = New(Deps{
		Persist:  h.persist,
		Verifier: h.verifier,
		Store:    h.store,
		Rooms:    h.rooms,
		Friends:  h.friends,
		Events:   h.events,
	}, Config{RecentMessages: 50, LookupTimeout: time.Second, RejoinOnConnect: true})

	// runs before gomock's own cleanup
	t.Cleanup(h.settle)
	return h
}

func (h *harness) record(c storeCall) {
	h.mu.Lock()
	h.calls = append(h.calls, c)
	h.mu.Unlock()
}

// settle waits for deferred cleanup and drains pending store writes.
func (h *harness) settle() {
	h.o.Wait()
	h.persist.Close()
}

func (h *harness) storeCalls(op string) []storeCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []storeCall
	for _, c := range h.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (h *harness) addRoom(r domain.Room) {
	h.mu.Lock()
	h.roomTable[r.ID] = &r
	h.mu.Unlock()
}

func (h *harness) open() (core.SessionID, *fakeConn) {
	c := &fakeConn{}
	return h.o.OnSessionOpened(c, nil), c
}

func (h *harness) send(sid core.SessionID, v any) {
	h.t.Helper()
	var raw []byte
	switch x := v.(type) {
	case string:
		raw = []byte(x)
	default:
		b, err := json.Marshal(v)
		require.NoError(h.t, err)
		raw = b
	}
	h.o.HandleInboundEvent(context.Background(), sid, raw)
}

// connect opens and authenticates a session for uid, clearing the greeting.
func (h *harness) connect(uid string) (core.SessionID, *fakeConn) {
	h.t.Helper()
	sid, c := h.open()
	h.send(sid, map[string]any{"type": EvAuthenticate, "userId": uid})
	require.Equal(h.t, EvConnected, c.types(h.t)[0])
	c.reset()
	return sid, c
}

func (h *harness) join(sid core.SessionID, rid string) {
	h.send(sid, map[string]any{"type": EvJoinRoom, "roomId": rid})
}

func (h *harness) locate(sid core.SessionID, lat, lng float64) {
	h.send(sid, map[string]any{"type": EvLocationUpdate, "location": map[string]any{"lat": lat, "lng": lng}})
}

func errorMessages(t *testing.T, c *fakeConn) []string {
	t.Helper()
	var out []string
	for _, e := range c.ofType(t, EvError) {
		out = append(out, e["message"].(string))
	}
	return out
}

func userIDs(ev map[string]any) []string {
	var out []string
	for _, u := range ev["users"].([]any) {
		out = append(out, u.(map[string]any)["id"].(string))
	}
	return out
}
