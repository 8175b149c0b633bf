package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dkeye/Nearby/internal/core"
	"github.com/dkeye/Nearby/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCache struct {
	mu    sync.Mutex
	rooms map[domain.RoomID]domain.Room
	err   error
}

func (c *memCache) Get(_ context.Context, rid domain.RoomID) (*domain.Room, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	r, ok := c.rooms[rid]
	if !ok {
		return nil, ErrCacheMiss
	}
	return &r, nil
}

func (c *memCache) Set(_ context.Context, room *domain.Room, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[room.ID] = *room
	return nil
}

func (c *memCache) Delete(_ context.Context, rid domain.RoomID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, rid)
	return nil
}

type countingRooms struct {
	calls atomic.Int32
	gate  chan struct{}
	rooms map[domain.RoomID]domain.Room
}

func (p *countingRooms) GetRoom(_ context.Context, rid domain.RoomID) (*domain.Room, error) {
	p.calls.Add(1)
	if p.gate != nil {
		<-p.gate
	}
	r, ok := p.rooms[rid]
	if !ok {
		return nil, core.ErrRoomNotFound
	}
	return &r, nil
}

func TestCachedRoomProvider(t *testing.T) {
	backing := &countingRooms{rooms: map[domain.RoomID]domain.Room{"r": {ID: "r", Name: "Cafe", Active: true}}}
	cache := &memCache{rooms: map[domain.RoomID]domain.Room{}}
	p := NewCachedRoomProvider(backing, cache, time.Minute)
	ctx := context.Background()

	r, err := p.GetRoom(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, "Cafe", r.Name)
	r.Name = "mutated"

	r, err = p.GetRoom(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, "Cafe", r.Name)
	assert.EqualValues(t, 1, backing.calls.Load())

	_, err = p.GetRoom(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrRoomNotFound)

	require.NoError(t, p.Invalidate(ctx, "r"))
	_, err = p.GetRoom(ctx, "r")
	require.NoError(t, err)
	assert.EqualValues(t, 3, backing.calls.Load())
}

func TestCachedRoomProvider_CacheErrorFallsThrough(t *testing.T) {
	backing := &countingRooms{rooms: map[domain.RoomID]domain.Room{"r": {ID: "r"}}}
	p := NewCachedRoomProvider(backing, &memCache{rooms: map[domain.RoomID]domain.Room{}, err: errors.New("redis down")}, 0)

	_, err := p.GetRoom(context.Background(), "r")
	require.NoError(t, err)
	assert.EqualValues(t, 1, backing.calls.Load())
}

func TestCachedRoomProvider_CollapsesConcurrentMisses(t *testing.T) {
	backing := &countingRooms{
		gate:  make(chan struct{}),
		rooms: map[domain.RoomID]domain.Room{"r": {ID: "r"}},
	}
	p := NewCachedRoomProvider(backing, &memCache{rooms: map[domain.RoomID]domain.Room{}}, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.GetRoom(context.Background(), "r")
			assert.NoError(t, err)
		}()
	}
	assert.Eventually(t, func() bool { return backing.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(backing.gate)
	wg.Wait()
	assert.EqualValues(t, 1, backing.calls.Load())
}
