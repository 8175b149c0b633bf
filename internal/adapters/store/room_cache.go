package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/Nearby/internal/core"
	"github.com/dkeye/Nearby/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

var ErrCacheMiss = errors.New("cache miss")

type RoomCache interface {
	Get(ctx context.Context, rid domain.RoomID) (*domain.Room, error)
	Set(ctx context.Context, room *domain.Room, ttl time.Duration) error
	Delete(ctx context.Context, rid domain.RoomID) error
}

type RedisOptions struct {
	Address  string
	Password string
	DB       int
	Prefix   string
}

type RedisRoomCache struct {
	client *redis.Client
	prefix string
}

func NewRedisRoomCache(opts RedisOptions) (*RedisRoomCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisRoomCache{client: client, prefix: opts.Prefix}, nil
}

func (c *RedisRoomCache) key(rid domain.RoomID) string {
	return fmt.Sprintf("%sroom:%s", c.prefix, rid)
}

func (c *RedisRoomCache) Get(ctx context.Context, rid domain.RoomID) (*domain.Room, error) {
	data, err := c.client.Get(ctx, c.key(rid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	var room domain.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}
	return &room, nil
}

func (c *RedisRoomCache) Set(ctx context.Context, room *domain.Room, ttl time.Duration) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}
	if err := c.client.Set(ctx, c.key(room.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

func (c *RedisRoomCache) Delete(ctx context.Context, rid domain.RoomID) error {
	if err := c.client.Del(ctx, c.key(rid)).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

func (c *RedisRoomCache) Close() error {
	return c.client.Close()
}

// CachedRoomProvider reads room metadata through a cache. Concurrent misses
// for the same room collapse into one lookup.
type CachedRoomProvider struct {
	next  core.RoomProvider
	cache RoomCache
	ttl   time.Duration
	sf    singleflight.Group
}

func NewCachedRoomProvider(next core.RoomProvider, cache RoomCache, ttl time.Duration) *CachedRoomProvider {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedRoomProvider{next: next, cache: cache, ttl: ttl}
}

func (p *CachedRoomProvider) GetRoom(ctx context.Context, rid domain.RoomID) (*domain.Room, error) {
	v, err, _ := p.sf.Do(string(rid), func() (any, error) {
		return p.fetch(ctx, rid)
	})
	if err != nil {
		return nil, err
	}
	room, ok := v.(*domain.Room)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from singleflight")
	}
	cp := *room
	return &cp, nil
}

func (p *CachedRoomProvider) fetch(ctx context.Context, rid domain.RoomID) (*domain.Room, error) {
	room, err := p.cache.Get(ctx, rid)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		log.Warn().Err(err).Str("module", "store").Str("room", string(rid)).Msg("room cache get")
	}

	room, err = p.next.GetRoom(ctx, rid)
	if err != nil {
		return nil, err
	}
	if err := p.cache.Set(ctx, room, p.ttl); err != nil {
		log.Warn().Err(err).Str("module", "store").Str("room", string(rid)).Msg("room cache set")
	}
	return room, nil
}

// Invalidate drops a cached room after its metadata changed.
func (p *CachedRoomProvider) Invalidate(ctx context.Context, rid domain.RoomID) error {
	return p.cache.Delete(ctx, rid)
}
