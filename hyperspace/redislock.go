package hyperspace

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rangedb/htcore/corelib"
)

// RedisService implements Service using Redis SET-NX/TTL locks as the
// exclusive lock-file primitive and Redis hashes as the table attribute
// store. Grounded on the teacher's in_red_ck/redis/locker.go Lock/Unlock
// idiom (a lock is a key whose value is a session token the holder must
// match to be considered "still holding it"), generalized from B-Tree node
// locks to range-server location locks.
type RedisService struct {
	client *redis.Client
	// leaseTTL bounds how long a lock survives without a session keep-alive;
	// expiry simulates the crash-detection Hyperspace otherwise provides.
	leaseTTL time.Duration

	mu       sync.Mutex
	watchers map[string][]Callback
}

// NewRedisService wires a Service on top of an already-connected *redis.Client.
func NewRedisService(client *redis.Client, leaseTTL time.Duration) *RedisService {
	if leaseTTL <= 0 {
		leaseTTL = 30 * time.Second
	}
	return &RedisService{client: client, leaseTTL: leaseTTL, watchers: make(map[string][]Callback)}
}

func lockKey(location string) string {
	return fmt.Sprintf("L%s", location)
}

func attrKey(path string) string {
	return fmt.Sprintf("A%s", path)
}

type redisLockHandle struct {
	svc        *RedisService
	location   string
	token      string
	generation uint64
}

func (h *redisLockHandle) Generation() uint64 { return h.generation }

func (h *redisLockHandle) Release(ctx context.Context) error {
	key := lockKey(h.location)
	cur, err := h.svc.client.Get(ctx, key).Result()
	if err != nil && err != redis.Nil {
		return corelib.Wrap(corelib.External, "redis get during release", err)
	}
	if err == nil && cur == h.token {
		if err := h.svc.client.Del(ctx, key).Err(); err != nil {
			return corelib.Wrap(corelib.External, "redis del during release", err)
		}
	}
	h.svc.fire(Event{Kind: LockReleased, Location: h.location, Generation: h.generation, At: corelib.Now()})
	return nil
}

// AcquireLock takes the exclusive lock for location, failing if another
// holder's token is already present (spec §6 Hyperspace contract: a range
// server holds an exclusive lock on its entry while alive).
func (s *RedisService) AcquireLock(ctx context.Context, location string) (LockHandle, error) {
	key := lockKey(location)
	token := corelib.NewUUID().String()
	ok, err := s.client.SetNX(ctx, key, token, s.leaseTTL).Result()
	if err != nil {
		return nil, corelib.Wrap(corelib.External, "redis setnx", err)
	}
	if !ok {
		return nil, corelib.New(corelib.External, fmt.Sprintf("lock(%s) already held", location))
	}
	gen, _ := s.client.Incr(ctx, key+":gen").Result()
	h := &redisLockHandle{svc: s, location: location, token: token, generation: uint64(gen)}
	s.fire(Event{Kind: LockAcquired, Location: location, Generation: h.generation, At: corelib.Now()})
	return h, nil
}

// Watch registers cb for location; RedisService has no native pub/sub
// dependency wired for this (kept out of scope per spec §1), so callbacks are
// invoked synchronously from AcquireLock/Release on this process only -
// sufficient for the single-master tests this core ships with.
func (s *RedisService) Watch(ctx context.Context, location string, cb Callback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers[location] = append(s.watchers[location], cb)
	return nil
}

func (s *RedisService) fire(ev Event) {
	s.mu.Lock()
	cbs := append([]Callback(nil), s.watchers[ev.Location]...)
	s.mu.Unlock()
	for _, cb := range cbs {
		cb(ev)
	}
}

func (s *RedisService) SetAttribute(ctx context.Context, path, name string, value []byte) error {
	if err := s.client.HSet(ctx, attrKey(path), name, value).Err(); err != nil {
		return corelib.Wrap(corelib.External, "redis hset attribute", err)
	}
	return nil
}

func (s *RedisService) GetAttribute(ctx context.Context, path, name string) ([]byte, error) {
	v, err := s.client.HGet(ctx, attrKey(path), name).Bytes()
	if err == redis.Nil {
		return nil, corelib.New(corelib.HyperspaceNotFound, path+"#"+name)
	}
	if err != nil {
		return nil, corelib.Wrap(corelib.External, "redis hget attribute", err)
	}
	return v, nil
}

func (s *RedisService) Create(ctx context.Context, path string, idempotent bool) error {
	created, err := s.client.HSetNX(ctx, attrKey(path), "created", "1").Result()
	if err != nil {
		return corelib.Wrap(corelib.External, "redis create", err)
	}
	if !created && !idempotent {
		return corelib.New(corelib.HyperspaceBadPath, path+" already exists")
	}
	return nil
}

func (s *RedisService) Remove(ctx context.Context, path string) error {
	if err := s.client.Del(ctx, attrKey(path)).Err(); err != nil && err != redis.Nil {
		return corelib.Wrap(corelib.External, "redis remove", err)
	}
	// Missing path is success (spec §7.iii: FILE_NOT_FOUND absorbed on drop paths).
	return nil
}
