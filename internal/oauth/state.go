package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// StateTTL bounds how long a redirect handshake may take.
const StateTTL = 10 * time.Minute

// ErrInvalidState means the callback state is unknown, expired or already used.
var ErrInvalidState = errors.New("oauth: invalid or expired state")

// StateStore issues one-time anti-forgery states for the redirect handshake.
type StateStore interface {
	Issue(ctx context.Context) (string, error)
	Consume(ctx context.Context, state string) error
}

func newState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// MemoryStateStore keeps states in process. Suitable for a single replica.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]time.Time
	ttl    time.Duration
	now    func() time.Time
}

// MemoryOption configures MemoryStateStore.
type MemoryOption func(*MemoryStateStore)

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) MemoryOption {
	return func(s *MemoryStateStore) {
		if fn != nil {
			s.now = fn
		}
	}
}

func NewMemoryStateStore(opts ...MemoryOption) *MemoryStateStore {
	s := &MemoryStateStore{states: make(map[string]time.Time), ttl: StateTTL, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStateStore) Issue(context.Context) (string, error) {
	state, err := newState()
	if err != nil {
		return "", err
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, exp := range s.states {
		if !now.Before(exp) {
			delete(s.states, k)
		}
	}
	s.states[state] = now.Add(s.ttl)
	return state, nil
}

func (s *MemoryStateStore) Consume(_ context.Context, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.states[state]
	if !ok {
		return ErrInvalidState
	}
	delete(s.states, state)
	if !s.now().Before(exp) {
		return ErrInvalidState
	}
	return nil
}

// redisKV is the subset of redis.Cmdable the state store needs.
type redisKV interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	GetDel(ctx context.Context, key string) *redis.StringCmd
}

// RedisStateStore shares states across replicas with SET NX EX and GETDEL.
type RedisStateStore struct {
	client redisKV
	prefix string
	ttl    time.Duration
}

func NewRedisStateStore(client redisKV) *RedisStateStore {
	return &RedisStateStore{client: client, prefix: "scentshop:oauth_state:", ttl: StateTTL}
}

func (s *RedisStateStore) Issue(ctx context.Context) (string, error) {
	state, err := newState()
	if err != nil {
		return "", err
	}
	ok, err := s.client.SetNX(ctx, s.prefix+state, "1", s.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("store oauth state: %w", err)
	}
	if !ok {
		return "", errors.New("oauth state collision")
	}
	return state, nil
}

func (s *RedisStateStore) Consume(ctx context.Context, state string) error {
	if state == "" {
		return ErrInvalidState
	}
	_, err := s.client.GetDel(ctx, s.prefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return ErrInvalidState
	}
	if err != nil {
		return fmt.Errorf("consume oauth state: %w", err)
	}
	return nil
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}
