package responder

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	model "github.com/zhouzirui/snakeaid/backend/internal/model/responder"
)

const keyPrefix = "snakeaid:session:"

// SessionStore persists responder sessions keyed by sender.
type SessionStore interface {
	// Load returns the stored session, or ok=false when none exists.
	Load(ctx context.Context, sender string) (model.Session, bool, error)
	Save(ctx context.Context, session model.Session) error
	Delete(ctx context.Context, sender string) error
	Clear(ctx context.Context) error
}

// NewSessionStore connects to Redis when url is set and reachable, and
// falls back to process memory otherwise.
func NewSessionStore(ctx context.Context, url, password string, ttl time.Duration) SessionStore {
	if url == "" {
		log.Info().Msg("REDIS_URL not set, keeping responder sessions in memory")
		return NewMemoryStore(ttl)
	}

	opts := &redis.Options{Addr: url, Password: password}
	if strings.HasPrefix(url, "redis://") || strings.HasPrefix(url, "rediss://") {
		parsed, err := redis.ParseURL(url)
		if err != nil {
			log.Warn().Err(err).Msg("invalid REDIS_URL, keeping responder sessions in memory")
			return NewMemoryStore(ttl)
		}
		if password != "" {
			parsed.Password = password
		}
		opts = parsed
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis unreachable, keeping responder sessions in memory")
		_ = client.Close()
		return NewMemoryStore(ttl)
	}

	log.Info().Str("addr", opts.Addr).Msg("responder sessions stored in redis")
	return NewRedisStore(client, ttl)
}

// RedisStore keeps sessions as JSON values with a TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, sender string) (model.Session, bool, error) {
	raw, err := s.client.Get(ctx, keyPrefix+sender).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Session{}, false, nil
	}
	if err != nil {
		return model.Session{}, false, errors.Wrap(err, "load session")
	}

	var session model.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return model.Session{}, false, errors.Wrap(err, "decode session")
	}
	return session, true, nil
}

func (s *RedisStore) Save(ctx context.Context, session model.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return errors.Wrap(err, "encode session")
	}
	return errors.Wrap(s.client.Set(ctx, keyPrefix+session.Sender, raw, s.ttl).Err(), "save session")
}

func (s *RedisStore) Delete(ctx context.Context, sender string) error {
	return errors.Wrap(s.client.Del(ctx, keyPrefix+sender).Err(), "delete session")
}

func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return errors.Wrap(err, "scan sessions")
	}
	if len(keys) == 0 {
		return nil
	}
	return errors.Wrap(s.client.Del(ctx, keys...).Err(), "clear sessions")
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

type memoryEntry struct {
	session model.Session
	expires time.Time
}

// MemoryStore is the in-process SessionStore. Entries expire after ttl; a
// zero ttl keeps them forever.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemoryStore) Load(_ context.Context, sender string) (model.Session, bool, error) {
	s.mu.RLock()
	entry, ok := s.sessions[sender]
	s.mu.RUnlock()

	if !ok {
		return model.Session{}, false, nil
	}
	if !entry.expires.IsZero() && s.now().After(entry.expires) {
		s.mu.Lock()
		delete(s.sessions, sender)
		s.mu.Unlock()
		return model.Session{}, false, nil
	}

	session := entry.session
	session.Turns = append([]model.Turn(nil), entry.session.Turns...)
	return session, true, nil
}

func (s *MemoryStore) Save(_ context.Context, session model.Session) error {
	entry := memoryEntry{session: session}
	entry.session.Turns = append([]model.Turn(nil), session.Turns...)
	if s.ttl > 0 {
		entry.expires = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	s.sessions[session.Sender] = entry
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sender string) error {
	s.mu.Lock()
	delete(s.sessions, sender)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	s.sessions = make(map[string]memoryEntry)
	s.mu.Unlock()
	return nil
}
