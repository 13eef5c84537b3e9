package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Roles of a conversation turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SessionStore keeps the live turns of each conversation. Entries expire
// after a period of inactivity.
type SessionStore interface {
	Append(ctx context.Context, id string, msgs ...Message) error
	Get(ctx context.Context, id string) ([]Message, error)
	Delete(ctx context.Context, id string) error
}

// MemorySessionStore is a process-local SessionStore. Every access to a
// conversation pushes its expiry forward by the TTL.
type MemorySessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*session
}

type session struct {
	msgs    []Message
	expires time.Time
}

// NewMemorySessionStore keeps idle conversations for ttl. A zero ttl
// keeps them until Delete.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{ttl: ttl, now: time.Now, sessions: map[string]*session{}}
}

func (m *MemorySessionStore) touch(s *session) {
	if m.ttl > 0 {
		s.expires = m.now().Add(m.ttl)
	}
}

// live returns the session for id, dropping it when expired. Caller holds mu.
func (m *MemorySessionStore) live(id string) *session {
	s, ok := m.sessions[id]
	if !ok {
		return nil
	}
	if m.ttl > 0 && m.now().After(s.expires) {
		delete(m.sessions, id)
		return nil
	}
	return s
}

func (m *MemorySessionStore) Append(_ context.Context, id string, msgs ...Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.live(id)
	if s == nil {
		s = &session{}
		m.sessions[id] = s
	}
	s.msgs = append(s.msgs, msgs...)
	m.touch(s)
	m.sweep()
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.live(id)
	if s == nil {
		return nil, nil
	}
	m.touch(s)
	out := make([]Message, len(s.msgs))
	copy(out, s.msgs)
	return out, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len reports how many conversations are held, expired ones included
// until the next sweep.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// sweep drops expired sessions. Caller holds mu.
func (m *MemorySessionStore) sweep() {
	if m.ttl <= 0 {
		return
	}
	now := m.now()
	for id, s := range m.sessions {
		if now.After(s.expires) {
			delete(m.sessions, id)
		}
	}
}

// RedisSessionStore keeps each conversation as a Redis list of JSON
// turns under "<prefix><id>", expiring after ttl of inactivity.
type RedisSessionStore struct {
	rdb    *goredis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisSessionStore wraps an existing client.
func NewRedisSessionStore(rdb *goredis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb, ttl: ttl, prefix: "mvrodados:chat:"}
}

// OpenRedis connects to a redis:// URL and pings it.
func OpenRedis(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	rdb := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (r *RedisSessionStore) key(id string) string { return r.prefix + id }

func (r *RedisSessionStore) Append(ctx context.Context, id string, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	values := make([]any, len(msgs))
	for i, m := range msgs {
		raw, err := json.Marshal(m)
		if err != nil {
			return err
		}
		values[i] = raw
	}
	pipe := r.rdb.TxPipeline()
	pipe.RPush(ctx, r.key(id), values...)
	if r.ttl > 0 {
		pipe.Expire(ctx, r.key(id), r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis append %s: %w", id, err)
	}
	return nil
}

func (r *RedisSessionStore) Get(ctx context.Context, id string) ([]Message, error) {
	raws, err := r.rdb.LRange(ctx, r.key(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", id, err)
	}
	if len(raws) == 0 {
		return nil, nil
	}
	if r.ttl > 0 {
		r.rdb.Expire(ctx, r.key(id), r.ttl)
	}
	out := make([]Message, 0, len(raws))
	for _, raw := range raws {
		var m Message
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("redis decode %s: %w", id, err)
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, r.key(id)).Err()
}
