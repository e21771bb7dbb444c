package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"platewatch/internal/record"
)

const opTimeout = 3 * time.Second

// RedisStore implements Gate, Records, and Sessions over one Redis client.
// A single mutex serializes every operation system-wide, so concurrent
// conversations never interleave store round-trips and writes to the same
// key stay mutually exclusive.
type RedisStore struct {
	mu     sync.Mutex
	client *redis.Client
}

// NewRedisStore builds a Redis-backed store.
func NewRedisStore(addr, password string) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
	}
}

func userKey(phone string) string {
	return "USER:" + DigitsOnly(phone)
}

func adminKey(phone string) string {
	return "ADMIN:" + DigitsOnly(phone)
}

func carKey(plate string) string {
	return "CAR:" + plate
}

func sessionKey(chatID int64) string {
	return "SESSION:" + strconv.FormatInt(chatID, 10)
}

// IsUser reports whether the phone number is on the user allow-list.
func (s *RedisStore) IsUser(ctx context.Context, phone string) (bool, error) {
	return s.exists(ctx, userKey(phone))
}

// IsAdmin reports whether the phone number is on the admin allow-list.
func (s *RedisStore) IsAdmin(ctx context.Context, phone string) (bool, error) {
	return s.exists(ctx, adminKey(phone))
}

// AddUser puts the phone number on the user allow-list.
func (s *RedisStore) AddUser(ctx context.Context, phone string) error {
	return s.setEmpty(ctx, userKey(phone))
}

// RemoveUser takes the phone number off the user allow-list.
func (s *RedisStore) RemoveUser(ctx context.Context, phone string) error {
	return s.del(ctx, userKey(phone))
}

// AddAdmin puts the phone number on the admin allow-list.
func (s *RedisStore) AddAdmin(ctx context.Context, phone string) error {
	return s.setEmpty(ctx, adminKey(phone))
}

// RemoveAdmin takes the phone number off the admin allow-list.
func (s *RedisStore) RemoveAdmin(ctx context.Context, phone string) error {
	return s.del(ctx, adminKey(phone))
}

// GetRecord loads the record stored under a normalized plate. A missing key
// is not an error; the second return value reports presence.
func (s *RedisStore) GetRecord(ctx context.Context, plate string) (record.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	raw, err := s.client.Get(ctx, carKey(plate)).Bytes()
	if err == redis.Nil {
		return record.Record{}, false, nil
	}
	if err != nil {
		return record.Record{}, false, fmt.Errorf("get record %s: %w", plate, err)
	}
	var rec record.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return record.Record{}, false, fmt.Errorf("decode record %s: %w", plate, err)
	}
	return rec, true, nil
}

// PutRecord stores the record under a normalized plate, overwriting any
// existing record for that key.
func (s *RedisStore) PutRecord(ctx context.Context, plate string, rec record.Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", plate, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := s.client.Set(ctx, carKey(plate), raw, 0).Err(); err != nil {
		return fmt.Errorf("put record %s: %w", plate, err)
	}
	return nil
}

// LoadSession returns the persisted state for a chat, or a fresh Start
// session when the chat has none.
func (s *RedisStore) LoadSession(ctx context.Context, chatID int64) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	raw, err := s.client.Get(ctx, sessionKey(chatID)).Bytes()
	if err == redis.Nil {
		return Session{State: StateStart}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("load session %d: %w", chatID, err)
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return Session{}, fmt.Errorf("decode session %d: %w", chatID, err)
	}
	return sess, nil
}

// SaveSession persists the state for a chat. Sessions never expire.
func (s *RedisStore) SaveSession(ctx context.Context, chatID int64, sess Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %d: %w", chatID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := s.client.Set(ctx, sessionKey(chatID), raw, 0).Err(); err != nil {
		return fmt.Errorf("save session %d: %w", chatID, err)
	}
	return nil
}

func (s *RedisStore) exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", key, err)
	}
	return n > 0, nil
}

func (s *RedisStore) setEmpty(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := s.client.Set(ctx, key, "", 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) del(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := s.client.Del(ctx, key).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}
