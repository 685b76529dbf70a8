// Package session manages active-call conversation state in Redis, with an
// in-process fallback for when Redis is unreachable.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/propertyhub/voice-agent/internal/domain"
	"github.com/propertyhub/voice-agent/internal/observability"
)

const keyPrefix = "session:"

// Store holds conversation state for active calls in Redis, falling back to
// an in-process map if Redis is unavailable. Once a Redis operation fails,
// the store stops retrying Redis for the lifetime of the process and serves
// exclusively from memory.
type Store struct {
	client         *redis.Client
	ttl            time.Duration
	mu             sync.RWMutex
	memory         map[string]*domain.ConversationSession
	redisAvailable bool
}

// NewStore builds a Store. client may be nil, in which case the store runs
// memory-only from the start (useful for local development without Redis).
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{
		client:         client,
		ttl:            ttl,
		memory:         make(map[string]*domain.ConversationSession),
		redisAvailable: client != nil,
	}
}

func (s *Store) key(callID string) string {
	return keyPrefix + callID
}

// Create builds and persists a new conversation session for callID.
func (s *Store) Create(ctx context.Context, callID string, campaignID, leadID int64, agentName string) (*domain.ConversationSession, error) {
	sess := domain.NewConversationSession(callID, campaignID, leadID, agentName, time.Now())
	if err := s.Save(ctx, sess); err != nil {
		return nil, err
	}
	observability.GetLogger().Info().
		Str("call_id", callID).
		Int64("lead_id", leadID).
		Msg("conversation session created")
	return sess, nil
}

// Get retrieves the conversation session for callID, or nil if not found.
func (s *Store) Get(ctx context.Context, callID string) (*domain.ConversationSession, error) {
	if s.useRedis() {
		data, err := s.client.Get(ctx, s.key(callID)).Bytes()
		if err == nil {
			var sess domain.ConversationSession
			if jsonErr := json.Unmarshal(data, &sess); jsonErr != nil {
				return nil, fmt.Errorf("session: decode %s: %w", callID, jsonErr)
			}
			return &sess, nil
		}
		if err != redis.Nil {
			s.tripRedis(err)
		} else {
			return nil, nil
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.memory[callID], nil
}

// Save persists sess, refreshing its TTL in Redis on every write.
func (s *Store) Save(ctx context.Context, sess *domain.ConversationSession) error {
	if s.useRedis() {
		data, err := json.Marshal(sess)
		if err == nil {
			if setErr := s.client.Set(ctx, s.key(sess.CallID), data, s.ttl).Err(); setErr == nil {
				return nil
			} else {
				s.tripRedis(setErr)
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.memory[sess.CallID] = sess
	return nil
}

// Delete removes the session for callID from both tiers.
func (s *Store) Delete(ctx context.Context, callID string) error {
	if s.useRedis() {
		if err := s.client.Del(ctx, s.key(callID)).Err(); err != nil {
			s.tripRedis(err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.memory, callID)
	return nil
}

// AppendTurn loads the session, appends a turn, and saves it back.
func (s *Store) AppendTurn(ctx context.Context, callID, role, text string) error {
	sess, err := s.Get(ctx, callID)
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("session: %s not found", callID)
	}
	sess.AppendTurn(role, text, time.Now())
	return s.Save(ctx, sess)
}

// Ping reports whether the store can currently serve calls. It is healthy
// whenever Redis is reachable or the in-memory fallback is active, since the
// latter always succeeds; it fails only when a client is configured, no Redis
// operation has failed yet, and the PING itself fails.
func (s *Store) Ping(ctx context.Context) (bool, error) {
	if s.client == nil || !s.useRedis() {
		return true, nil
	}
	if err := s.client.Ping(ctx).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) useRedis() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.redisAvailable && s.client != nil
}

func (s *Store) tripRedis(err error) {
	s.mu.Lock()
	wasAvailable := s.redisAvailable
	s.redisAvailable = false
	s.mu.Unlock()
	if wasAvailable {
		observability.GetLogger().Warn().Err(err).Msg("redis session store unavailable, falling back to memory")
	}
}
