package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"shopwhiz/internal/common/database"
	apperrors "shopwhiz/internal/common/errors"
	"shopwhiz/internal/models"
)

// Store persists conversation state. Get returns a copy the caller owns and
// reports a missing id as CONVERSATION_NOT_FOUND.
type Store interface {
	Get(ctx context.Context, id string) (*models.ConversationState, error)
	Save(ctx context.Context, state *models.ConversationState) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps encoded snapshots so callers never share a state value.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.ConversationState, error) {
	s.mu.RLock()
	data, ok := s.states[id]
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewConversationNotFoundError(id)
	}
	return decodeState(data)
}

func (s *MemoryStore) Save(_ context.Context, state *models.ConversationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return apperrors.NewSessionStoreFailedError(err)
	}
	s.mu.Lock()
	s.states[state.ID] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.states, id)
	s.mu.Unlock()
	return nil
}

// RedisStore keeps one JSON document per conversation with a sliding TTL.
type RedisStore struct {
	client *database.RedisClient
	ttl    time.Duration
}

func NewRedisStore(client *database.RedisClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, id string) (*models.ConversationState, error) {
	data, err := s.client.Get(ctx, s.client.Key(id))
	if errors.Is(err, database.ErrKeyNotFound) {
		return nil, apperrors.NewConversationNotFoundError(id)
	}
	if err != nil {
		return nil, apperrors.NewSessionStoreFailedError(err)
	}
	return decodeState(data)
}

func (s *RedisStore) Save(ctx context.Context, state *models.ConversationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return apperrors.NewSessionStoreFailedError(err)
	}
	if err := s.client.Set(ctx, s.client.Key(state.ID), data, s.ttl); err != nil {
		return apperrors.NewSessionStoreFailedError(err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.client.Key(id)); err != nil {
		return apperrors.NewSessionStoreFailedError(err)
	}
	return nil
}

func decodeState(data []byte) (*models.ConversationState, error) {
	var state models.ConversationState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, apperrors.NewSessionStoreFailedError(err)
	}
	if state.AnsweredQuestions == nil {
		state.AnsweredQuestions = map[string]interface{}{}
	}
	if state.Messages == nil {
		state.Messages = []models.Message{}
	}
	if state.FollowUpQuestions == nil {
		state.FollowUpQuestions = []models.FollowUpQuestion{}
	}
	return &state, nil
}
