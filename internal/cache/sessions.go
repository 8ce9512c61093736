package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/serene987/vidora/internal/models"
)

const sessionKeyPrefix = "session:"

// ErrSessionNotFound сессия истекла или была удалена.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore хранит сессии пользователей с ограниченным временем жизни.
type SessionStore struct {
	cache *Cache
	ttl   time.Duration
}

// NewSessionStore создаёт хранилище сессий поверх кэша.
func NewSessionStore(cache *Cache, ttl time.Duration) *SessionStore {
	return &SessionStore{cache: cache, ttl: ttl}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

// Create сохраняет сессию для principal и возвращает её идентификатор.
func (s *SessionStore) Create(ctx context.Context, principal models.Principal) (string, error) {
	const op = "cache.SessionStore.Create"
	id := uuid.NewString()
	if err := s.cache.Set(ctx, sessionKey(id), principal, s.ttl); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// Get возвращает сессию по идентификатору.
func (s *SessionStore) Get(ctx context.Context, id string) (*models.Principal, error) {
	const op = "cache.SessionStore.Get"
	var p models.Principal
	found, err := s.cache.Get(ctx, sessionKey(id), &p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil, ErrSessionNotFound
	}
	return &p, nil
}

// Refresh перезаписывает данные сессии и продлевает её время жизни.
func (s *SessionStore) Refresh(ctx context.Context, id string, principal models.Principal) error {
	const op = "cache.SessionStore.Refresh"
	n, err := s.cache.Db.Exists(ctx, sessionKey(id)).Result()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	if err = s.cache.Set(ctx, sessionKey(id), principal, s.ttl); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Delete удаляет сессию. Отсутствие сессии ошибкой не считается.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	const op = "cache.SessionStore.Delete"
	if err := s.cache.Invalidate(ctx, sessionKey(id)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// TTL время жизни новой сессии.
func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}
