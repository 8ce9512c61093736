// Package plans отдаёт каталог тарифов с кэшированием в Redis.
package plans

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/serene987/vidora/internal/lib/sl"
	"github.com/serene987/vidora/internal/models"
	"github.com/serene987/vidora/internal/services"
)

const activePlansKey = "plans:active"

// PlanRepository источник тарифов.
type PlanRepository interface {
	ListActivePlans(ctx context.Context) ([]*models.Plan, error)
	GetPlan(ctx context.Context, id int64) (*models.Plan, bool, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(ctx context.Context, key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// Service каталог тарифов.
type Service struct {
	repo  PlanRepository
	cache Cache
	ttl   time.Duration
	log   *slog.Logger
}

// NewService создаёт новый экземпляр Service. ttl время жизни списка в кэше.
func NewService(repo PlanRepository, cache Cache, ttl time.Duration, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
		log:   log,
	}
}

// ListActive возвращает активные тарифы по возрастанию цены. Ошибки кэша
// не мешают ответу из базы.
func (s *Service) ListActive(ctx context.Context) ([]*models.Plan, error) {
	var cached []*models.Plan
	found, err := s.cache.Get(ctx, activePlansKey, &cached)
	if err != nil {
		s.log.Warn("failed to read plans from cache", sl.Err(err))
	}
	if found && err == nil {
		return cached, nil
	}

	plans, err := s.repo.ListActivePlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	if err := s.cache.Set(ctx, activePlansKey, plans, s.ttl); err != nil {
		s.log.Warn("failed to cache plans", slog.String("key", activePlansKey), sl.Err(err))
	}
	return plans, nil
}

// Get возвращает тариф по ID.
func (s *Service) Get(ctx context.Context, id int64) (*models.Plan, error) {
	plan, found, err := s.repo.GetPlan(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("plan %d: %w", id, services.ErrPlanNotFound)
	}
	return plan, nil
}
