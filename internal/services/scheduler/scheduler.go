// Package scheduler удаляет брошенные оплаты: незавершённые регистрации,
// по которым платёж так и не подтвердился.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/serene987/vidora/internal/lib/sl"
	"github.com/serene987/vidora/internal/metrics"
	"github.com/serene987/vidora/internal/models"
	"github.com/serene987/vidora/internal/rabbitmq"
)

// PendingRepository хранилище незавершённых регистраций.
type PendingRepository interface {
	DeleteExpiredPendingSignups(ctx context.Context, olderThan time.Time) ([]*models.PendingSignup, error)
}

// Publisher публикует события для воркера уведомлений.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// SchedulerService периодически чистит просроченные регистрации.
type SchedulerService struct {
	repo       PendingRepository
	publisher  Publisher
	pendingTTL time.Duration
	log        *slog.Logger
	now        func() time.Time
}

// NewSchedulerService создает новый экземпляр SchedulerService.
func NewSchedulerService(repo PendingRepository, publisher Publisher, pendingTTL time.Duration, log *slog.Logger) *SchedulerService {
	return &SchedulerService{
		repo:       repo,
		publisher:  publisher,
		pendingTTL: pendingTTL,
		log:        log,
		now:        time.Now,
	}
}

// Run выполняет очистку сразу и затем каждые interval до отмены ctx.
func (s *SchedulerService) Run(ctx context.Context, interval time.Duration) {
	s.CleanupExpiredPending(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.CleanupExpiredPending(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// CleanupExpiredPending удаляет регистрации старше pendingTTL, начатые через
// оплату, и публикует по событию на каждую. Записи, созданные отменой тарифа,
// не трогает. Возвращает число удалённых записей.
func (s *SchedulerService) CleanupExpiredPending(ctx context.Context) int {
	cutoff := s.now().Add(-s.pendingTTL)
	s.log.Info("starting cleanup of abandoned checkouts", slog.Time("older_than", cutoff))

	expired, err := s.repo.DeleteExpiredPendingSignups(ctx, cutoff)
	if err != nil {
		s.log.Error("failed to delete expired pending signups", sl.Err(err))
		return 0
	}
	if len(expired) == 0 {
		s.log.Info("no abandoned checkouts found")
		return 0
	}
	metrics.PendingExpiredTotal.Add(float64(len(expired)))
	s.log.Info("removed abandoned checkouts", slog.Int("count", len(expired)))

	for _, p := range expired {
		event := models.CheckoutAbandoned{
			Email:     p.Email,
			FullName:  p.FullName,
			PlanID:    p.PlanID,
			CreatedAt: p.CreatedAt,
		}
		if err := s.publisher.Publish(ctx, rabbitmq.RoutingAbandoned, event); err != nil {
			s.log.Error("failed to publish message", slog.String("email", p.Email), sl.Err(err))
		}
	}
	return len(expired)
}
