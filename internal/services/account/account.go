// Package account обслуживает личный кабинет: профиль, смену пароля,
// отмену тарифа и удаление аккаунта.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/serene987/vidora/internal/lib/password"
	"github.com/serene987/vidora/internal/lib/sl"
	"github.com/serene987/vidora/internal/models"
	"github.com/serene987/vidora/internal/rabbitmq"
	"github.com/serene987/vidora/internal/services"
)

// Repository хранилище личного кабинета.
type Repository interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetUserByID(ctx context.Context, id int64) (*models.User, bool, error)
	GetActiveSubscriptionWithPlan(ctx context.Context, userID int64) (*models.SubscriptionWithPlan, bool, error)
	GetLatestSubscriptionWithPlan(ctx context.Context, userID int64) (*models.SubscriptionWithPlan, bool, error)
	UpdatePasswordHash(ctx context.Context, userID int64, hash string) error
	CreatePendingSignup(ctx context.Context, p models.PendingSignup) (int64, error)
	CancelSubscription(ctx context.Context, id int64, endDate time.Time) (bool, error)
	DeleteUser(ctx context.Context, userID int64) (int64, error)
}

// Gateway отменяет подписки в платёжном шлюзе.
type Gateway interface {
	CancelSubscription(ctx context.Context, subscriptionID string) error
}

// Publisher публикует события для воркера уведомлений.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// Service личный кабинет пользователя.
type Service struct {
	repo      Repository
	gateway   Gateway
	publisher Publisher
	log       *slog.Logger
	now       func() time.Time
}

// NewService создаёт новый экземпляр Service.
func NewService(repo Repository, gateway Gateway, publisher Publisher, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		gateway:   gateway,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// Profile возвращает публичные данные пользователя.
func (s *Service) Profile(ctx context.Context, userID int64) (*models.Profile, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile := user.ToProfile()
	return &profile, nil
}

// Dashboard возвращает профиль и последнюю подписку с тарифом.
func (s *Service) Dashboard(ctx context.Context, userID int64) (*models.Dashboard, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	sub, found, err := s.repo.GetLatestSubscriptionWithPlan(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	dashboard := &models.Dashboard{User: user.ToProfile()}
	if found {
		dashboard.Subscription = sub
	}
	return dashboard, nil
}

// ChangePassword меняет пароль после проверки текущего.
func (s *Service) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	user, err := s.user(ctx, userID)
	if err != nil {
		return err
	}
	if err := password.CompareHash(user.PasswordHash, oldPassword); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return services.ErrInvalidCurrentPassword
		}
		return fmt.Errorf("failed to compare password: %w", err)
	}

	hash, err := password.GetHash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.repo.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	s.log.Info("password changed", slog.Int64("user_id", userID))
	return nil
}

// CancelPlan отменяет активную подписку пользователя.
//
// В одной транзакции данные пользователя сохраняются как незавершённая
// регистрация на тот же тариф, а подписка получает статус cancelled и дату
// окончания. Пользователь остаётся. Подписка в шлюзе отменяется после коммита,
// ошибка шлюза только логируется.
func (s *Service) CancelPlan(ctx context.Context, userID int64) (*models.SubscriptionWithPlan, error) {
	log := s.log.With(slog.Int64("user_id", userID))

	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	sub, found, err := s.repo.GetActiveSubscriptionWithPlan(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("user %d: %w", userID, services.ErrNoActiveSubscription)
	}

	endDate := s.now().UTC()
	err = s.repo.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.CreatePendingSignup(ctx, models.PendingSignup{
			FullName:     user.FullName,
			Email:        user.Email,
			PasswordHash: user.PasswordHash,
			PlanID:       sub.PlanID,
		}); err != nil {
			return err
		}
		cancelled, err := s.repo.CancelSubscription(ctx, sub.ID, endDate)
		if err != nil {
			return err
		}
		if !cancelled {
			return services.ErrNoActiveSubscription
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to cancel plan: %w", err)
	}

	s.cancelAtGateway(ctx, log, &sub.Subscription)

	sub.Status = models.StatusCancelled
	sub.EndDate = &endDate
	sub.NextBillingDate = nil
	log.Info("plan cancelled", slog.Int64("subscription_id", sub.ID))

	event := models.PlanCancelled{
		UserID:         user.ID,
		Email:          user.Email,
		FullName:       user.FullName,
		PlanID:         sub.PlanID,
		SubscriptionID: sub.ID,
		CancelledAt:    endDate,
	}
	if err := s.publisher.Publish(ctx, rabbitmq.RoutingCancelled, event); err != nil {
		log.Warn("failed to publish cancellation event", sl.Err(err))
	}
	return sub, nil
}

// DeleteAccount удаляет пользователя вместе с подписками. Активная подписка
// в шлюзе перед этим отменяется.
func (s *Service) DeleteAccount(ctx context.Context, userID int64) error {
	log := s.log.With(slog.Int64("user_id", userID))

	sub, found, err := s.repo.GetActiveSubscriptionWithPlan(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get subscription: %w", err)
	}
	if found {
		s.cancelAtGateway(ctx, log, &sub.Subscription)
	}

	n, err := s.repo.DeleteUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %d: %w", userID, services.ErrUserNotFound)
	}
	log.Info("account deleted")
	return nil
}

// cancelAtGateway отменяет подписку в шлюзе. Деградированные подписки,
// сохранённые с идентификатором сессии, пропускаются.
func (s *Service) cancelAtGateway(ctx context.Context, log *slog.Logger, sub *models.Subscription) {
	gatewayID := sub.GatewaySubscriptionID
	if !sub.HasGatewaySubscription() {
		log.Info("no gateway subscription to cancel",
			slog.String("gateway_subscription_id", gatewayID), slog.Bool("degraded", sub.Degraded))
		return
	}
	if err := s.gateway.CancelSubscription(ctx, gatewayID); err != nil {
		log.Warn("failed to cancel gateway subscription", slog.String("gateway_subscription_id", gatewayID), sl.Err(err))
	}
}

func (s *Service) user(ctx context.Context, userID int64) (*models.User, error) {
	user, found, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("user %d: %w", userID, services.ErrUserNotFound)
	}
	return user, nil
}
