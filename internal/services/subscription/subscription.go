// Package subscription управляет подписками пользователя напрямую через
// платёжный шлюз и применяет к ним события счетов.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/serene987/vidora/internal/lib/month"
	"github.com/serene987/vidora/internal/lib/sl"
	"github.com/serene987/vidora/internal/models"
	"github.com/serene987/vidora/internal/paymentprovider"
	"github.com/serene987/vidora/internal/services"
)

// SubscriptionRepository определяет методы для работы с подписками в хранилище.
type SubscriptionRepository interface {
	// GetActivePlan возвращает тариф, доступный для покупки.
	GetActivePlan(ctx context.Context, id int64) (*models.Plan, bool, error)
	// GetUserByID возвращает пользователя по ID.
	GetUserByID(ctx context.Context, id int64) (*models.User, bool, error)
	// SetGatewayCustomerID сохраняет идентификатор клиента в шлюзе.
	SetGatewayCustomerID(ctx context.Context, userID int64, customerID string) error
	// CreateSubscription добавляет подписку и возвращает её ID.
	CreateSubscription(ctx context.Context, sub models.Subscription) (int64, error)
	// GetSubscription возвращает подписку по ID.
	GetSubscription(ctx context.Context, id int64) (*models.Subscription, bool, error)
	// ListSubscriptionsWithPlan возвращает подписки пользователя вместе с тарифами.
	ListSubscriptionsWithPlan(ctx context.Context, userID int64) ([]*models.SubscriptionWithPlan, error)
	// CancelSubscription отменяет подписку с датой окончания endDate.
	CancelSubscription(ctx context.Context, id int64, endDate time.Time) (bool, error)
	// UpdateSubscriptionStatusByGatewayID меняет статус подписки по идентификатору шлюза.
	UpdateSubscriptionStatusByGatewayID(ctx context.Context, gatewayID, status string) (int64, error)
}

// Gateway операции шлюза над подписками.
type Gateway interface {
	CreateCustomer(ctx context.Context, email, name string) (string, error)
	CreateSubscription(ctx context.Context, customerID, priceID string) (*paymentprovider.Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error
}

// Created результат создания подписки в шлюзе.
type Created struct {
	Subscription    models.Subscription `json:"subscription"`
	LatestInvoiceID string              `json:"latest_invoice_id,omitempty"`
	ClientSecret    string              `json:"client_secret,omitempty"`
}

// SubscriptionService реализует бизнес-логику работы с подписками.
type SubscriptionService struct {
	repo    SubscriptionRepository
	gateway Gateway
	log     *slog.Logger
	now     func() time.Time
}

// NewSubscriptionService создает новый экземпляр SubscriptionService.
func NewSubscriptionService(repo SubscriptionRepository, gateway Gateway, log *slog.Logger) *SubscriptionService {
	return &SubscriptionService{
		repo:    repo,
		gateway: gateway,
		log:     log,
		now:     time.Now,
	}
}

// Create создаёт в шлюзе подписку на тариф и сохраняет её в статусе trialing.
// Клиент в шлюзе создаётся при первой подписке пользователя.
func (s *SubscriptionService) Create(ctx context.Context, userID, planID int64) (*Created, error) {
	plan, found, err := s.repo.GetActivePlan(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("plan %d: %w", planID, services.ErrPlanNotFound)
	}
	if plan.GatewayPriceID == "" {
		return nil, fmt.Errorf("plan %d: %w", planID, services.ErrGatewayPriceMissing)
	}

	user, found, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("user %d: %w", userID, services.ErrUserNotFound)
	}

	customerID := user.GatewayCustomerID
	if customerID == "" {
		customerID, err = s.gateway.CreateCustomer(ctx, user.Email, user.FullName)
		if err != nil {
			return nil, fmt.Errorf("failed to create customer: %w", err)
		}
		if err := s.repo.SetGatewayCustomerID(ctx, user.ID, customerID); err != nil {
			return nil, fmt.Errorf("failed to save customer: %w", err)
		}
	}

	gwSub, err := s.gateway.CreateSubscription(ctx, customerID, plan.GatewayPriceID)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway subscription: %w", err)
	}

	start := s.now().UTC()
	next := month.NextBillingDate(start, plan.BillingCycle)
	sub := models.Subscription{
		UserID:                user.ID,
		PlanID:                plan.ID,
		Status:                models.StatusTrialing,
		GatewaySubscriptionID: gwSub.ID,
		StartDate:             start,
		NextBillingDate:       &next,
	}
	id, err := s.repo.CreateSubscription(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("failed to save subscription: %w", err)
	}
	sub.ID = id

	s.log.Info("created gateway subscription",
		slog.Int64("user_id", user.ID),
		slog.Int64("subscription_id", id),
		slog.String("gateway_subscription_id", gwSub.ID))

	return &Created{
		Subscription:    sub,
		LatestInvoiceID: gwSub.LatestInvoiceID,
		ClientSecret:    gwSub.ClientSecret,
	}, nil
}

// List возвращает подписки пользователя вместе с тарифами.
func (s *SubscriptionService) List(ctx context.Context, userID int64) ([]*models.SubscriptionWithPlan, error) {
	subs, err := s.repo.ListSubscriptionsWithPlan(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}

// Cancel отменяет подписку пользователя в шлюзе и в базе. Чужая подписка
// считается ненайденной. Уже отменённая возвращается без изменений.
func (s *SubscriptionService) Cancel(ctx context.Context, userID, subscriptionID int64) (*models.Subscription, error) {
	sub, found, err := s.repo.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	if !found || sub.UserID != userID {
		return nil, fmt.Errorf("subscription %d: %w", subscriptionID, services.ErrSubscriptionNotFound)
	}
	if sub.Status == models.StatusCancelled {
		return sub, nil
	}

	if sub.HasGatewaySubscription() {
		if err := s.gateway.CancelSubscription(ctx, sub.GatewaySubscriptionID); err != nil {
			return nil, fmt.Errorf("failed to cancel gateway subscription: %w", err)
		}
	}

	endDate := s.now().UTC()
	if _, err := s.repo.CancelSubscription(ctx, sub.ID, endDate); err != nil {
		return nil, fmt.Errorf("failed to cancel subscription: %w", err)
	}
	sub.Status = models.StatusCancelled
	sub.EndDate = &endDate
	sub.NextBillingDate = nil

	s.log.Info("subscription cancelled", slog.Int64("user_id", userID), slog.Int64("subscription_id", sub.ID))
	return sub, nil
}

// ApplyInvoice переводит подписку счёта в статус по типу события: оплаченный
// счёт делает её active, неоплаченный cancelled. Возвращает число изменённых
// подписок, 0 для неизвестной подписки или счёта без подписки.
func (s *SubscriptionService) ApplyInvoice(ctx context.Context, eventType string, invoice *paymentprovider.Invoice) (int64, error) {
	var status string
	switch eventType {
	case paymentprovider.EventInvoicePaymentSucceeded:
		status = models.StatusActive
	case paymentprovider.EventInvoicePaymentFailed:
		status = models.StatusCancelled
	default:
		return 0, nil
	}
	if invoice == nil || invoice.SubscriptionID == "" {
		s.log.Info("invoice without subscription ignored", slog.String("type", eventType))
		return 0, nil
	}

	log := s.log.With(
		slog.String("gateway_subscription_id", invoice.SubscriptionID),
		slog.String("status", status),
	)
	n, err := s.repo.UpdateSubscriptionStatusByGatewayID(ctx, invoice.SubscriptionID, status)
	if err != nil {
		log.Error("failed to apply invoice", sl.Err(err))
		return 0, fmt.Errorf("failed to update subscription status: %w", err)
	}
	if n == 0 {
		log.Info("invoice for unknown subscription")
		return 0, nil
	}
	log.Info("subscription status updated from invoice")
	return n, nil
}
