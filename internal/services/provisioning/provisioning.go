// Package provisioning подтверждает оплату и создаёт по ней аккаунт и подписку.
//
// ConfirmPayment вызывается и из редиректа после оплаты, и из вебхука шлюза,
// в любом порядке и любое число раз. Сходимость обеспечивают уникальные
// индексы базы и транзакция на каждую ветку: повторный или конкурентный
// вызов получает OutcomeAlreadyProvisioned.
package provisioning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/serene987/vidora/internal/lib/month"
	"github.com/serene987/vidora/internal/lib/sl"
	"github.com/serene987/vidora/internal/metrics"
	"github.com/serene987/vidora/internal/models"
	"github.com/serene987/vidora/internal/paymentprovider"
	"github.com/serene987/vidora/internal/rabbitmq"
	"github.com/serene987/vidora/internal/services"
	"github.com/serene987/vidora/internal/storage"
)

// Repository хранилище, которое нужно для создания аккаунта.
type Repository interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	FindSubscriptionByGatewayIDs(ctx context.Context, primary, fallback string) (*models.Subscription, bool, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, bool, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, bool, error)
	GetPlan(ctx context.Context, id int64) (*models.Plan, bool, error)
	GetPendingSignupBySessionID(ctx context.Context, sessionID string) (*models.PendingSignup, bool, error)
	SetGatewayCustomerID(ctx context.Context, userID int64, customerID string) error
	CreateUser(ctx context.Context, user models.User) (int64, error)
	CreateSubscription(ctx context.Context, sub models.Subscription) (int64, error)
	DeletePendingSignup(ctx context.Context, id int64) error
	DeletePendingSignupsByEmail(ctx context.Context, email string) (int64, error)
}

// Gateway операции платёжного шлюза.
type Gateway interface {
	RetrieveSession(ctx context.Context, sessionID string) (*paymentprovider.Session, error)
	CreateCustomer(ctx context.Context, email, name string) (string, error)
}

// Publisher публикует события для воркера уведомлений.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// Service подтверждает оплату.
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

// ConfirmPayment создаёт ровно одного пользователя и одну подписку по оплаченной
// сессии или сообщает, что это уже сделано. source попадает в метрики.
func (s *Service) ConfirmPayment(ctx context.Context, sessionID, source string) (*Result, error) {
	log := s.log.With(sl.SessionID(sessionID), slog.String("source", source))

	res, err := s.confirm(ctx, log, sessionID)
	if err != nil {
		metrics.ProvisioningTotal.WithLabelValues(source, "failed").Inc()
		return nil, err
	}
	metrics.ProvisioningTotal.WithLabelValues(source, string(res.Outcome)).Inc()
	if res.Degraded() {
		metrics.ProvisioningDegradedTotal.Inc()
	}
	return res, nil
}

func (s *Service) confirm(ctx context.Context, log *slog.Logger, sessionID string) (*Result, error) {
	sess, err := s.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve checkout session: %w", err)
	}

	existing, found, err := s.repo.FindSubscriptionByGatewayIDs(ctx, sess.SubscriptionID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing subscription: %w", err)
	}
	if found {
		log.Info("subscription already exists", slog.Int64("subscription_id", existing.ID))
		return &Result{
			Outcome:               OutcomeAlreadyProvisioned,
			Reason:                ReasonSubscriptionExists,
			UserID:                existing.UserID,
			SubscriptionID:        existing.ID,
			GatewaySubscriptionID: existing.GatewaySubscriptionID,
		}, nil
	}

	if !sess.Paid() {
		log.Info("checkout session is not paid", slog.String("payment_status", sess.PaymentStatus))
		return nil, fmt.Errorf("session %s: %w", sessionID, services.ErrPaymentIncomplete)
	}

	intent, err := DecodeIntent(sessionID, sess.Metadata)
	if err != nil {
		return nil, err
	}

	var res *Result
	switch in := intent.(type) {
	case ExistingUser:
		res, err = s.provisionExistingUser(ctx, log, sess, in)
	case NewSignup:
		res, err = s.provisionNewSignup(ctx, log, sess, in)
	}
	if err != nil {
		return nil, err
	}
	res.IntentKind = intent.Kind()
	return res, nil
}

func (s *Service) provisionExistingUser(ctx context.Context, log *slog.Logger, sess *paymentprovider.Session, in ExistingUser) (*Result, error) {
	user, found, err := s.repo.GetUserByID(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("user %d: %w", in.UserID, services.ErrUserNotFound)
	}
	plan, found, err := s.repo.GetPlan(ctx, in.PlanID)
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("plan %d: %w", in.PlanID, services.ErrPlanNotFound)
	}

	customerID := user.GatewayCustomerID
	if customerID == "" {
		customerID = sess.CustomerID
	}
	if customerID == "" {
		customerID, err = s.gateway.CreateCustomer(ctx, user.Email, user.FullName)
		if err != nil {
			return nil, fmt.Errorf("failed to create gateway customer: %w", err)
		}
	}

	sub := s.newSubscription(user.ID, plan, sess)
	var subID int64
	err = s.repo.WithinTx(ctx, func(ctx context.Context) error {
		if user.GatewayCustomerID == "" {
			if err := s.repo.SetGatewayCustomerID(ctx, user.ID, customerID); err != nil {
				return err
			}
		}
		id, err := s.repo.CreateSubscription(ctx, sub)
		if err != nil {
			return err
		}
		subID = id
		_, err = s.repo.DeletePendingSignupsByEmail(ctx, user.Email)
		return err
	})
	if errors.Is(err, storage.ErrDuplicate) {
		return s.lostRace(ctx, log, sess)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to provision subscription: %w", err)
	}

	res := s.provisioned(log, user.ID, subID, sess)
	s.publishProvisioned(ctx, log, user, plan.ID, subID, false)
	return res, nil
}

func (s *Service) provisionNewSignup(ctx context.Context, log *slog.Logger, sess *paymentprovider.Session, in NewSignup) (*Result, error) {
	pending, found, err := s.repo.GetPendingSignupBySessionID(ctx, in.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending signup: %w", err)
	}
	if !found {
		// Конкурентное подтверждение могло удалить запись между проверками.
		existing, subFound, err := s.repo.FindSubscriptionByGatewayIDs(ctx, sess.SubscriptionID, sess.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check existing subscription: %w", err)
		}
		if subFound {
			return &Result{
				Outcome:               OutcomeAlreadyProvisioned,
				Reason:                ReasonConcurrentConfirmation,
				UserID:                existing.UserID,
				SubscriptionID:        existing.ID,
				GatewaySubscriptionID: existing.GatewaySubscriptionID,
			}, nil
		}
		return nil, fmt.Errorf("session %s: %w", in.SessionID, services.ErrPendingSignupNotFound)
	}
	plan, found, err := s.repo.GetPlan(ctx, pending.PlanID)
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("plan %d: %w", pending.PlanID, services.ErrPlanNotFound)
	}

	fullName := pending.FullName
	if fullName == "" {
		fullName = models.DefaultFullName(pending.Email)
	}

	// Без клиента шлюза аккаунт всё равно создаётся, клиента заведёт следующая оплата.
	customerID := sess.CustomerID
	if customerID == "" {
		customerID, err = s.gateway.CreateCustomer(ctx, pending.Email, fullName)
		if err != nil {
			log.Warn("failed to create gateway customer, continuing without it", sl.Err(err))
			customerID = ""
		}
	}

	user := models.User{
		FullName:          fullName,
		Email:             pending.Email,
		PasswordHash:      pending.PasswordHash,
		EmailVerified:     true,
		Role:              models.RoleUser,
		GatewayCustomerID: customerID,
	}

	var (
		res   *Result
		subID int64
	)
	err = s.repo.WithinTx(ctx, func(ctx context.Context) error {
		existing, found, err := s.repo.GetUserByEmail(ctx, pending.Email)
		if err != nil {
			return err
		}
		if found {
			if err := s.repo.DeletePendingSignup(ctx, pending.ID); err != nil {
				return err
			}
			res = &Result{
				Outcome: OutcomeAlreadyProvisioned,
				Reason:  ReasonAccountExists,
				UserID:  existing.ID,
			}
			return nil
		}

		user.ID, err = s.repo.CreateUser(ctx, user)
		if err != nil {
			return err
		}
		subID, err = s.repo.CreateSubscription(ctx, s.newSubscription(user.ID, plan, sess))
		if err != nil {
			return err
		}
		return s.repo.DeletePendingSignup(ctx, pending.ID)
	})
	if errors.Is(err, storage.ErrDuplicate) {
		return s.lostRace(ctx, log, sess)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to provision account: %w", err)
	}
	if res != nil {
		log.Info("account already exists for pending signup", slog.Int64("user_id", res.UserID))
		return res, nil
	}

	res = s.provisioned(log, user.ID, subID, sess)
	s.publishProvisioned(ctx, log, &user, plan.ID, subID, true)
	return res, nil
}

func (s *Service) newSubscription(userID int64, plan *models.Plan, sess *paymentprovider.Session) models.Subscription {
	start := s.now().UTC()
	next := month.NextBillingDate(start, plan.BillingCycle)
	gatewayID, degradation := gatewaySubscriptionID(sess)
	return models.Subscription{
		UserID:                userID,
		PlanID:                plan.ID,
		Status:                models.StatusActive,
		GatewaySubscriptionID: gatewayID,
		StartDate:             start,
		NextBillingDate:       &next,
		Degraded:              degradation != "",
	}
}

// gatewaySubscriptionID идентификатор подписки шлюза или, если его нет,
// идентификатор сессии с отметкой о деградации.
func gatewaySubscriptionID(sess *paymentprovider.Session) (string, Degradation) {
	if sess.SubscriptionID != "" {
		return sess.SubscriptionID, ""
	}
	return sess.ID, DegradationSessionAsSubscription
}

func (s *Service) provisioned(log *slog.Logger, userID, subID int64, sess *paymentprovider.Session) *Result {
	gatewayID, degradation := gatewaySubscriptionID(sess)
	if degradation != "" {
		log.Warn("session has no subscription, stored session id instead", slog.Int64("subscription_id", subID))
	}
	log.Info("account provisioned", slog.Int64("user_id", userID), slog.Int64("subscription_id", subID))
	return &Result{
		Outcome:               OutcomeProvisioned,
		UserID:                userID,
		SubscriptionID:        subID,
		GatewaySubscriptionID: gatewayID,
		Degradation:           degradation,
	}
}

// lostRace собирает результат, когда конкурентное подтверждение успело первым.
func (s *Service) lostRace(ctx context.Context, log *slog.Logger, sess *paymentprovider.Session) (*Result, error) {
	log.Info("concurrent confirmation won the race")
	res := &Result{
		Outcome: OutcomeAlreadyProvisioned,
		Reason:  ReasonConcurrentConfirmation,
	}
	existing, found, err := s.repo.FindSubscriptionByGatewayIDs(ctx, sess.SubscriptionID, sess.ID)
	if err != nil {
		log.Warn("failed to load winning subscription", sl.Err(err))
		return res, nil
	}
	if found {
		res.UserID = existing.UserID
		res.SubscriptionID = existing.ID
		res.GatewaySubscriptionID = existing.GatewaySubscriptionID
	}
	return res, nil
}

func (s *Service) publishProvisioned(ctx context.Context, log *slog.Logger, user *models.User, planID, subID int64, newAccount bool) {
	event := models.AccountProvisioned{
		UserID:         user.ID,
		Email:          user.Email,
		FullName:       user.FullName,
		PlanID:         planID,
		SubscriptionID: subID,
		NewAccount:     newAccount,
		ProvisionedAt:  s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, rabbitmq.RoutingWelcome, event); err != nil {
		log.Warn("failed to publish provisioning event", sl.Err(err))
	}
}
