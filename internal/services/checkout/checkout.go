// Package checkout открывает сессии оплаты тарифа для новых и существующих
// пользователей и сохраняет незавершённые регистрации до подтверждения оплаты.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/serene987/vidora/internal/lib/password"
	"github.com/serene987/vidora/internal/lib/sl"
	"github.com/serene987/vidora/internal/models"
	"github.com/serene987/vidora/internal/paymentprovider"
	"github.com/serene987/vidora/internal/services"
	"github.com/serene987/vidora/internal/services/provisioning"
)

// Repository хранилище для оформления оплаты.
type Repository interface {
	GetActivePlan(ctx context.Context, id int64) (*models.Plan, bool, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, bool, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, bool, error)
	CreatePendingSignup(ctx context.Context, p models.PendingSignup) (int64, error)
	GetPendingSignupByID(ctx context.Context, id int64) (*models.PendingSignup, bool, error)
	UpdatePendingSessionID(ctx context.Context, id int64, sessionID string) error
	DeletePendingSignupBySessionID(ctx context.Context, sessionID string) (int64, error)
}

// Gateway создаёт сессии оплаты.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req paymentprovider.CheckoutRequest) (*paymentprovider.CheckoutSession, error)
}

// Session открытая сессия оплаты.
type Session struct {
	RedirectURL string `json:"url"`
	SessionID   string `json:"session_id"`
}

// NewSignupRequest данные регистрации, которые станут аккаунтом после оплаты.
type NewSignupRequest struct {
	Email    string
	Password string
	PlanID   int64
	FullName string
}

// PendingCheckout незавершённая регистрация и новая сессия оплаты для неё.
type PendingCheckout struct {
	Pending models.PendingPlan `json:"pending"`
	Session
}

// Service оформляет оплату тарифов.
type Service struct {
	repo    Repository
	gateway Gateway
	log     *slog.Logger
}

// NewService создаёт новый экземпляр Service.
func NewService(repo Repository, gateway Gateway, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		gateway: gateway,
		log:     log,
	}
}

// InitiateNewSignupCheckout открывает сессию оплаты для регистрации и сохраняет
// данные будущего аккаунта под идентификатором этой сессии.
func (s *Service) InitiateNewSignupCheckout(ctx context.Context, req NewSignupRequest) (*Session, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))

	_, exists, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check user: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("email %s: %w", email, services.ErrUserAlreadyExists)
	}

	plan, err := s.activePlan(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}

	hash, err := password.GetHash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	checkout, err := s.gateway.CreateCheckoutSession(ctx, paymentprovider.CheckoutRequest{
		Email:           email,
		PlanID:          plan.ID,
		PlanTitle:       plan.Title,
		PlanDescription: plan.Description,
		Price:           plan.Price,
		BillingCycle:    plan.BillingCycle,
		Metadata:        provisioning.NewSignupMetadata(email, plan.ID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		fullName = models.DefaultFullName(email)
	}
	if _, err := s.repo.CreatePendingSignup(ctx, models.PendingSignup{
		FullName:         fullName,
		Email:            email,
		PasswordHash:     hash,
		PlanID:           plan.ID,
		GatewaySessionID: checkout.ID,
	}); err != nil {
		return nil, fmt.Errorf("failed to save pending signup: %w", err)
	}

	s.log.Info("checkout session created", sl.SessionID(checkout.ID), slog.Int64("plan_id", plan.ID))
	return &Session{RedirectURL: checkout.URL, SessionID: checkout.ID}, nil
}

// InitiateExistingUserCheckout открывает сессию оплаты тарифа для вошедшего пользователя.
func (s *Service) InitiateExistingUserCheckout(ctx context.Context, userID, planID int64) (*Session, error) {
	plan, err := s.activePlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	user, found, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("user %d: %w", userID, services.ErrUserNotFound)
	}

	checkout, err := s.gateway.CreateCheckoutSession(ctx, paymentprovider.CheckoutRequest{
		Email:           user.Email,
		CustomerID:      user.GatewayCustomerID,
		PlanID:          plan.ID,
		PlanTitle:       plan.Title,
		PlanDescription: plan.Description,
		Price:           plan.Price,
		BillingCycle:    plan.BillingCycle,
		Metadata:        provisioning.ExistingUserMetadata(user.ID, plan.ID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	s.log.Info("checkout session created for existing user",
		sl.SessionID(checkout.ID), slog.Int64("user_id", user.ID), slog.Int64("plan_id", plan.ID))
	return &Session{RedirectURL: checkout.URL, SessionID: checkout.ID}, nil
}

// CancelCheckout удаляет незавершённую регистрацию отменённой сессии оплаты.
// Возвращает число удалённых записей, повторная отмена не ошибка.
func (s *Service) CancelCheckout(ctx context.Context, sessionID string) (int64, error) {
	if sessionID == "" {
		return 0, nil
	}
	n, err := s.repo.DeletePendingSignupBySessionID(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete pending signup: %w", err)
	}
	s.log.Info("checkout cancelled", sl.SessionID(sessionID), slog.Int64("deleted", n))
	return n, nil
}

// ContinuePendingPlan открывает новую сессию оплаты для незавершённой регистрации
// и привязывает регистрацию к ней. Доступ подтверждается паролем регистрации,
// неизвестный ID и неверный пароль дают одну и ту же ErrInvalidCredentials.
//
// Если аккаунт с почтой регистрации уже есть (тариф был отменён), сессия
// открывается на этого пользователя и его клиента в шлюзе: оплата добавит
// подписку существующему аккаунту.
func (s *Service) ContinuePendingPlan(ctx context.Context, pendingID int64, rawPassword string) (*PendingCheckout, error) {
	pending, found, err := s.repo.GetPendingSignupByID(ctx, pendingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending signup: %w", err)
	}
	if !found {
		return nil, services.ErrInvalidCredentials
	}
	if err := password.CompareHash(pending.PasswordHash, rawPassword); err != nil {
		if !errors.Is(err, password.ErrMismatch) {
			s.log.Error("failed to compare password hash", slog.Int64("pending_id", pendingID), sl.Err(err))
		}
		return nil, services.ErrInvalidCredentials
	}
	plan, err := s.activePlan(ctx, pending.PlanID)
	if err != nil {
		return nil, err
	}

	req := paymentprovider.CheckoutRequest{
		Email:           pending.Email,
		PlanID:          plan.ID,
		PlanTitle:       plan.Title,
		PlanDescription: plan.Description,
		Price:           plan.Price,
		BillingCycle:    plan.BillingCycle,
		Metadata:        provisioning.NewSignupMetadata(pending.Email, plan.ID),
	}
	user, exists, err := s.repo.GetUserByEmail(ctx, pending.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check user: %w", err)
	}
	if exists {
		req.CustomerID = user.GatewayCustomerID
		req.Metadata = provisioning.ExistingUserMetadata(user.ID, plan.ID)
	}

	checkout, err := s.gateway.CreateCheckoutSession(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	if err := s.repo.UpdatePendingSessionID(ctx, pending.ID, checkout.ID); err != nil {
		return nil, fmt.Errorf("failed to bind pending signup to session: %w", err)
	}

	s.log.Info("pending signup resumed",
		sl.SessionID(checkout.ID), slog.Int64("pending_id", pending.ID), slog.Bool("existing_user", exists))
	return &PendingCheckout{
		Pending: models.PendingPlan{
			PendingID: pending.ID,
			FullName:  pending.FullName,
			Email:     pending.Email,
			PlanID:    plan.ID,
			PlanTitle: plan.Title,
			PlanPrice: plan.Price,
		},
		Session: Session{RedirectURL: checkout.URL, SessionID: checkout.ID},
	}, nil
}

func (s *Service) activePlan(ctx context.Context, planID int64) (*models.Plan, error) {
	plan, found, err := s.repo.GetActivePlan(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("plan %d: %w", planID, services.ErrPlanNotFound)
	}
	return plan, nil
}
