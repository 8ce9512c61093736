// Package auth содержит логику входа пользователей, блокировки после
// неудачных попыток и серверных сессий.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/serene987/vidora/internal/cache"
	"github.com/serene987/vidora/internal/lib/jwt"
	"github.com/serene987/vidora/internal/lib/password"
	"github.com/serene987/vidora/internal/lib/sl"
	"github.com/serene987/vidora/internal/metrics"
	"github.com/serene987/vidora/internal/models"
	"github.com/serene987/vidora/internal/services"
)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// GetUserByEmail возвращает пользователя по почте.
	GetUserByEmail(ctx context.Context, email string) (*models.User, bool, error)
	// GetUserByID возвращает пользователя по ID.
	GetUserByID(ctx context.Context, id int64) (*models.User, bool, error)
	// RecordFailedLogin увеличивает счётчик неудачных попыток и возвращает новое
	// значение. На maxAttempts вход блокируется до lockUntil.
	RecordFailedLogin(ctx context.Context, userID int64, maxAttempts int, lockUntil time.Time) (int, error)
	// ResetLoginFailures сбрасывает счётчик и блокировку после успешного входа.
	ResetLoginFailures(ctx context.Context, userID int64) error
	// GetLatestPendingSignupByEmail возвращает последнюю незавершённую регистрацию для почты.
	GetLatestPendingSignupByEmail(ctx context.Context, email string) (*models.PendingSignup, bool, error)
	// GetPlan возвращает тариф по ID.
	GetPlan(ctx context.Context, id int64) (*models.Plan, bool, error)
	// HasPaidSubscription сообщает, оплачивал ли пользователь подписку.
	HasPaidSubscription(ctx context.Context, userID int64) (bool, error)
}

// SessionStore хранилище серверных сессий.
type SessionStore interface {
	Create(ctx context.Context, principal models.Principal) (string, error)
	Get(ctx context.Context, id string) (*models.Principal, error)
	Refresh(ctx context.Context, id string, principal models.Principal) error
	Delete(ctx context.Context, id string) error
}

// LockoutPolicy параметры блокировки входа.
type LockoutPolicy struct {
	MaxAttempts int
	Window      time.Duration
}

// LoginResult итог входа: либо сессия, либо незавершённая регистрация.
type LoginResult struct {
	Token     string
	SessionID string
	Principal *models.Principal
	Pending   *models.PendingPlan
}

// IsPending сообщает, что почта принадлежит незавершённой регистрации.
func (r *LoginResult) IsPending() bool {
	return r.Pending != nil
}

// AuthService отвечает за вход, выход и проверку сессий.
type AuthService struct {
	users    UserRepository
	sessions SessionStore
	jwtMaker jwt.Maker
	lockout  LockoutPolicy
	log      *slog.Logger
	now      func() time.Time
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(users UserRepository, sessions SessionStore, jwtMaker jwt.Maker, lockout LockoutPolicy, log *slog.Logger) *AuthService {
	if lockout.MaxAttempts <= 0 {
		lockout.MaxAttempts = 5
	}
	if lockout.Window <= 0 {
		lockout.Window = time.Minute
	}
	return &AuthService{
		users:    users,
		sessions: sessions,
		jwtMaker: jwtMaker,
		lockout:  lockout,
		log:      log,
		now:      time.Now,
	}
}

// Login проверяет пароль и открывает сессию.
//
// Заблокированный пользователь получает ErrInvalidCredentials при любом пароле.
// Неверный пароль увеличивает счётчик попыток, на MaxAttempts вход блокируется
// на Window. Почта без аккаунта, но с незавершённой регистрацией и верным
// паролем, возвращает сводку тарифа для продолжения оплаты.
func (s *AuthService) Login(ctx context.Context, email, rawPassword string) (*LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	log := s.log.With(slog.String("email", email))

	user, found, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !found {
		return s.loginPending(ctx, email, rawPassword)
	}

	now := s.now()
	if user.IsLocked(now) {
		log.Info("login attempt for locked account")
		return nil, services.ErrInvalidCredentials
	}

	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		if !errors.Is(err, password.ErrMismatch) {
			log.Error("failed to compare password hash", sl.Err(err))
		}
		// Счётчик увеличивается в базе, параллельные неверные пароли учитываются все.
		attempts, err := s.users.RecordFailedLogin(ctx, user.ID, s.lockout.MaxAttempts, now.Add(s.lockout.Window))
		if err != nil {
			return nil, fmt.Errorf("failed to record failed login: %w", err)
		}
		if attempts >= s.lockout.MaxAttempts {
			metrics.LoginLockoutsTotal.Inc()
			log.Warn("account locked after failed logins", slog.Int("attempts", attempts))
		}
		return nil, services.ErrInvalidCredentials
	}

	if user.FailedAttempts > 0 || user.LockUntil != nil {
		if err := s.users.ResetLoginFailures(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("failed to reset login failures: %w", err)
		}
	}

	hasPaid, err := s.users.HasPaidSubscription(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check subscriptions: %w", err)
	}
	principal := models.Principal{
		UserID:   user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Role:     user.Role,
		HasPaid:  hasPaid,
		IssuedAt: now.UTC(),
	}

	sessionID, err := s.sessions.Create(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	token, err := s.jwtMaker.GenerateToken(sessionID, user.ID, user.Role)
	if err != nil {
		if delErr := s.sessions.Delete(ctx, sessionID); delErr != nil {
			log.Warn("failed to drop orphan session", sl.Err(delErr))
		}
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	log.Info("user logged in", slog.Int64("user_id", user.ID))
	return &LoginResult{Token: token, SessionID: sessionID, Principal: &principal}, nil
}

func (s *AuthService) loginPending(ctx context.Context, email, rawPassword string) (*LoginResult, error) {
	pending, found, err := s.users.GetLatestPendingSignupByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending signup: %w", err)
	}
	if !found {
		return nil, services.ErrInvalidCredentials
	}
	if err := password.CompareHash(pending.PasswordHash, rawPassword); err != nil {
		return nil, services.ErrInvalidCredentials
	}

	plan, found, err := s.users.GetPlan(ctx, pending.PlanID)
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("plan %d: %w", pending.PlanID, services.ErrPlanNotFound)
	}

	return &LoginResult{Pending: &models.PendingPlan{
		PendingID: pending.ID,
		FullName:  pending.FullName,
		Email:     pending.Email,
		PlanID:    plan.ID,
		PlanTitle: plan.Title,
		PlanPrice: plan.Price,
	}}, nil
}

// Authenticate проверяет токен и возвращает идентификатор и данные живой сессии.
func (s *AuthService) Authenticate(ctx context.Context, token string) (string, *models.Principal, error) {
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", services.ErrUnauthenticated, err)
	}
	principal, err := s.sessions.Get(ctx, claims.ID)
	if errors.Is(err, cache.ErrSessionNotFound) {
		return "", nil, services.ErrUnauthenticated
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to load session: %w", err)
	}
	if principal.UserID != claims.UserID {
		return "", nil, services.ErrUnauthenticated
	}
	return claims.ID, principal, nil
}

// RefreshSession перечитывает пользователя и признак оплаты и продлевает сессию.
func (s *AuthService) RefreshSession(ctx context.Context, sessionID string, userID int64) (*models.Principal, error) {
	user, found, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !found {
		if delErr := s.sessions.Delete(ctx, sessionID); delErr != nil {
			s.log.Warn("failed to drop session of deleted user", sl.Err(delErr))
		}
		return nil, services.ErrUnauthenticated
	}
	hasPaid, err := s.users.HasPaidSubscription(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check subscriptions: %w", err)
	}

	principal := models.Principal{
		UserID:   user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Role:     user.Role,
		HasPaid:  hasPaid,
		IssuedAt: s.now().UTC(),
	}
	err = s.sessions.Refresh(ctx, sessionID, principal)
	if errors.Is(err, cache.ErrSessionNotFound) {
		return nil, services.ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}
	return &principal, nil
}

// Logout удаляет сессию.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// TokenTTL время жизни токена сессии.
func (s *AuthService) TokenTTL() time.Duration {
	return s.jwtMaker.TTL()
}

// SetClock подменяет источник текущего времени.
func (s *AuthService) SetClock(now func() time.Time) {
	s.now = now
}
