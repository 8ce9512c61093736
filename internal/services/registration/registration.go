// Package registration создаёт бесплатные аккаунты и подтверждает почту по
// ссылке из письма. Вход не требует подтверждённой почты.
package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/serene987/vidora/internal/lib/password"
	"github.com/serene987/vidora/internal/lib/sl"
	"github.com/serene987/vidora/internal/lib/token"
	"github.com/serene987/vidora/internal/models"
	"github.com/serene987/vidora/internal/rabbitmq"
	"github.com/serene987/vidora/internal/services"
	"github.com/serene987/vidora/internal/storage"
)

// DefaultTokenTTL срок жизни ссылки подтверждения.
const DefaultTokenTTL = 24 * time.Hour

// Repository хранилище регистрации.
type Repository interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, bool, error)
	CreateUser(ctx context.Context, user models.User) (int64, error)
	CreateToken(ctx context.Context, userID int64, tokenHash, tokenType string, expiresAt time.Time) error
	ConsumeToken(ctx context.Context, tokenHash, tokenType string, now time.Time) (int64, bool, error)
	MarkEmailVerified(ctx context.Context, userID int64) error
}

// Publisher публикует события для воркера уведомлений.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// Request данные регистрации.
type Request struct {
	Email    string
	Password string
	FullName string
}

// Service регистрация и подтверждение почты.
type Service struct {
	repo      Repository
	publisher Publisher
	tokenTTL  time.Duration
	log       *slog.Logger
	now       func() time.Time
	newToken  func() (string, string, error)
}

// NewService создаёт новый экземпляр Service. Нулевой tokenTTL заменяется на DefaultTokenTTL.
func NewService(repo Repository, publisher Publisher, tokenTTL time.Duration, log *slog.Logger) *Service {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &Service{
		repo:      repo,
		publisher: publisher,
		tokenTTL:  tokenTTL,
		log:       log,
		now:       time.Now,
		newToken:  token.New,
	}
}

// Register создаёт пользователя без подписки с неподтверждённой почтой и
// отправляет письмо со ссылкой подтверждения.
func (s *Service) Register(ctx context.Context, req Request) (*models.Profile, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))

	_, exists, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check user: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("email %s: %w", email, services.ErrUserAlreadyExists)
	}

	hash, err := password.GetHash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	raw, tokenHash, err := s.newToken()
	if err != nil {
		return nil, err
	}

	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		fullName = models.DefaultFullName(email)
	}
	now := s.now().UTC()
	user := models.User{
		FullName:     fullName,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
		CreatedAt:    now,
	}
	expiresAt := now.Add(s.tokenTTL)

	err = s.repo.WithinTx(ctx, func(ctx context.Context) error {
		id, err := s.repo.CreateUser(ctx, user)
		if err != nil {
			return err
		}
		user.ID = id
		return s.repo.CreateToken(ctx, id, tokenHash, models.TokenTypeEmailVerification, expiresAt)
	})
	if errors.Is(err, storage.ErrDuplicate) {
		// Почту заняли между проверкой и вставкой.
		return nil, fmt.Errorf("email %s: %w", email, services.ErrUserAlreadyExists)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	log := s.log.With(slog.Int64("user_id", user.ID))
	log.Info("user registered")

	event := models.VerificationRequested{
		UserID:    user.ID,
		Email:     email,
		FullName:  fullName,
		Token:     raw,
		ExpiresAt: expiresAt,
	}
	if err := s.publisher.Publish(ctx, rabbitmq.RoutingVerification, event); err != nil {
		log.Warn("failed to publish verification event", sl.Err(err))
	}

	profile := user.ToProfile()
	return &profile, nil
}

// VerifyEmail погашает токен из письма и подтверждает почту его владельца.
// Неизвестный, просроченный или уже использованный токен даёт services.ErrInvalidToken.
func (s *Service) VerifyEmail(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return services.ErrInvalidToken
	}

	var userID int64
	err := s.repo.WithinTx(ctx, func(ctx context.Context) error {
		id, found, err := s.repo.ConsumeToken(ctx, token.Hash(rawToken), models.TokenTypeEmailVerification, s.now().UTC())
		if err != nil {
			return err
		}
		if !found {
			return services.ErrInvalidToken
		}
		userID = id
		return s.repo.MarkEmailVerified(ctx, id)
	})
	if errors.Is(err, services.ErrInvalidToken) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to verify email: %w", err)
	}

	s.log.Info("email verified", slog.Int64("user_id", userID))
	return nil
}
