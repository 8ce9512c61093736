// Package sender отправляет письма по событиям из очередей уведомлений.
package sender

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/serene987/vidora/internal/lib/sl"
	"github.com/serene987/vidora/internal/lib/smtp"
	"github.com/serene987/vidora/internal/models"
)

// SenderService формирует и отправляет письма.
type SenderService struct {
	dialer      smtp.Dialer
	frontendURL string
	log         *slog.Logger
	now         func() time.Time
}

// NewSenderService создает новый экземпляр SenderService. frontendURL
// подставляется в ссылки писем.
func NewSenderService(dialer smtp.Dialer, frontendURL string, log *slog.Logger) *SenderService {
	return &SenderService{
		dialer:      dialer,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		log:         log,
		now:         time.Now,
	}
}

// SendWelcome письмо о созданном по оплате аккаунте или подписке.
func (s *SenderService) SendWelcome(body []byte) error {
	var message models.AccountProvisioned
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	subject := "Добро пожаловать в Vidora"
	bodyText := fmt.Sprintf("Здравствуйте, %s!\n\nОплата прошла успешно, подписка активна.\n\nВойти в личный кабинет: %s/login",
		displayName(message.FullName, message.Email), s.frontendURL)
	if !message.NewAccount {
		subject = "Подписка Vidora оформлена"
		bodyText = fmt.Sprintf("Здравствуйте, %s!\n\nОплата прошла успешно, новая подписка уже в личном кабинете: %s/dashboard",
			displayName(message.FullName, message.Email), s.frontendURL)
	}
	return s.sendEmail([]string{message.Email}, subject, bodyText)
}

// SendPlanCancelled письмо об отмене тарифа.
func (s *SenderService) SendPlanCancelled(body []byte) error {
	var message models.PlanCancelled
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	subject := "Подписка Vidora отменена"
	bodyText := fmt.Sprintf("Здравствуйте, %s!\n\nВаша подписка отменена %s.\n\nВернуться можно в любой момент: войдите на %s/login и оплатите тариф заново.",
		displayName(message.FullName, message.Email), message.CancelledAt.Format("02.01.2006"), s.frontendURL)
	return s.sendEmail([]string{message.Email}, subject, bodyText)
}

// SendCheckoutAbandoned письмо о незавершённой оплате, регистрация по которой удалена.
func (s *SenderService) SendCheckoutAbandoned(body []byte) error {
	var message models.CheckoutAbandoned
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	subject := "Вы не завершили оформление подписки Vidora"
	bodyText := fmt.Sprintf("Здравствуйте, %s!\n\nОплата так и не была завершена, поэтому заявка на регистрацию удалена.\n\nОформить подписку снова: %s/plans",
		displayName(message.FullName, message.Email), s.frontendURL)
	return s.sendEmail([]string{message.Email}, subject, bodyText)
}

// SendVerification письмо со ссылкой подтверждения почты.
func (s *SenderService) SendVerification(body []byte) error {
	var message models.VerificationRequested
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	link := s.frontendURL + "/verify-email?token=" + url.QueryEscape(message.Token)
	subject := "Подтвердите почту Vidora"
	bodyText := fmt.Sprintf("Здравствуйте, %s!\n\nЧтобы подтвердить адрес, перейдите по ссылке: %s\n\nСсылка действует до %s.",
		displayName(message.FullName, message.Email), link, message.ExpiresAt.UTC().Format("02.01.2006 15:04 UTC"))
	return s.sendEmail([]string{message.Email}, subject, bodyText)
}

func displayName(fullName, email string) string {
	if fullName != "" {
		return fullName
	}
	return models.DefaultFullName(email)
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	msg := smtp.Message{
		To:      to,
		Subject: subject,
		Body:    bodyText,
		Date:    s.now(),
	}
	if err := smtp.Deliver(s.dialer, msg, s.log); err != nil {
		s.log.Error("failed to send email", slog.Any("to", to), sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", slog.Any("to", to))
	return nil
}
