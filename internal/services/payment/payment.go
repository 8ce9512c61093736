// Package payment разбирает вебхуки платёжного шлюза и передаёт события
// в подтверждение оплаты или в обновление статуса подписки.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/serene987/vidora/internal/lib/sl"
	"github.com/serene987/vidora/internal/metrics"
	"github.com/serene987/vidora/internal/paymentprovider"
	"github.com/serene987/vidora/internal/services"
	"github.com/serene987/vidora/internal/services/provisioning"
)

// Итог обработки события вебхука.
const (
	ResultProcessed = "processed"
	ResultIgnored   = "ignored"
	ResultRejected  = "rejected"
)

// WebhookParser проверяет подпись и разбирает событие.
type WebhookParser interface {
	ParseWebhook(payload []byte, signature string) (*paymentprovider.Event, error)
}

// PaymentConfirmer подтверждает оплату сессии.
type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, sessionID, source string) (*provisioning.Result, error)
}

// InvoiceApplier применяет события счетов к подпискам.
type InvoiceApplier interface {
	ApplyInvoice(ctx context.Context, eventType string, invoice *paymentprovider.Invoice) (int64, error)
}

// WebhookResult ответ на событие вебхука.
type WebhookResult struct {
	EventID      string               `json:"event_id"`
	Type         string               `json:"type"`
	Result       string               `json:"result"`
	Reason       string               `json:"reason,omitempty"`
	Provisioning *provisioning.Result `json:"provisioning,omitempty"`
}

// PaymentService обрабатывает вебхуки шлюза.
type PaymentService struct {
	parser   WebhookParser
	confirm  PaymentConfirmer
	invoices InvoiceApplier
	log      *slog.Logger
}

// New создаёт новый экземпляр PaymentService.
func New(parser WebhookParser, confirm PaymentConfirmer, invoices InvoiceApplier, log *slog.Logger) *PaymentService {
	return &PaymentService{
		parser:   parser,
		confirm:  confirm,
		invoices: invoices,
		log:      log,
	}
}

// HandleWebhook проверяет подпись и обрабатывает событие.
//
// Ошибка подписи возвращается как paymentprovider.ErrInvalidSignature.
// Исходы, которые повтор не исправит (сессия не найдена, не оплачена, кривые
// метаданные), подтверждаются с ResultRejected без ошибки. Ошибка возвращается
// только когда повторная доставка события может помочь.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	event, err := s.parser.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, paymentprovider.ErrInvalidSignature) {
			metrics.WebhookEventsTotal.WithLabelValues("unknown", "invalid_signature").Inc()
		}
		return nil, err
	}

	log := s.log.With(slog.String("event_id", event.ID), slog.String("type", event.Type))
	res := &WebhookResult{EventID: event.ID, Type: event.Type}

	switch event.Type {
	case paymentprovider.EventCheckoutSessionCompleted:
		err = s.handleSessionCompleted(ctx, log, event, res)
	case paymentprovider.EventInvoicePaymentSucceeded, paymentprovider.EventInvoicePaymentFailed:
		err = s.handleInvoice(ctx, log, event, res)
	default:
		res.Result = ResultIgnored
		log.Debug("webhook event ignored")
	}
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues(event.Type, "failed").Inc()
		return nil, err
	}
	metrics.WebhookEventsTotal.WithLabelValues(event.Type, res.Result).Inc()
	return res, nil
}

func (s *PaymentService) handleSessionCompleted(ctx context.Context, log *slog.Logger, event *paymentprovider.Event, res *WebhookResult) error {
	if event.Session == nil || event.Session.ID == "" {
		res.Result = ResultRejected
		res.Reason = "event has no session"
		log.Warn("checkout event without session")
		return nil
	}

	pr, err := s.confirm.ConfirmPayment(ctx, event.Session.ID, metrics.SourceWebhook)
	if err != nil {
		if isPermanent(err) {
			res.Result = ResultRejected
			res.Reason = err.Error()
			log.Warn("checkout event rejected", sl.Err(err))
			return nil
		}
		log.Error("failed to confirm payment", sl.Err(err))
		return fmt.Errorf("failed to confirm payment: %w", err)
	}

	res.Result = ResultProcessed
	res.Provisioning = pr
	log.Info("checkout event processed", slog.String("outcome", string(pr.Outcome)))
	return nil
}

func (s *PaymentService) handleInvoice(ctx context.Context, log *slog.Logger, event *paymentprovider.Event, res *WebhookResult) error {
	n, err := s.invoices.ApplyInvoice(ctx, event.Type, event.Invoice)
	if err != nil {
		return fmt.Errorf("failed to apply invoice: %w", err)
	}
	if n == 0 {
		res.Result = ResultIgnored
		return nil
	}
	res.Result = ResultProcessed
	log.Info("invoice event processed", slog.Int64("updated", n))
	return nil
}

func isPermanent(err error) bool {
	return services.IsNotFound(err) ||
		errors.Is(err, services.ErrPaymentIncomplete) ||
		errors.Is(err, services.ErrUserAlreadyExists) ||
		errors.Is(err, provisioning.ErrInvalidMetadata)
}
