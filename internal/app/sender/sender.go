// Package sender собирает воркер, отправляющий письма по событиям из очередей.
package sender

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/serene987/vidora/internal/config"
	"github.com/serene987/vidora/internal/lib/sl"
	"github.com/serene987/vidora/internal/lib/smtp"
	"github.com/serene987/vidora/internal/rabbitmq"
	senderservice "github.com/serene987/vidora/internal/services/sender"
)

// App представляет приложение отправки уведомлений.
type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.SenderService
	logger        *slog.Logger
}

// New подключается к брокеру и готовит SMTP-транспорт.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	transport := smtp.NewTransport(cfg.SMTP, logger)
	senderService := senderservice.NewSenderService(transport, cfg.FrontendURL, logger)

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderService,
		logger:        logger,
	}, nil
}

// Run подписывается на очереди уведомлений и блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	handlers := map[string]func([]byte) error{
		"notifications.welcome":      a.senderService.SendWelcome,
		"notifications.cancelled":    a.senderService.SendPlanCancelled,
		"notifications.abandoned":    a.senderService.SendCheckoutAbandoned,
		"notifications.verification": a.senderService.SendVerification,
	}
	for queue, handler := range handlers {
		if err := rabbitmq.ConsumerMessage(ctx, a.ch, queue, handler, a.logger); err != nil {
			a.logger.Error("failed to start consumer", slog.String("queue", queue), sl.Err(err))
			a.close()
			return err
		}
	}

	<-ctx.Done()
	a.logger.Info("sender service shutting down gracefully")
	a.close()
	return nil
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
}
