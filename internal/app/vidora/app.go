// Package vidora собирает HTTP-приложение: хранилище, кэш, шлюз оплаты,
// брокер событий, сервисы и маршруты.
package vidora

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/serene987/vidora/internal/cache"
	"github.com/serene987/vidora/internal/config"
	"github.com/serene987/vidora/internal/lib/jwt"
	"github.com/serene987/vidora/internal/lib/sl"
	"github.com/serene987/vidora/internal/migrations"
	"github.com/serene987/vidora/internal/paymentprovider"
	"github.com/serene987/vidora/internal/rabbitmq"
	"github.com/serene987/vidora/internal/services/account"
	authservice "github.com/serene987/vidora/internal/services/auth"
	"github.com/serene987/vidora/internal/services/checkout"
	"github.com/serene987/vidora/internal/services/payment"
	"github.com/serene987/vidora/internal/services/plans"
	"github.com/serene987/vidora/internal/services/provisioning"
	"github.com/serene987/vidora/internal/services/registration"
	"github.com/serene987/vidora/internal/services/subscription"
	"github.com/serene987/vidora/internal/storage/repository"
)

// App HTTP-приложение и ресурсы, которые нужно закрыть при остановке.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New подключает зависимости, применяет миграции и собирает роутер.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.DB.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.DB.Close()
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay, logger)
	if err != nil {
		_ = cacheRedis.Close()
		_ = db.DB.Close()
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		_ = cacheRedis.Close()
		_ = db.DB.Close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}
	publisher := rabbitmq.NewPublisher(ch)

	gateway := paymentprovider.NewClient(paymentprovider.Config{
		SecretKey:         cfg.Stripe.SecretKey,
		WebhookSecret:     cfg.Stripe.WebhookSecret,
		APIURL:            cfg.Stripe.APIURL,
		Timeout:           cfg.Stripe.Timeout,
		MaxNetworkRetries: cfg.Stripe.MaxNetworkRetries,
		Currency:          cfg.Stripe.Currency,
		SuccessURL:        cfg.Stripe.SuccessURL,
		CancelURL:         cfg.Stripe.CancelURL,
	}, logger)

	sessions := cache.NewSessionStore(cacheRedis, cfg.Session.TokenTTL)
	jwtMaker := jwt.NewJWTMaker(cfg.Session.JWTSecretKey, cfg.Session.TokenTTL)

	provisioningService := provisioning.NewService(db, gateway, publisher, logger)
	subscriptionService := subscription.NewSubscriptionService(db, gateway, logger)

	services := Services{
		Auth: authservice.NewAuthService(db, sessions, jwtMaker, authservice.LockoutPolicy{
			MaxAttempts: cfg.Lockout.MaxAttempts,
			Window:      cfg.Lockout.Window,
		}, logger),
		Checkout:      checkout.NewService(db, gateway, logger),
		Provisioning:  provisioningService,
		Payment:       payment.New(gateway, provisioningService, subscriptionService, logger),
		Registration:  registration.NewService(db, publisher, cfg.Session.VerificationTTL, logger),
		Account:       account.NewService(db, gateway, publisher, logger),
		Plans:         plans.NewService(db, cacheRedis, cfg.RedisConnection.PlansTTL, logger),
		Subscriptions: subscriptionService,
		DB:            db,
		Cache:         cacheRedis,
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg, services)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его по отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close cache", sl.Err(err))
	}
	if err := a.db.DB.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
}
