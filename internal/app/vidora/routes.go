package vidora

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	// swagger спецификация
	_ "github.com/serene987/vidora/docs"

	"github.com/serene987/vidora/internal/cache"
	"github.com/serene987/vidora/internal/config"
	"github.com/serene987/vidora/internal/http/cookie"
	"github.com/serene987/vidora/internal/http/handlers/auth/continuepending"
	"github.com/serene987/vidora/internal/http/handlers/auth/login"
	"github.com/serene987/vidora/internal/http/handlers/auth/logout"
	"github.com/serene987/vidora/internal/http/handlers/auth/register"
	authsession "github.com/serene987/vidora/internal/http/handlers/auth/session"
	"github.com/serene987/vidora/internal/http/handlers/auth/verifyemail"
	checkoutcancel "github.com/serene987/vidora/internal/http/handlers/checkout/cancel"
	"github.com/serene987/vidora/internal/http/handlers/checkout/existing"
	checkoutsession "github.com/serene987/vidora/internal/http/handlers/checkout/session"
	"github.com/serene987/vidora/internal/http/handlers/checkout/success"
	"github.com/serene987/vidora/internal/http/handlers/health"
	"github.com/serene987/vidora/internal/http/handlers/payment/webhook"
	planslist "github.com/serene987/vidora/internal/http/handlers/plans/list"
	plansread "github.com/serene987/vidora/internal/http/handlers/plans/read"
	subcancel "github.com/serene987/vidora/internal/http/handlers/subscription/cancel"
	subcreate "github.com/serene987/vidora/internal/http/handlers/subscription/create"
	sublist "github.com/serene987/vidora/internal/http/handlers/subscription/list"
	"github.com/serene987/vidora/internal/http/handlers/user/cancelplan"
	"github.com/serene987/vidora/internal/http/handlers/user/dashboard"
	"github.com/serene987/vidora/internal/http/handlers/user/me"
	"github.com/serene987/vidora/internal/http/handlers/user/password"
	"github.com/serene987/vidora/internal/http/middlewarectx"
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

// Services сервисы, которые обслуживают маршруты.
type Services struct {
	Auth          *authservice.AuthService
	Checkout      *checkout.Service
	Provisioning  *provisioning.Service
	Payment       *payment.PaymentService
	Registration  *registration.Service
	Account       *account.Service
	Plans         *plans.Service
	Subscriptions *subscription.SubscriptionService
	DB            *repository.Storage
	Cache         *cache.Cache
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config, s Services) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	cookieOpts := cookie.Options{
		Name:   cfg.Session.CookieName,
		Secure: cfg.Session.CookieSecure,
	}
	limiter := middlewarectx.NewIPRateLimiter(cfg.RateLimit, cfg.RateLimitBurst)

	r.Get("/health", health.New(logger, map[string]health.Pinger{
		"postgres": s.DB,
		"redis":    s.Cache,
	}).ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		// Подбор пароля и массовые регистрации ограничены по IP
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(limiter, logger))
			r.Post("/auth/login", login.New(logger, s.Auth, cookieOpts).ServeHTTP)
			r.Post("/auth/register", register.New(logger, s.Registration).ServeHTTP)
		})

		// Вебхук приходит с адресов шлюза пачками и проверяется подписью,
		// лимит по IP отбрасывал бы оплаченные события.
		r.Post("/webhooks/stripe", webhook.New(logger, s.Payment).ServeHTTP)

		// Открытые конечные точки
		r.Get("/auth/verify-email", verifyemail.New(logger, s.Registration).ServeHTTP)
		r.Post("/checkout/session", checkoutsession.New(logger, s.Checkout).ServeHTTP)
		r.Get("/checkout/success", success.New(logger, s.Provisioning).ServeHTTP)
		r.Post("/checkout/cancel", checkoutcancel.New(logger, s.Checkout).ServeHTTP)
		r.Post("/auth/continue-pending", continuepending.New(logger, s.Checkout).ServeHTTP)
		r.Get("/plans", planslist.New(logger, s.Plans).ServeHTTP)
		r.Get("/plans/{id}", plansread.New(logger, s.Plans).ServeHTTP)

		// Группа с сессией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.SessionMiddleware(s.Auth, cfg.Session.CookieName, logger))
			r.Post("/checkout/existing-user", existing.New(logger, s.Checkout).ServeHTTP)
			r.Post("/auth/logout", logout.New(logger, s.Auth, cookieOpts).ServeHTTP)
			r.Get("/auth/session", authsession.NewCheck(logger).ServeHTTP)
			r.Post("/auth/session/refresh", authsession.NewRefresh(logger, s.Auth).ServeHTTP)
			r.Get("/user/dashboard", dashboard.New(logger, s.Account).ServeHTTP)
			r.Put("/user/password", password.New(logger, s.Account).ServeHTTP)
			r.Post("/user/subscriptions/cancel", cancelplan.New(logger, s.Account).ServeHTTP)
			r.Get("/users/me", me.NewGet(logger, s.Account).ServeHTTP)
			r.Delete("/users/me", me.NewDelete(logger, s.Account, s.Auth, cookieOpts).ServeHTTP)
			r.Post("/subscriptions", subcreate.New(logger, s.Subscriptions).ServeHTTP)
			r.Get("/subscriptions", sublist.New(logger, s.Subscriptions).ServeHTTP)
			r.Post("/subscriptions/{id}/cancel", subcancel.New(logger, s.Subscriptions).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
