// Package paymentprovider оборачивает вызовы платёжного шлюза Stripe:
// клиенты, сессии оплаты, подписки и проверку подписи вебхуков.
// Все сетевые ошибки и ошибки учётных данных приводятся к ErrGatewayUnavailable.
package paymentprovider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/serene987/vidora/internal/lib/sl"
	"github.com/serene987/vidora/internal/models"
)

const defaultTimeout = 10 * time.Second

// Client клиент платёжного шлюза.
type Client struct {
	api           *client.API
	webhookSecret string
	timeout       time.Duration
	currency      string
	successURL    string
	cancelURL     string
	log           *slog.Logger
}

// NewClient создаёт клиент Stripe. Каждый вызов ограничен cfg.Timeout.
func NewClient(cfg Config, log *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	currency := cfg.Currency
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(cfg.MaxNetworkRetries),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}
	if cfg.APIURL != "" {
		backendCfg.URL = stripe.String(cfg.APIURL)
	}
	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	}

	return &Client{
		api:           client.New(cfg.SecretKey, backends),
		webhookSecret: cfg.WebhookSecret,
		timeout:       timeout,
		currency:      strings.ToLower(currency),
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
		log:           log,
	}
}

// CreateCustomer создаёт клиента шлюза и возвращает его идентификатор.
func (c *Client) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	const op = "paymentprovider.CreateCustomer"
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	params.Context = ctx

	cust, err := c.api.Customers.New(params)
	if err != nil {
		return "", c.wrap(op, err)
	}
	return cust.ID, nil
}

// CreateCheckoutSession создаёт размещённую у шлюза страницу оплаты подписки на тариф.
func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	const op = "paymentprovider.CreateCheckoutSession"
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	description := req.PlanDescription
	if description == "" {
		description = fmt.Sprintf("%s - %s subscription", req.PlanTitle, req.BillingCycle)
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(c.currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(req.PlanTitle),
						Description: stripe.String(description),
					},
					UnitAmount: stripe.Int64(toMinorUnits(req.Price)),
					Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
						Interval: stripe.String(interval(req.BillingCycle)),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(c.successURL),
		CancelURL:  stripe.String(c.cancelURL),
	}
	if req.CustomerID != "" {
		params.Customer = stripe.String(req.CustomerID)
	} else {
		params.CustomerEmail = stripe.String(req.Email)
	}
	if len(req.Metadata) > 0 {
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{},
		}
		for k, v := range req.Metadata {
			params.AddMetadata(k, v)
			params.SubscriptionData.Metadata[k] = v
		}
	}
	params.Context = ctx

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, c.wrap(op, err)
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// RetrieveSession возвращает состояние сессии оплаты вместе с клиентом и подпиской.
func (c *Client) RetrieveSession(ctx context.Context, sessionID string) (*Session, error) {
	const op = "paymentprovider.RetrieveSession"
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := &stripe.CheckoutSessionParams{}
	params.AddExpand("subscription")
	params.AddExpand("customer")
	params.Context = ctx

	sess, err := c.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, c.wrap(op, err)
	}
	return sessionFromStripe(sess), nil
}

// CreateSubscription создаёт подписку в ожидании первой оплаты.
func (c *Client) CreateSubscription(ctx context.Context, customerID, priceID string) (*Subscription, error) {
	const op = "paymentprovider.CreateSubscription"
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceID)},
		},
		PaymentBehavior: stripe.String("default_incomplete"),
		PaymentSettings: &stripe.SubscriptionPaymentSettingsParams{
			SaveDefaultPaymentMethod: stripe.String("on_subscription"),
		},
	}
	params.AddExpand("latest_invoice.payment_intent")
	params.Context = ctx

	sub, err := c.api.Subscriptions.New(params)
	if err != nil {
		return nil, c.wrap(op, err)
	}

	res := &Subscription{ID: sub.ID, Status: string(sub.Status)}
	if sub.LatestInvoice != nil {
		res.LatestInvoiceID = sub.LatestInvoice.ID
		if sub.LatestInvoice.PaymentIntent != nil {
			res.ClientSecret = sub.LatestInvoice.PaymentIntent.ClientSecret
		}
	}
	return res, nil
}

// CancelSubscription отменяет подписку в шлюзе.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) error {
	const op = "paymentprovider.CancelSubscription"
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx

	if _, err := c.api.Subscriptions.Cancel(subscriptionID, params); err != nil {
		return c.wrap(op, err)
	}
	return nil
}

// wrap приводит ошибку SDK к ошибкам пакета.
func (c *Client) wrap(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode == http.StatusNotFound || stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return fmt.Errorf("%s: %w", op, ErrSessionNotFound)
		}
		c.log.Warn("gateway request failed",
			slog.String("op", op),
			slog.Int("status", stripeErr.HTTPStatusCode),
			slog.String("code", string(stripeErr.Code)),
			slog.String("type", string(stripeErr.Type)),
		)
	} else {
		c.log.Warn("gateway request failed", slog.String("op", op), sl.Err(err))
	}
	return fmt.Errorf("%s: %w: %v", op, ErrGatewayUnavailable, err)
}

func sessionFromStripe(sess *stripe.CheckoutSession) *Session {
	res := &Session{
		ID:            sess.ID,
		Status:        string(sess.Status),
		PaymentStatus: string(sess.PaymentStatus),
		CustomerEmail: sess.CustomerEmail,
		Metadata:      sess.Metadata,
	}
	if sess.Customer != nil {
		res.CustomerID = sess.Customer.ID
	}
	if sess.Subscription != nil {
		res.SubscriptionID = sess.Subscription.ID
	}
	if res.CustomerEmail == "" && sess.CustomerDetails != nil {
		res.CustomerEmail = sess.CustomerDetails.Email
	}
	if res.Metadata == nil {
		res.Metadata = map[string]string{}
	}
	return res
}

func toMinorUnits(price float64) int64 {
	return int64(math.Round(price * 100))
}

func interval(cycle string) string {
	if cycle == models.BillingYearly {
		return string(stripe.PriceRecurringIntervalYear)
	}
	return string(stripe.PriceRecurringIntervalMonth)
}
