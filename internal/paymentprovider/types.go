package paymentprovider

import (
	"errors"
	"time"
)

// Ошибки платёжного шлюза.
var (
	// ErrGatewayUnavailable шлюз недоступен, превышен таймаут или отклонены учётные данные. Повтор безопасен.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrSessionNotFound шлюз не знает такую сессию оплаты.
	ErrSessionNotFound = errors.New("checkout session not found")
	// ErrInvalidSignature подпись вебхука не прошла проверку.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Статус оплаты сессии, при котором подписка считается оплаченной.
const PaymentStatusPaid = "paid"

// Типы событий вебхука, которые обрабатывает сервис.
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventInvoicePaymentSucceeded  = "invoice.payment_succeeded"
	EventInvoicePaymentFailed     = "invoice.payment_failed"
)

// Config параметры подключения к шлюзу.
type Config struct {
	SecretKey         string
	WebhookSecret     string
	APIURL            string // пустой для боевого API
	Timeout           time.Duration
	MaxNetworkRetries int64
	Currency          string
	SuccessURL        string
	CancelURL         string
}

// CheckoutRequest запрос на создание сессии оплаты тарифа.
type CheckoutRequest struct {
	Email           string
	CustomerID      string // если задан, сессия привязывается к существующему клиенту
	PlanID          int64
	PlanTitle       string
	PlanDescription string
	Price           float64
	BillingCycle    string
	Metadata        map[string]string
}

// CheckoutSession созданная сессия оплаты.
type CheckoutSession struct {
	ID  string
	URL string
}

// Session состояние сессии оплаты на стороне шлюза.
type Session struct {
	ID             string
	Status         string
	PaymentStatus  string
	CustomerID     string
	CustomerEmail  string
	SubscriptionID string
	Metadata       map[string]string
}

// Paid сообщает, оплачена ли сессия полностью.
func (s *Session) Paid() bool {
	return s.PaymentStatus == PaymentStatusPaid
}

// Subscription подписка, созданная в шлюзе напрямую.
type Subscription struct {
	ID              string
	Status          string
	LatestInvoiceID string
	ClientSecret    string
}

// Invoice счёт, пришедший в событии вебхука.
type Invoice struct {
	ID             string
	SubscriptionID string
	CustomerID     string
}

// Event проверенное событие вебхука. Session или Invoice заполнены
// в зависимости от типа события.
type Event struct {
	ID      string
	Type    string
	Session *Session
	Invoice *Invoice
}
