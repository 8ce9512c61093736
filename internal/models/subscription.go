package models

import "time"

// Статусы подписки.
const (
	StatusTrialing  = "trialing"
	StatusActive    = "active"
	StatusCancelled = "cancelled"
)

// Subscription подписка пользователя на тариф.
type Subscription struct {
	ID                    int64      `json:"id"`
	UserID                int64      `json:"user_id"`
	PlanID                int64      `json:"plan_id"`
	Status                string     `json:"status"`
	GatewaySubscriptionID string     `json:"gateway_subscription_id"`
	StartDate             time.Time  `json:"start_date"`
	EndDate               *time.Time `json:"end_date,omitempty"`
	NextBillingDate       *time.Time `json:"next_billing_date,omitempty"`
	// Degraded в GatewaySubscriptionID сохранён идентификатор сессии оплаты,
	// подписки в шлюзе за ним нет.
	Degraded bool `json:"degraded,omitempty"`
}

// HasGatewaySubscription сообщает, можно ли отменить подписку в шлюзе.
func (s *Subscription) HasGatewaySubscription() bool {
	return s.GatewaySubscriptionID != "" && !s.Degraded
}

// SubscriptionWithPlan подписка вместе с данными тарифа.
type SubscriptionWithPlan struct {
	Subscription
	Plan Plan `json:"plan"`
}

// Dashboard данные личного кабинета.
type Dashboard struct {
	User         Profile               `json:"user"`
	Subscription *SubscriptionWithPlan `json:"subscription"`
}
