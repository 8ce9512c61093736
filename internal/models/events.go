package models

import "time"

// AccountProvisioned сообщение о созданной по оплате подписке.
type AccountProvisioned struct {
	UserID         int64     `json:"user_id"`
	Email          string    `json:"email"`
	FullName       string    `json:"full_name"`
	PlanID         int64     `json:"plan_id"`
	SubscriptionID int64     `json:"subscription_id"`
	NewAccount     bool      `json:"new_account"`
	ProvisionedAt  time.Time `json:"provisioned_at"`
}

// PlanCancelled сообщение об отмене тарифа пользователем.
type PlanCancelled struct {
	UserID         int64     `json:"user_id"`
	Email          string    `json:"email"`
	FullName       string    `json:"full_name"`
	PlanID         int64     `json:"plan_id"`
	SubscriptionID int64     `json:"subscription_id"`
	CancelledAt    time.Time `json:"cancelled_at"`
}

// CheckoutAbandoned сообщение об удалённой просроченной регистрации.
type CheckoutAbandoned struct {
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	PlanID    int64     `json:"plan_id"`
	CreatedAt time.Time `json:"created_at"`
}

// VerificationRequested сообщение для письма подтверждения почты.
// Token исходный токен из ссылки, в базе хранится только его хэш.
type VerificationRequested struct {
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
