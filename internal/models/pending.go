package models

import (
	"strings"
	"time"
)

// PendingSignup незавершённая регистрация: данные аккаунта до подтверждения оплаты.
type PendingSignup struct {
	ID               int64
	FullName         string
	Email            string
	PasswordHash     string
	PlanID           int64
	GatewaySessionID string // пустой у записей, созданных отменой тарифа
	CreatedAt        time.Time
}

// PendingPlan сводка по незавершённой регистрации для возобновления оплаты.
type PendingPlan struct {
	PendingID int64   `json:"pending_id"`
	FullName  string  `json:"full_name"`
	Email     string  `json:"email"`
	PlanID    int64   `json:"plan_id"`
	PlanTitle string  `json:"plan_title"`
	PlanPrice float64 `json:"plan_price"`
}

// DefaultFullName имя по умолчанию: локальная часть адреса почты.
func DefaultFullName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
