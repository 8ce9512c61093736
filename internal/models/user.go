// Package models содержит доменные структуры сервиса: пользователей,
// незавершённые регистрации, тарифы, подписки и события уведомлений.
// Структуры используются в бизнес‑логике и при работе с хранилищем.
package models

import "time"

// RoleUser роль, которая выдаётся при создании аккаунта.
const RoleUser = "user"

// TokenTypeEmailVerification тип токена из письма подтверждения почты.
const TokenTypeEmailVerification = "email_verification"

// User представляет зарегистрированного пользователя системы.
type User struct {
	ID                int64      // Уникальный идентификатор пользователя
	FullName          string     // Полное имя
	Email             string     // Электронная почта (уникальная)
	PasswordHash      string     // Хэш пароля пользователя
	EmailVerified     bool       // Почта подтверждена
	Role              string     // Роль пользователя, admin или user
	GatewayCustomerID string     // Идентификатор клиента в платёжном шлюзе, пустой если не создан
	FailedAttempts    int        // Количество неудачных попыток входа подряд
	LockUntil         *time.Time // Время окончания блокировки входа
	CreatedAt         time.Time
}

// IsLocked сообщает, заблокирован ли вход на момент now.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}

// Profile публичное представление пользователя без секретов.
type Profile struct {
	ID                int64     `json:"id"`
	FullName          string    `json:"full_name"`
	Email             string    `json:"email"`
	EmailVerified     bool      `json:"email_verified"`
	Role              string    `json:"role"`
	GatewayCustomerID string    `json:"gateway_customer_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// ToProfile переводит пользователя в публичное представление.
func (u *User) ToProfile() Profile {
	return Profile{
		ID:                u.ID,
		FullName:          u.FullName,
		Email:             u.Email,
		EmailVerified:     u.EmailVerified,
		Role:              u.Role,
		GatewayCustomerID: u.GatewayCustomerID,
		CreatedAt:         u.CreatedAt,
	}
}
