// Package services содержит общие ошибки бизнес-уровня. Обработчики HTTP
// сопоставляют их с кодами ответа через errors.Is.
package services

import (
	"errors"

	"github.com/serene987/vidora/internal/paymentprovider"
)

// Ошибки «не найдено».
var (
	ErrPlanNotFound          = errors.New("plan not found")
	ErrUserNotFound          = errors.New("user not found")
	ErrPendingSignupNotFound = errors.New("pending signup not found")
	ErrSubscriptionNotFound  = errors.New("subscription not found")
	ErrNoActiveSubscription  = errors.New("no active subscription")
	ErrSessionNotFound       = paymentprovider.ErrSessionNotFound
)

// Остальные ошибки бизнес-логики.
var (
	// ErrGatewayUnavailable шлюз недоступен, запрос можно повторить.
	ErrGatewayUnavailable = paymentprovider.ErrGatewayUnavailable
	ErrUserAlreadyExists  = errors.New("user already exists")
	// ErrInvalidCredentials единая ошибка входа: неверная почта, пароль или блокировка.
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrUnauthenticated        = errors.New("session expired or revoked")
	ErrPaymentIncomplete      = errors.New("payment not completed")
	ErrInvalidCurrentPassword = errors.New("current password is incorrect")
	ErrGatewayPriceMissing    = errors.New("plan has no gateway price")
	ErrMissingCustomer        = errors.New("user has no gateway customer")
	// ErrInvalidToken ссылка из письма неизвестна, просрочена или уже использована.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// IsNotFound сообщает, относится ли ошибка к семейству «не найдено».
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPlanNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrPendingSignupNotFound) ||
		errors.Is(err, ErrSubscriptionNotFound) ||
		errors.Is(err, ErrNoActiveSubscription) ||
		errors.Is(err, ErrSessionNotFound)
}
