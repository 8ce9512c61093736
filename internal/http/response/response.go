// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков. Пакет упрощает возврат
// успешных ответов, ошибок и сообщений валидации в едином формате.
package response

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/serene987/vidora/internal/lib/sl"
	"github.com/serene987/vidora/internal/services"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
// Поле Status: статус запроса ("OK" или "Error").
// Поле Error: текст ошибки (опционально, при неуспехе).
// Поле Data: данные ответа (опционально, при успехе).
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse структура ошибки для Swagger-документации.
// Используется в аннотациях @Failure как возвращаемый тип ошибки.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"invalid request body"`
}

const (
	// StatusOK значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// OKWithData возвращает успешный Response с переданными данными.
func OKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает Response с ошибкой и переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

// ValidationError формирует Response со статусом Error на основе ошибок валидации.
// Каждое нарушение формируется в человеко‑читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) Response {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email", err.Field()))
		case "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at least %s characters", err.Field(), err.Param()))
		case "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at most %s characters", err.Field(), err.Param()))
		case "gt":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be greater than %s", err.Field(), err.Param()))
		case "nefield":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must differ from %s", err.Field(), err.Param()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return Response{
		Status: StatusError,
		Error:  strings.Join(errsMsgs, ", "),
	}
}

// StatusFor сопоставляет ошибку бизнес-логики с HTTP-статусом и текстом ответа.
// Неизвестные ошибки дают 500 без подробностей.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid email or password"
	case errors.Is(err, services.ErrUnauthenticated):
		return http.StatusUnauthorized, "session expired or revoked"
	case errors.Is(err, services.ErrInvalidCurrentPassword):
		return http.StatusBadRequest, "Current password is incorrect"
	case errors.Is(err, services.ErrInvalidToken):
		return http.StatusBadRequest, "invalid or expired token"
	case errors.Is(err, services.ErrUserAlreadyExists):
		return http.StatusConflict, "user with this email already exists"
	case errors.Is(err, services.ErrPaymentIncomplete):
		return http.StatusPaymentRequired, "payment not completed"
	case errors.Is(err, services.ErrGatewayUnavailable):
		return http.StatusServiceUnavailable, "payment provider unavailable, try again later"
	case errors.Is(err, services.ErrGatewayPriceMissing):
		return http.StatusUnprocessableEntity, "plan cannot be purchased directly"
	case errors.Is(err, services.ErrNoActiveSubscription):
		return http.StatusNotFound, "no active subscription found"
	case services.IsNotFound(err):
		return http.StatusNotFound, notFoundMessage(err)
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrPlanNotFound):
		return "plan not found"
	case errors.Is(err, services.ErrUserNotFound):
		return "user not found"
	case errors.Is(err, services.ErrPendingSignupNotFound):
		return "pending signup not found"
	case errors.Is(err, services.ErrSubscriptionNotFound):
		return "subscription not found"
	default:
		return "checkout session not found"
	}
}

// ServiceError пишет ответ для ошибки сервиса. Ошибки 5xx логируются как Error,
// остальные как Info.
func ServiceError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status, msg := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", slog.Int("status", status), sl.Err(err))
	} else {
		log.Info("request rejected", slog.Int("status", status), sl.Err(err))
	}
	render.Status(r, status)
	render.JSON(w, r, Error(msg))
}
