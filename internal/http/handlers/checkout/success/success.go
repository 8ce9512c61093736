// Package success подтверждает оплату при возврате пользователя со страницы шлюза.
package success

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/serene987/vidora/internal/http/response"
	"github.com/serene987/vidora/internal/metrics"
	"github.com/serene987/vidora/internal/services/provisioning"
)

// Куда отправить пользователя после подтверждения.
const (
	RedirectAccountExists = "/login?message=account_exists"
	RedirectLogin         = "/login?message=payment_success"
	RedirectDashboard     = "/dashboard"
)

// Service подтверждение оплаты.
type Service interface {
	ConfirmPayment(ctx context.Context, sessionID, source string) (*provisioning.Result, error)
}

// Response данные ответа.
type Response struct {
	Success  bool                 `json:"success"`
	Message  string               `json:"message"`
	Redirect string               `json:"redirect"`
	Result   *provisioning.Result `json:"result"`
}

// Handler обработчик возврата с оплаты.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Подтверждение оплаты
// @Description Синхронно создаёт аккаунт или подписку по оплаченной сессии. Повторный вызов безопасен.
// @Tags Checkout
// @Produce json
// @Param session_id query string true "ID сессии оплаты"
// @Success 200 {object} response.Response{data=Response}
// @Failure 400 {object} response.ErrorResponse "Нет session_id"
// @Failure 402 {object} response.ErrorResponse "Оплата не завершена"
// @Failure 404 {object} response.ErrorResponse "Сессия или регистрация не найдена"
// @Failure 409 {object} response.ErrorResponse "Пользователь уже существует"
// @Failure 503 {object} response.ErrorResponse "Шлюз недоступен"
// @Router /checkout/success [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.checkout.success"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		log.Info("session_id is missing")
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("session_id is required"))
		return
	}

	res, err := h.service.ConfirmPayment(r.Context(), sessionID, metrics.SourceRedirect)
	if err != nil {
		response.ServiceError(w, r, log.With(slog.String("session_id", sessionID)), err)
		return
	}

	render.JSON(w, r, response.OKWithData(toResponse(res)))
}

func toResponse(res *provisioning.Result) Response {
	switch {
	case res.AccountExists():
		return Response{Success: true, Message: "User already exists", Redirect: RedirectAccountExists, Result: res}
	case res.IntentKind == provisioning.KindExistingUser:
		return Response{Success: true, Message: "Subscription completed successfully", Redirect: RedirectDashboard, Result: res}
	default:
		return Response{Success: true, Message: "Account created, please log in", Redirect: RedirectLogin, Result: res}
	}
}
