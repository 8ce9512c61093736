// Package cancelplan отменяет текущий тариф пользователя.
//
// Аккаунт сохраняется, а данные для повторной оплаты того же тарифа
// записываются как незавершённая регистрация.
package cancelplan

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/serene987/vidora/internal/http/middlewarectx"
	"github.com/serene987/vidora/internal/http/response"
	"github.com/serene987/vidora/internal/models"
)

// Service отмена тарифа.
type Service interface {
	CancelPlan(ctx context.Context, userID int64) (*models.SubscriptionWithPlan, error)
}

// Handler обработчик отмены тарифа.
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
// @Summary Отмена тарифа
// @Tags User
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response{data=models.SubscriptionWithPlan}
// @Failure 401 {object} response.ErrorResponse "Нет сессии"
// @Failure 404 {object} response.ErrorResponse "Нет активной подписки"
// @Router /user/subscriptions/cancel [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.cancelplan"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	principal, ok := middlewarectx.RequirePrincipal(w, r, log)
	if !ok {
		return
	}

	sub, err := h.service.CancelPlan(r.Context(), principal.UserID)
	if err != nil {
		response.ServiceError(w, r, log.With(slog.Int64("user_id", principal.UserID)), err)
		return
	}

	log.Info("plan cancelled", slog.Int64("user_id", principal.UserID), slog.Int64("subscription_id", sub.Subscription.ID))
	render.JSON(w, r, response.OKWithData(sub))
}
