// Package cancel отменяет подписку пользователя у шлюза и в базе.
package cancel

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/serene987/vidora/internal/http/middlewarectx"
	"github.com/serene987/vidora/internal/http/response"
	"github.com/serene987/vidora/internal/lib/sl"
	"github.com/serene987/vidora/internal/models"
)

// Service отмена подписки.
type Service interface {
	Cancel(ctx context.Context, userID, subscriptionID int64) (*models.Subscription, error)
}

// Handler обработчик отмены подписки.
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
// @Summary Отменить подписку
// @Description Отменяет подписку у шлюза и помечает её отменённой. Повторная отмена возвращает подписку как есть.
// @Tags Subscriptions
// @Security BearerAuth
// @Produce json
// @Param id path int true "ID подписки"
// @Success 200 {object} response.Response{data=models.Subscription}
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Подписка не найдена"
// @Failure 503 {object} response.ErrorResponse "Шлюз недоступен"
// @Router /subscriptions/{id}/cancel [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.cancel"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	principal, ok := middlewarectx.RequirePrincipal(w, r, log)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		log.Info("invalid subscription id", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid subscription id"))
		return
	}

	sub, err := h.service.Cancel(r.Context(), principal.UserID, id)
	if err != nil {
		response.ServiceError(w, r, log.With(slog.Int64("user_id", principal.UserID), slog.Int64("subscription_id", id)), err)
		return
	}

	log.Info("subscription cancelled", slog.Int64("user_id", principal.UserID), slog.Int64("subscription_id", id))
	render.JSON(w, r, response.OKWithData(sub))
}
