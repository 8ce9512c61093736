// Package dashboard отдаёт данные личного кабинета.
package dashboard

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

// Service данные кабинета.
type Service interface {
	Dashboard(ctx context.Context, userID int64) (*models.Dashboard, error)
}

// Handler обработчик личного кабинета.
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
// @Summary Личный кабинет
// @Description Профиль и текущая подписка с тарифом. Подписки может не быть.
// @Tags User
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response{data=models.Dashboard}
// @Failure 401 {object} response.ErrorResponse "Нет сессии"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Router /user/dashboard [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.dashboard"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	principal, ok := middlewarectx.RequirePrincipal(w, r, log)
	if !ok {
		return
	}

	d, err := h.service.Dashboard(r.Context(), principal.UserID)
	if err != nil {
		response.ServiceError(w, r, log.With(slog.Int64("user_id", principal.UserID)), err)
		return
	}
	render.JSON(w, r, response.OKWithData(d))
}
