// Package list отдаёт активные тарифы по возрастанию цены.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/serene987/vidora/internal/http/response"
	"github.com/serene987/vidora/internal/models"
)

// Service список тарифов.
type Service interface {
	ListActive(ctx context.Context) ([]*models.Plan, error)
}

// Handler обработчик списка тарифов.
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
// @Summary Список тарифов
// @Tags Plans
// @Produce json
// @Success 200 {object} response.Response{data=[]models.Plan}
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /plans [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.plans.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	plans, err := h.service.ListActive(r.Context())
	if err != nil {
		response.ServiceError(w, r, log, err)
		return
	}
	if plans == nil {
		plans = []*models.Plan{}
	}
	render.JSON(w, r, response.OKWithData(plans))
}
