package list

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

type Service interface {
	List(ctx context.Context, userID int64) ([]*models.SubscriptionWithPlan, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Подписки пользователя
// @Tags Subscriptions
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response{data=[]models.SubscriptionWithPlan}
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Router /subscriptions [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	principal, ok := middlewarectx.RequirePrincipal(w, r, log)
	if !ok {
		return
	}

	subs, err := h.service.List(r.Context(), principal.UserID)
	if err != nil {
		response.ServiceError(w, r, log.With(slog.Int64("user_id", principal.UserID)), err)
		return
	}
	if subs == nil {
		subs = []*models.SubscriptionWithPlan{}
	}
	log.Info("subscriptions listed", slog.Int("count", len(subs)))
	render.JSON(w, r, response.OKWithData(subs))
}
