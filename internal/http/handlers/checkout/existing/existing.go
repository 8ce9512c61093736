// Package existing открывает сессию оплаты тарифа для вошедшего пользователя.
package existing

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/serene987/vidora/internal/http/middlewarectx"
	"github.com/serene987/vidora/internal/http/response"
	"github.com/serene987/vidora/internal/lib/sl"
	"github.com/serene987/vidora/internal/services/checkout"
)

// Request выбранный тариф.
type Request struct {
	PlanID int64 `json:"plan_id" validate:"required,gt=0"`
}

// Service оформление оплаты для существующего пользователя.
type Service interface {
	InitiateExistingUserCheckout(ctx context.Context, userID, planID int64) (*checkout.Session, error)
}

// Handler обработчик оплаты тарифа существующим пользователем.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Оплата тарифа существующим пользователем
// @Tags Checkout
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body Request true "Тариф"
// @Success 201 {object} response.Response{data=checkout.Session}
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Нет сессии"
// @Failure 404 {object} response.ErrorResponse "Тариф или пользователь не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 503 {object} response.ErrorResponse "Шлюз недоступен"
// @Router /checkout/existing-user [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.checkout.existing"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	principal, ok := middlewarectx.RequirePrincipal(w, r, log)
	if !ok {
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	sess, err := h.service.InitiateExistingUserCheckout(r.Context(), principal.UserID, req.PlanID)
	if err != nil {
		response.ServiceError(w, r, log.With(slog.Int64("user_id", principal.UserID)), err)
		return
	}

	log.Info("checkout session created",
		slog.Int64("user_id", principal.UserID),
		slog.String("session_id", sess.SessionID),
	)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(sess))
}
