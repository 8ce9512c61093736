// Package create реализует HTTP-обработчик для оформления подписки через шлюз.
//
// Handler принимает тариф, берёт пользователя из сессии, создаёт подписку у
// шлюза (клиент шлюза заводится при необходимости) и возвращает сохранённую
// подписку вместе с данными для подтверждения первого платежа.
package create

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
	"github.com/serene987/vidora/internal/services/subscription"
)

// Request выбранный тариф.
type Request struct {
	PlanID int64 `json:"plan_id" validate:"required,gt=0"`
}

// Handler управляет HTTP-запросами на создание подписок.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис бизнес-логики подписок
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс бизнес-логики создания подписки.
type Service interface {
	Create(ctx context.Context, userID, planID int64) (*subscription.Created, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать подписку
// @Description Создаёт подписку у шлюза для текущего пользователя. Подписка сохраняется в статусе trialing до первого оплаченного счёта.
// @Tags Subscriptions
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param request body Request true "Тариф"
// @Success 201 {object} response.Response{data=subscription.Created}
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Тариф не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации или тариф без цены у шлюза"
// @Failure 503 {object} response.ErrorResponse "Шлюз недоступен"
// @Router /subscriptions [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.create"

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

	created, err := h.service.Create(r.Context(), principal.UserID, req.PlanID)
	if err != nil {
		response.ServiceError(w, r, log.With(slog.Int64("user_id", principal.UserID)), err)
		return
	}

	log.Info("subscription created",
		slog.Int64("user_id", principal.UserID),
		slog.Int64("subscription_id", created.Subscription.ID),
	)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(created))
}
