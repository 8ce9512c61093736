// Package session открывает сессию оплаты для регистрации нового пользователя.
//
// Аккаунт на этом шаге не создаётся: данные регистрации сохраняются как
// незавершённые и превращаются в пользователя только после оплаты.
package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/serene987/vidora/internal/http/response"
	"github.com/serene987/vidora/internal/lib/sl"
	"github.com/serene987/vidora/internal/services/checkout"
)

// Request данные регистрации.
//
// Пароль минимум 6 символов, имя необязательно.
type Request struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	PlanID   int64  `json:"plan_id" validate:"required,gt=0"`
	FullName string `json:"full_name" validate:"max=100"`
}

// Service оформление оплаты для регистрации.
type Service interface {
	InitiateNewSignupCheckout(ctx context.Context, req checkout.NewSignupRequest) (*checkout.Session, error)
}

// Handler обработчик оформления оплаты для регистрации.
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
// @Summary Оплата тарифа при регистрации
// @Description Создаёт сессию оплаты и сохраняет незавершённую регистрацию. Возвращает ссылку на страницу оплаты.
// @Tags Checkout
// @Accept json
// @Produce json
// @Param request body Request true "Данные регистрации"
// @Success 201 {object} response.Response{data=checkout.Session}
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 404 {object} response.ErrorResponse "Тариф не найден"
// @Failure 409 {object} response.ErrorResponse "Пользователь уже существует"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 503 {object} response.ErrorResponse "Шлюз недоступен"
// @Router /checkout/session [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.checkout.session"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

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

	sess, err := h.service.InitiateNewSignupCheckout(r.Context(), checkout.NewSignupRequest{
		Email:    req.Email,
		Password: req.Password,
		PlanID:   req.PlanID,
		FullName: req.FullName,
	})
	if err != nil {
		response.ServiceError(w, r, log.With(slog.String("email", req.Email)), err)
		return
	}

	log.Info("checkout session created", slog.String("session_id", sess.SessionID), slog.Int64("plan_id", req.PlanID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(sess))
}
