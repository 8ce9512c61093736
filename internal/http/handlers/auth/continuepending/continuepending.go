// Package continuepending возобновляет оплату незавершённой регистрации.
package continuepending

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

// Request идентификатор незавершённой регистрации из ответа входа и её пароль.
type Request struct {
	PendingUserID int64  `json:"pending_user_id" validate:"required,gt=0"`
	Password      string `json:"password" validate:"required"`
}

// Service продолжение оплаты.
type Service interface {
	ContinuePendingPlan(ctx context.Context, pendingID int64, password string) (*checkout.PendingCheckout, error)
}

// Handler обработчик продолжения оплаты.
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
// @Summary Продолжение оплаты
// @Description Возвращает незавершённую регистрацию с тарифом и открывает для неё новую сессию оплаты.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body Request true "ID незавершённой регистрации и её пароль"
// @Success 200 {object} response.Response{data=checkout.PendingCheckout}
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Неверный ID или пароль"
// @Failure 404 {object} response.ErrorResponse "Тариф не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 503 {object} response.ErrorResponse "Шлюз недоступен"
// @Router /auth/continue-pending [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.continuepending"

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

	pc, err := h.service.ContinuePendingPlan(r.Context(), req.PendingUserID, req.Password)
	if err != nil {
		response.ServiceError(w, r, log.With(slog.Int64("pending_id", req.PendingUserID)), err)
		return
	}

	log.Info("pending checkout resumed", slog.Int64("pending_id", req.PendingUserID), slog.String("session_id", pc.SessionID))
	render.JSON(w, r, response.OKWithData(pc))
}
