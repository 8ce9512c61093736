// Package cancel удаляет незавершённую регистрацию, когда пользователь ушёл со страницы оплаты.
package cancel

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
)

// Request тело запроса.
type Request struct {
	SessionID string `json:"session_id" validate:"required"`
}

// Service отмена оплаты.
type Service interface {
	CancelCheckout(ctx context.Context, sessionID string) (int64, error)
}

// Handler обработчик отмены оплаты.
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
// @Summary Отмена оплаты
// @Description Удаляет незавершённую регистрацию, привязанную к сессии оплаты.
// @Tags Checkout
// @Accept json
// @Produce json
// @Param request body Request true "ID сессии оплаты"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /checkout/cancel [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.checkout.cancel"

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

	deleted, err := h.service.CancelCheckout(r.Context(), req.SessionID)
	if err != nil {
		response.ServiceError(w, r, log, err)
		return
	}

	log.Info("checkout cancelled", slog.String("session_id", req.SessionID), slog.Int64("deleted", deleted))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"message": "Checkout cancelled",
		"deleted": deleted,
	}))
}
