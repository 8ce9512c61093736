// Package verifyemail подтверждает почту по ссылке из письма.
package verifyemail

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/serene987/vidora/internal/http/response"
)

// Response ответ на подтверждение почты.
type Response struct {
	Message string `json:"message"`
}

// Service подтверждение почты.
type Service interface {
	VerifyEmail(ctx context.Context, token string) error
}

// Handler обработчик подтверждения почты.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Подтверждение почты
// @Description Погашает одноразовый токен из письма и отмечает почту подтверждённой.
// @Tags Auth
// @Produce json
// @Param token query string true "Токен из ссылки"
// @Success 200 {object} response.Response{data=Response}
// @Failure 400 {object} response.ErrorResponse "Токен не указан, неизвестен или просрочен"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/verify-email [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.verifyemail"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	token := r.URL.Query().Get("token")
	if token == "" {
		log.Info("token is missing")
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("token is required"))
		return
	}

	if err := h.service.VerifyEmail(r.Context(), token); err != nil {
		response.ServiceError(w, r, log, err)
		return
	}

	render.JSON(w, r, response.OKWithData(Response{Message: "Email verified successfully"}))
}
