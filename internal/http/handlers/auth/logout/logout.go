// Package logout закрывает текущую сессию пользователя.
package logout

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/serene987/vidora/internal/http/cookie"
	"github.com/serene987/vidora/internal/http/middlewarectx"
	"github.com/serene987/vidora/internal/http/response"
)

// Service удаление сессии.
type Service interface {
	Logout(ctx context.Context, sessionID string) error
}

// Handler обработчик выхода.
type Handler struct {
	log     *slog.Logger
	service Service
	cookie  cookie.Options
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service, opts cookie.Options) *Handler {
	return &Handler{
		log:     log,
		service: service,
		cookie:  opts,
	}
}

// ServeHTTP godoc
// @Summary Выход
// @Description Удаляет сессию и стирает cookie.
// @Tags Auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse "Нет сессии"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/logout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.logout"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	sessionID, ok := middlewarectx.SessionIDFrom(r.Context())
	if !ok {
		cookie.ClearSession(w, h.cookie)
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("not logged in"))
		return
	}

	if err := h.service.Logout(r.Context(), sessionID); err != nil {
		response.ServiceError(w, r, log, err)
		return
	}

	cookie.ClearSession(w, h.cookie)
	log.Info("logged out")
	render.JSON(w, r, response.OKWithData(map[string]string{"message": "Logged out successfully"}))
}
