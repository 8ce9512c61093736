// Package session отдаёт и обновляет данные текущей сессии.
package session

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

// Service обновление сессии.
type Service interface {
	RefreshSession(ctx context.Context, sessionID string, userID int64) (*models.Principal, error)
}

// CheckHandler возвращает пользователя сессии.
type CheckHandler struct {
	log *slog.Logger
}

// NewCheck создает новый экземпляр CheckHandler.
func NewCheck(log *slog.Logger) *CheckHandler {
	return &CheckHandler{log: log}
}

// ServeHTTP godoc
// @Summary Проверка сессии
// @Tags Auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response{data=models.Principal}
// @Failure 401 {object} response.ErrorResponse "Нет сессии"
// @Router /auth/session [get]
func (h *CheckHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.session.check"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	principal, ok := middlewarectx.RequirePrincipal(w, r, log)
	if !ok {
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{"user": principal}))
}

// RefreshHandler перечитывает пользователя и признак оплаты в сессию.
type RefreshHandler struct {
	log     *slog.Logger
	service Service
}

// NewRefresh создает новый экземпляр RefreshHandler.
func NewRefresh(log *slog.Logger, service Service) *RefreshHandler {
	return &RefreshHandler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Обновление сессии
// @Description Перечитывает данные пользователя и признак оплаты, продлевает сессию.
// @Tags Auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response{data=models.Principal}
// @Failure 401 {object} response.ErrorResponse "Нет сессии"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/session/refresh [post]
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.session.refresh"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	principal, ok := middlewarectx.RequirePrincipal(w, r, log)
	if !ok {
		return
	}
	sessionID, _ := middlewarectx.SessionIDFrom(r.Context())

	updated, err := h.service.RefreshSession(r.Context(), sessionID, principal.UserID)
	if err != nil {
		response.ServiceError(w, r, log.With(slog.Int64("user_id", principal.UserID)), err)
		return
	}

	log.Info("session refreshed", slog.Int64("user_id", updated.UserID), slog.Bool("has_paid", updated.HasPaid))
	render.JSON(w, r, response.OKWithData(map[string]any{"user": updated}))
}
