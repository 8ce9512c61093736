// Package me отдаёт профиль текущего пользователя и удаляет аккаунт.
package me

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/serene987/vidora/internal/http/cookie"
	"github.com/serene987/vidora/internal/http/middlewarectx"
	"github.com/serene987/vidora/internal/http/response"
	"github.com/serene987/vidora/internal/lib/sl"
	"github.com/serene987/vidora/internal/models"
)

// AccountService профиль и удаление аккаунта.
type AccountService interface {
	Profile(ctx context.Context, userID int64) (*models.Profile, error)
	DeleteAccount(ctx context.Context, userID int64) error
}

// SessionService закрытие сессии удалённого пользователя.
type SessionService interface {
	Logout(ctx context.Context, sessionID string) error
}

// GetHandler возвращает профиль.
type GetHandler struct {
	log     *slog.Logger
	service AccountService
}

// NewGet создает новый экземпляр GetHandler.
func NewGet(log *slog.Logger, service AccountService) *GetHandler {
	return &GetHandler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Профиль
// @Tags User
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response{data=models.Profile}
// @Failure 401 {object} response.ErrorResponse "Нет сессии"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Router /users/me [get]
func (h *GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.me.get"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	principal, ok := middlewarectx.RequirePrincipal(w, r, log)
	if !ok {
		return
	}

	profile, err := h.service.Profile(r.Context(), principal.UserID)
	if err != nil {
		response.ServiceError(w, r, log.With(slog.Int64("user_id", principal.UserID)), err)
		return
	}
	render.JSON(w, r, response.OKWithData(profile))
}

// DeleteHandler удаляет аккаунт вместе с подписками и закрывает сессию.
type DeleteHandler struct {
	log      *slog.Logger
	service  AccountService
	sessions SessionService
	cookie   cookie.Options
}

// NewDelete создает новый экземпляр DeleteHandler.
func NewDelete(log *slog.Logger, service AccountService, sessions SessionService, opts cookie.Options) *DeleteHandler {
	return &DeleteHandler{
		log:      log,
		service:  service,
		sessions: sessions,
		cookie:   opts,
	}
}

// ServeHTTP godoc
// @Summary Удаление аккаунта
// @Description Удаляет пользователя и его подписки, отменяет подписку у шлюза и закрывает сессию.
// @Tags User
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse "Нет сессии"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Router /users/me [delete]
func (h *DeleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.me.delete"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	principal, ok := middlewarectx.RequirePrincipal(w, r, log)
	if !ok {
		return
	}
	log = log.With(slog.Int64("user_id", principal.UserID))

	if err := h.service.DeleteAccount(r.Context(), principal.UserID); err != nil {
		response.ServiceError(w, r, log, err)
		return
	}

	if sessionID, ok := middlewarectx.SessionIDFrom(r.Context()); ok {
		if err := h.sessions.Logout(r.Context(), sessionID); err != nil {
			log.Warn("failed to drop session of deleted user", sl.Err(err))
		}
	}
	cookie.ClearSession(w, h.cookie)

	log.Info("account deleted")
	render.JSON(w, r, response.OKWithData(map[string]string{"message": "Account deleted successfully"}))
}
