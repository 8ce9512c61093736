// Package middlewarectx содержит HTTP middleware для проверки сессии и
// ограничения частоты запросов.
//
// SessionMiddleware достаёт токен сессии из заголовка Authorization или из
// cookie, проверяет его через сервис аутентификации и кладёт в контекст
// идентификатор сессии и данные пользователя. Без живой сессии отвечает 401.
package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/serene987/vidora/internal/http/response"
	"github.com/serene987/vidora/internal/lib/sl"
	"github.com/serene987/vidora/internal/models"
	"github.com/serene987/vidora/internal/services"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// SessionID ключ для идентификатора сессии в контексте
	SessionID Key = "session_id"
	// Principal ключ для данных пользователя в контексте
	Principal Key = "principal"
)

// Authenticator описывает сервис проверки токена сессии.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, *models.Principal, error)
}

// SessionMiddleware возвращает middleware, пропускающий только запросы с живой сессией.
func SessionMiddleware(auth Authenticator, cookieName string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.SessionMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			token := TokenFromRequest(r, cookieName)
			if token == "" {
				log.Info("missing session token")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing session token"))
				return
			}

			sessionID, principal, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, services.ErrUnauthenticated) {
					log.Info("invalid or expired session", sl.Err(err))
					render.Status(r, http.StatusUnauthorized)
					render.JSON(w, r, response.Error("invalid or expired session"))
					return
				}
				response.ServiceError(w, r, log, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sessionID, principal)))
		})
	}
}

// TokenFromRequest возвращает токен из заголовка "Authorization: Bearer"
// или, если заголовка нет, из cookie с именем cookieName.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	if cookie, err := r.Cookie(cookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// WithSession кладёт сессию в контекст.
func WithSession(ctx context.Context, sessionID string, principal *models.Principal) context.Context {
	ctx = context.WithValue(ctx, SessionID, sessionID)
	return context.WithValue(ctx, Principal, principal)
}

// PrincipalFrom возвращает пользователя текущей сессии.
func PrincipalFrom(ctx context.Context) (*models.Principal, bool) {
	p, ok := ctx.Value(Principal).(*models.Principal)
	return p, ok && p != nil
}

// RequirePrincipal возвращает пользователя сессии или отвечает 401, если
// обработчик вызван без SessionMiddleware.
func RequirePrincipal(w http.ResponseWriter, r *http.Request, log *slog.Logger) (*models.Principal, bool) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		log.Error("principal missing in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("authentication required"))
		return nil, false
	}
	return p, true
}

// SessionIDFrom возвращает идентификатор текущей сессии.
func SessionIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(SessionID).(string)
	return id, ok && id != ""
}
