// Package login реализует HTTP-обработчик входа пользователя.
//
// При успешном входе сервер открывает сессию, возвращает токен в теле ответа
// и кладёт его же в HttpOnly cookie. Если почта принадлежит незавершённой
// регистрации и пароль верный, возвращается сводка тарифа, чтобы клиент мог
// продолжить оплату. Все неудачи входа дают один и тот же ответ 401.
package login

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/serene987/vidora/internal/http/cookie"
	"github.com/serene987/vidora/internal/http/response"
	"github.com/serene987/vidora/internal/lib/sl"
	"github.com/serene987/vidora/internal/models"
	authservice "github.com/serene987/vidora/internal/services/auth"
)

// Request структура входных данных для авторизации.
type Request struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Response данные успешного входа.
type Response struct {
	IsPending   bool                `json:"is_pending"`
	Token       string              `json:"token,omitempty"`
	User        *models.Principal   `json:"user,omitempty"`
	PendingUser *models.PendingPlan `json:"pending_user,omitempty"`
}

// Service описывает интерфейс бизнес-логики входа.
type Service interface {
	Login(ctx context.Context, email, password string) (*authservice.LoginResult, error)
	TokenTTL() time.Duration
}

// Handler обрабатывает HTTP-запросы для авторизации.
type Handler struct {
	log      *slog.Logger        // Логгер для записи операций и ошибок
	service  Service             // Сервис входа и сессий
	cookie   cookie.Options      // Параметры cookie сессии
	validate *validator.Validate // Валидатор для проверки входных данных
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service, opts cookie.Options) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		cookie:   opts,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Авторизация пользователя
// @Description Проверяет почту и пароль и открывает сессию. Для незавершённой регистрации возвращает выбранный тариф.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Учетные данные пользователя"
// @Success 200 {object} response.Response{data=Response} "Успешная авторизация"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Неверные учетные данные"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 429 {object} response.ErrorResponse "Слишком много запросов"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"

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

	res, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		response.ServiceError(w, r, log, err)
		return
	}

	if res.IsPending() {
		log.Info("login matched pending signup", slog.Int64("pending_id", res.Pending.PendingID))
		render.JSON(w, r, response.OKWithData(Response{
			IsPending:   true,
			PendingUser: res.Pending,
		}))
		return
	}

	cookie.SetSession(w, h.cookie, res.Token, h.service.TokenTTL())
	log.Info("login success", slog.Int64("user_id", res.Principal.UserID))
	render.JSON(w, r, response.OKWithData(Response{
		Token: res.Token,
		User:  res.Principal,
	}))
}
