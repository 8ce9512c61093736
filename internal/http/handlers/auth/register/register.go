// Package register реализует HTTP-обработчик регистрации без оплаты.
package register

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
	"github.com/serene987/vidora/internal/models"
	"github.com/serene987/vidora/internal/services/registration"
)

// Request данные регистрации.
type Request struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	FullName string `json:"full_name" validate:"max=255"`
}

// Service описывает интерфейс регистрации.
type Service interface {
	Register(ctx context.Context, req registration.Request) (*models.Profile, error)
}

// Handler обработчик регистрации.
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
// @Summary Регистрация
// @Description Создаёт аккаунт без подписки и отправляет письмо со ссылкой подтверждения почты.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body Request true "Почта, пароль и имя"
// @Success 201 {object} response.Response{data=models.Profile}
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 409 {object} response.ErrorResponse "Пользователь уже существует"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 429 {object} response.ErrorResponse "Слишком много запросов"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"

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

	profile, err := h.service.Register(r.Context(), registration.Request{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		response.ServiceError(w, r, log, err)
		return
	}

	log.Info("user registered", slog.Int64("user_id", profile.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(profile))
}
