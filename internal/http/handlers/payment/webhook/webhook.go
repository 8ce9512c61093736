// Package webhook принимает события платёжного шлюза.
//
// Обработчик читает тело запроса как есть (подпись считается по сырым байтам),
// передаёт его вместе с заголовком Stripe-Signature сервису и отвечает:
// 400 при неверной подписи, 5xx при временной ошибке, чтобы шлюз повторил
// доставку, и 200 во всех остальных случаях.
package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/serene987/vidora/internal/http/response"
	"github.com/serene987/vidora/internal/lib/sl"
	"github.com/serene987/vidora/internal/paymentprovider"
	"github.com/serene987/vidora/internal/services/payment"
)

const (
	// SignatureHeader заголовок с подписью события.
	SignatureHeader = "Stripe-Signature"
	maxBodyBytes    = 65536
)

// Service обработка события вебхука.
type Service interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*payment.WebhookResult, error)
}

// Handler обработчик вебхука шлюза.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Вебхук Stripe
// @Description Принимает события checkout.session.completed, invoice.payment_succeeded и invoice.payment_failed.
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Подпись события"
// @Success 200 {object} response.Response{data=payment.WebhookResult}
// @Failure 400 {object} response.ErrorResponse "Неверная подпись"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Failure 503 {object} response.ErrorResponse "Шлюз недоступен"
// @Router /webhooks/stripe [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	res, err := h.service.HandleWebhook(r.Context(), body, r.Header.Get(SignatureHeader))
	if err != nil {
		if errors.Is(err, paymentprovider.ErrInvalidSignature) {
			log.Warn("webhook signature rejected", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid signature"))
			return
		}
		response.ServiceError(w, r, log, err)
		return
	}

	log.Info("webhook handled",
		slog.String("event_id", res.EventID),
		slog.String("type", res.Type),
		slog.String("result", res.Result),
	)
	render.JSON(w, r, response.OKWithData(res))
}
