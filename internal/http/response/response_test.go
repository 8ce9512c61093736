package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serene987/vidora/internal/services"
)

func TestOKWithData(t *testing.T) {
	data := map[string]string{"key": "value"}
	resp := OKWithData(data)

	assert.Equal(t, StatusOK, resp.Status)
	assert.Empty(t, resp.Error)
	assert.Equal(t, data, resp.Data)
}

func TestError(t *testing.T) {
	msg := "something went wrong"
	resp := Error(msg)

	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, msg, resp.Error)
}

func TestValidationError(t *testing.T) {
	type TestStruct struct {
		Email    string `validate:"required,email"`
		Password string `validate:"required,min=6"`
		PlanID   int64  `validate:"gt=0"`
	}

	v := validator.New()
	err := v.Struct(TestStruct{Email: "not-an-email", Password: "123"})
	require.Error(t, err)

	resp := ValidationError(err.(validator.ValidationErrors))

	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Error, "field Email must be a valid email")
	assert.Contains(t, resp.Error, "field Password must be at least 6 characters")
	assert.Contains(t, resp.Error, "field PlanID must be greater than 0")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
	}{
		{fmt.Errorf("plan 3: %w", services.ErrPlanNotFound), http.StatusNotFound},
		{services.ErrSessionNotFound, http.StatusNotFound},
		{services.ErrNoActiveSubscription, http.StatusNotFound},
		{services.ErrUserAlreadyExists, http.StatusConflict},
		{services.ErrInvalidToken, http.StatusBadRequest},
		{services.ErrInvalidCredentials, http.StatusUnauthorized},
		{services.ErrUnauthenticated, http.StatusUnauthorized},
		{services.ErrInvalidCurrentPassword, http.StatusBadRequest},
		{fmt.Errorf("retrieve: %w", services.ErrGatewayUnavailable), http.StatusServiceUnavailable},
		{services.ErrPaymentIncomplete, http.StatusPaymentRequired},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, msg := StatusFor(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.NotEmpty(t, msg)
		})
	}
}

func TestServiceError(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()

	ServiceError(rr, req, log, fmt.Errorf("wrapped: %w", services.ErrUserAlreadyExists))

	assert.Equal(t, http.StatusConflict, rr.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, StatusError, body.Status)
	assert.Equal(t, "user with this email already exists", body.Error)
}
