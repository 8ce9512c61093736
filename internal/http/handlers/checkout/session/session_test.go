package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/serene987/vidora/internal/http/response"
	"github.com/serene987/vidora/internal/services"
	"github.com/serene987/vidora/internal/services/checkout"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) InitiateNewSignupCheckout(ctx context.Context, req checkout.NewSignupRequest) (*checkout.Session, error) {
	args := m.Called(ctx, req)
	sess, _ := args.Get(0).(*checkout.Session)
	return sess, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestHandler_ServeHTTP(t *testing.T) {
	valid := Request{Email: "alice@x.com", Password: "secret1", PlanID: 2, FullName: "Alice"}
	signup := checkout.NewSignupRequest{Email: "alice@x.com", Password: "secret1", PlanID: 2, FullName: "Alice"}

	tests := []struct {
		name           string
		body           string
		mockSession    *checkout.Session
		mockErr        error
		callsService   bool
		wantStatusCode int
		wantError      string
	}{
		{
			name:           "session created",
			body:           mustJSON(t, valid),
			mockSession:    &checkout.Session{RedirectURL: "https://checkout.stripe.com/c/pay/cs_1", SessionID: "cs_1"},
			callsService:   true,
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "email taken",
			body:           mustJSON(t, valid),
			mockErr:        fmt.Errorf("failed to check email: %w", services.ErrUserAlreadyExists),
			callsService:   true,
			wantStatusCode: http.StatusConflict,
			wantError:      "user with this email already exists",
		},
		{
			name:           "inactive plan",
			body:           mustJSON(t, valid),
			mockErr:        services.ErrPlanNotFound,
			callsService:   true,
			wantStatusCode: http.StatusNotFound,
			wantError:      "plan not found",
		},
		{
			name:           "broken json",
			body:           "{",
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid request body",
		},
		{
			name:           "short password",
			body:           `{"email":"alice@x.com","password":"123","plan_id":2}`,
			wantStatusCode: http.StatusUnprocessableEntity,
			wantError:      "field Password must be at least 6 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.callsService {
				svc.On("InitiateNewSignupCheckout", mock.Anything, signup).Return(tt.mockSession, tt.mockErr).Once()
			}
			h := New(newNoopLogger(), svc)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/session", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			var resp struct {
				Status string           `json:"status"`
				Error  string           `json:"error"`
				Data   checkout.Session `json:"data"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			if tt.wantError != "" {
				assert.Equal(t, response.StatusError, resp.Status)
				assert.Contains(t, resp.Error, tt.wantError)
			} else {
				assert.Equal(t, response.StatusOK, resp.Status)
				assert.Equal(t, "cs_1", resp.Data.SessionID)
				assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_1", resp.Data.RedirectURL)
			}
			svc.AssertExpectations(t)
		})
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(v))
	return buf.String()
}
