package password

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/serene987/vidora/internal/http/middlewarectx"
	"github.com/serene987/vidora/internal/models"
	"github.com/serene987/vidora/internal/services"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	return m.Called(ctx, userID, oldPassword, newPassword).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		mockErr        error
		callsService   bool
		wantStatusCode int
		wantError      string
	}{
		{
			name:           "changed",
			body:           `{"current_password":"oldpass","new_password":"newpass1"}`,
			callsService:   true,
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "wrong current password",
			body:           `{"current_password":"oldpass","new_password":"newpass1"}`,
			mockErr:        services.ErrInvalidCurrentPassword,
			callsService:   true,
			wantStatusCode: http.StatusBadRequest,
			wantError:      "Current password is incorrect",
		},
		{
			name:           "same password",
			body:           `{"current_password":"oldpass","new_password":"oldpass"}`,
			wantStatusCode: http.StatusUnprocessableEntity,
			wantError:      "field NewPassword must differ from CurrentPassword",
		},
		{
			name:           "too short",
			body:           `{"current_password":"oldpass","new_password":"123"}`,
			wantStatusCode: http.StatusUnprocessableEntity,
			wantError:      "field NewPassword must be at least 6 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.callsService {
				svc.On("ChangePassword", mock.Anything, int64(4), "oldpass", "newpass1").Return(tt.mockErr).Once()
			}
			h := New(newNoopLogger(), svc)

			req := httptest.NewRequest(http.MethodPut, "/api/v1/user/password", strings.NewReader(tt.body))
			req = req.WithContext(middlewarectx.WithSession(req.Context(), "sid", &models.Principal{UserID: 4}))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			var resp map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, resp["error"])
			} else {
				assert.Equal(t, "OK", resp["status"])
			}
			svc.AssertExpectations(t)
		})
	}
}
