package cancel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
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

func (m *ServiceMock) Cancel(ctx context.Context, userID, subscriptionID int64) (*models.Subscription, error) {
	args := m.Called(ctx, userID, subscriptionID)
	sub, _ := args.Get(0).(*models.Subscription)
	return sub, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		id             string
		withSession    bool
		mockSub        *models.Subscription
		mockErr        error
		callsService   bool
		wantStatusCode int
	}{
		{
			name:           "cancelled",
			id:             "11",
			withSession:    true,
			mockSub:        &models.Subscription{ID: 11, UserID: 3, Status: models.StatusCancelled},
			callsService:   true,
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "someone else's subscription",
			id:             "11",
			withSession:    true,
			mockErr:        services.ErrSubscriptionNotFound,
			callsService:   true,
			wantStatusCode: http.StatusNotFound,
		},
		{
			name:           "gateway down",
			id:             "11",
			withSession:    true,
			mockErr:        fmt.Errorf("failed to cancel at gateway: %w", services.ErrGatewayUnavailable),
			callsService:   true,
			wantStatusCode: http.StatusServiceUnavailable,
		},
		{
			name:           "bad id",
			id:             "x",
			withSession:    true,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "no session",
			id:             "11",
			wantStatusCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.callsService {
				svc.On("Cancel", mock.Anything, int64(3), int64(11)).Return(tt.mockSub, tt.mockErr).Once()
			}
			h := New(newNoopLogger(), svc)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions/"+tt.id+"/cancel", nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.id)
			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
			if tt.withSession {
				ctx = middlewarectx.WithSession(ctx, "sid", &models.Principal{UserID: 3})
			}
			req = req.WithContext(ctx)
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			if tt.wantStatusCode == http.StatusOK {
				var resp struct {
					Data models.Subscription `json:"data"`
				}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, models.StatusCancelled, resp.Data.Status)
			}
			svc.AssertExpectations(t)
		})
	}
}
