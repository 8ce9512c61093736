package subscription

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/serene987/vidora/internal/models"
	"github.com/serene987/vidora/internal/paymentprovider"
	"github.com/serene987/vidora/internal/services"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) GetActivePlan(ctx context.Context, id int64) (*models.Plan, bool, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Plan), args.Bool(1), args.Error(2)
}

func (m *RepoMock) GetUserByID(ctx context.Context, id int64) (*models.User, bool, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.User), args.Bool(1), args.Error(2)
}

func (m *RepoMock) SetGatewayCustomerID(ctx context.Context, userID int64, customerID string) error {
	return m.Called(ctx, userID, customerID).Error(0)
}

func (m *RepoMock) CreateSubscription(ctx context.Context, sub models.Subscription) (int64, error) {
	args := m.Called(ctx, sub)
	return args.Get(0).(int64), args.Error(1)
}

func (m *RepoMock) GetSubscription(ctx context.Context, id int64) (*models.Subscription, bool, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Subscription), args.Bool(1), args.Error(2)
}

func (m *RepoMock) ListSubscriptionsWithPlan(ctx context.Context, userID int64) ([]*models.SubscriptionWithPlan, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SubscriptionWithPlan), args.Error(1)
}

func (m *RepoMock) CancelSubscription(ctx context.Context, id int64, endDate time.Time) (bool, error) {
	args := m.Called(ctx, id, endDate)
	return args.Bool(0), args.Error(1)
}

func (m *RepoMock) UpdateSubscriptionStatusByGatewayID(ctx context.Context, gatewayID, status string) (int64, error) {
	args := m.Called(ctx, gatewayID, status)
	return args.Get(0).(int64), args.Error(1)
}

type GatewayMock struct{ mock.Mock }

func (m *GatewayMock) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	args := m.Called(ctx, email, name)
	return args.String(0), args.Error(1)
}

func (m *GatewayMock) CreateSubscription(ctx context.Context, customerID, priceID string) (*paymentprovider.Subscription, error) {
	args := m.Called(ctx, customerID, priceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentprovider.Subscription), args.Error(1)
}

func (m *GatewayMock) CancelSubscription(ctx context.Context, subscriptionID string) error {
	return m.Called(ctx, subscriptionID).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

var fixedNow = time.Date(2025, 3, 31, 10, 0, 0, 0, time.UTC)

func newTestService() (*SubscriptionService, *RepoMock, *GatewayMock) {
	repo := new(RepoMock)
	gw := new(GatewayMock)
	svc := NewSubscriptionService(repo, gw, newNoopLogger())
	svc.now = func() time.Time { return fixedNow }
	return svc, repo, gw
}

var premium = &models.Plan{ID: 3, Title: "Premium", Price: 999, BillingCycle: models.BillingMonthly, IsActive: true, GatewayPriceID: "price_3"}

func TestSubscriptionService_Create(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(r *RepoMock, g *GatewayMock)
		wantErr    error
	}{
		{
			name: "existing customer",
			setupMocks: func(r *RepoMock, g *GatewayMock) {
				r.On("GetActivePlan", mock.Anything, int64(3)).Return(premium, true, nil).Once()
				r.On("GetUserByID", mock.Anything, int64(7)).
					Return(&models.User{ID: 7, Email: "eve@x.com", GatewayCustomerID: "cus_7"}, true, nil).Once()
				g.On("CreateSubscription", mock.Anything, "cus_7", "price_3").
					Return(&paymentprovider.Subscription{ID: "sub_9", LatestInvoiceID: "in_1", ClientSecret: "pi_secret"}, nil).Once()
				r.On("CreateSubscription", mock.Anything, mock.MatchedBy(func(s models.Subscription) bool {
					return s.UserID == 7 && s.PlanID == 3 &&
						s.Status == models.StatusTrialing &&
						s.GatewaySubscriptionID == "sub_9" &&
						s.NextBillingDate != nil &&
						s.NextBillingDate.Equal(time.Date(2025, 4, 30, 10, 0, 0, 0, time.UTC))
				})).Return(int64(11), nil).Once()
			},
		},
		{
			name: "creates customer on first subscription",
			setupMocks: func(r *RepoMock, g *GatewayMock) {
				r.On("GetActivePlan", mock.Anything, int64(3)).Return(premium, true, nil).Once()
				r.On("GetUserByID", mock.Anything, int64(7)).
					Return(&models.User{ID: 7, Email: "eve@x.com", FullName: "Eve"}, true, nil).Once()
				g.On("CreateCustomer", mock.Anything, "eve@x.com", "Eve").Return("cus_new", nil).Once()
				r.On("SetGatewayCustomerID", mock.Anything, int64(7), "cus_new").Return(nil).Once()
				g.On("CreateSubscription", mock.Anything, "cus_new", "price_3").
					Return(&paymentprovider.Subscription{ID: "sub_9"}, nil).Once()
				r.On("CreateSubscription", mock.Anything, mock.Anything).Return(int64(11), nil).Once()
			},
		},
		{
			name: "plan without gateway price",
			setupMocks: func(r *RepoMock, _ *GatewayMock) {
				r.On("GetActivePlan", mock.Anything, int64(3)).
					Return(&models.Plan{ID: 3, IsActive: true}, true, nil).Once()
			},
			wantErr: services.ErrGatewayPriceMissing,
		},
		{
			name: "unknown plan",
			setupMocks: func(r *RepoMock, _ *GatewayMock) {
				r.On("GetActivePlan", mock.Anything, int64(3)).Return(nil, false, nil).Once()
			},
			wantErr: services.ErrPlanNotFound,
		},
		{
			name: "gateway unavailable",
			setupMocks: func(r *RepoMock, g *GatewayMock) {
				r.On("GetActivePlan", mock.Anything, int64(3)).Return(premium, true, nil).Once()
				r.On("GetUserByID", mock.Anything, int64(7)).
					Return(&models.User{ID: 7, GatewayCustomerID: "cus_7"}, true, nil).Once()
				g.On("CreateSubscription", mock.Anything, "cus_7", "price_3").
					Return(nil, paymentprovider.ErrGatewayUnavailable).Once()
			},
			wantErr: services.ErrGatewayUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, gw := newTestService()
			tt.setupMocks(repo, gw)

			got, err := svc.Create(context.Background(), 7, 3)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				repo.AssertNotCalled(t, "CreateSubscription", mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				assert.Equal(t, int64(11), got.Subscription.ID)
				assert.Equal(t, "sub_9", got.Subscription.GatewaySubscriptionID)
			}
			repo.AssertExpectations(t)
			gw.AssertExpectations(t)
		})
	}
}

func TestSubscriptionService_Cancel(t *testing.T) {
	t.Run("cancels at gateway then in storage", func(t *testing.T) {
		svc, repo, gw := newTestService()
		repo.On("GetSubscription", mock.Anything, int64(11)).
			Return(&models.Subscription{ID: 11, UserID: 7, Status: models.StatusActive, GatewaySubscriptionID: "sub_9"}, true, nil).Once()
		gw.On("CancelSubscription", mock.Anything, "sub_9").Return(nil).Once()
		repo.On("CancelSubscription", mock.Anything, int64(11), fixedNow).Return(true, nil).Once()

		sub, err := svc.Cancel(context.Background(), 7, 11)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, sub.Status)
		repo.AssertExpectations(t)
		gw.AssertExpectations(t)
	})

	t.Run("gateway failure keeps subscription", func(t *testing.T) {
		svc, repo, gw := newTestService()
		repo.On("GetSubscription", mock.Anything, int64(11)).
			Return(&models.Subscription{ID: 11, UserID: 7, Status: models.StatusActive, GatewaySubscriptionID: "sub_9"}, true, nil).Once()
		gw.On("CancelSubscription", mock.Anything, "sub_9").Return(paymentprovider.ErrGatewayUnavailable).Once()

		_, err := svc.Cancel(context.Background(), 7, 11)
		assert.ErrorIs(t, err, services.ErrGatewayUnavailable)
		repo.AssertNotCalled(t, "CancelSubscription", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("foreign subscription is not found", func(t *testing.T) {
		svc, repo, gw := newTestService()
		repo.On("GetSubscription", mock.Anything, int64(11)).
			Return(&models.Subscription{ID: 11, UserID: 8, Status: models.StatusActive}, true, nil).Once()

		_, err := svc.Cancel(context.Background(), 7, 11)
		assert.ErrorIs(t, err, services.ErrSubscriptionNotFound)
		gw.AssertNotCalled(t, "CancelSubscription", mock.Anything, mock.Anything)
	})

	t.Run("degraded subscription is skipped at gateway", func(t *testing.T) {
		svc, repo, gw := newTestService()
		repo.On("GetSubscription", mock.Anything, int64(12)).
			Return(&models.Subscription{ID: 12, UserID: 7, Status: models.StatusActive, GatewaySubscriptionID: "cs_live_1", Degraded: true}, true, nil).Once()
		repo.On("CancelSubscription", mock.Anything, int64(12), fixedNow).Return(true, nil).Once()

		_, err := svc.Cancel(context.Background(), 7, 12)
		require.NoError(t, err)
		gw.AssertNotCalled(t, "CancelSubscription", mock.Anything, mock.Anything)
	})
}

func TestSubscriptionService_ApplyInvoice(t *testing.T) {
	tests := []struct {
		name       string
		eventType  string
		invoice    *paymentprovider.Invoice
		setupMocks func(r *RepoMock)
		want       int64
		wantErr    bool
	}{
		{
			name:      "payment succeeded activates",
			eventType: paymentprovider.EventInvoicePaymentSucceeded,
			invoice:   &paymentprovider.Invoice{ID: "in_1", SubscriptionID: "sub_9"},
			setupMocks: func(r *RepoMock) {
				r.On("UpdateSubscriptionStatusByGatewayID", mock.Anything, "sub_9", models.StatusActive).Return(int64(1), nil).Once()
			},
			want: 1,
		},
		{
			name:      "payment failed cancels only that subscription",
			eventType: paymentprovider.EventInvoicePaymentFailed,
			invoice:   &paymentprovider.Invoice{ID: "in_2", SubscriptionID: "sub_9"},
			setupMocks: func(r *RepoMock) {
				r.On("UpdateSubscriptionStatusByGatewayID", mock.Anything, "sub_9", models.StatusCancelled).Return(int64(1), nil).Once()
			},
			want: 1,
		},
		{
			name:       "invoice without subscription",
			eventType:  paymentprovider.EventInvoicePaymentFailed,
			invoice:    &paymentprovider.Invoice{ID: "in_3"},
			setupMocks: func(_ *RepoMock) {},
		},
		{
			name:      "unknown subscription",
			eventType: paymentprovider.EventInvoicePaymentSucceeded,
			invoice:   &paymentprovider.Invoice{ID: "in_4", SubscriptionID: "sub_x"},
			setupMocks: func(r *RepoMock) {
				r.On("UpdateSubscriptionStatusByGatewayID", mock.Anything, "sub_x", models.StatusActive).Return(int64(0), nil).Once()
			},
		},
		{
			name:      "storage failure",
			eventType: paymentprovider.EventInvoicePaymentSucceeded,
			invoice:   &paymentprovider.Invoice{ID: "in_5", SubscriptionID: "sub_9"},
			setupMocks: func(r *RepoMock) {
				r.On("UpdateSubscriptionStatusByGatewayID", mock.Anything, "sub_9", models.StatusActive).Return(int64(0), errors.New("db down")).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newTestService()
			tt.setupMocks(repo)

			n, err := svc.ApplyInvoice(context.Background(), tt.eventType, tt.invoice)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, n)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestSubscriptionService_List(t *testing.T) {
	svc, repo, _ := newTestService()
	subs := []*models.SubscriptionWithPlan{{Subscription: models.Subscription{ID: 1, UserID: 7}}}
	repo.On("ListSubscriptionsWithPlan", mock.Anything, int64(7)).Return(subs, nil).Once()
	repo.On("ListSubscriptionsWithPlan", mock.Anything, int64(8)).Return(nil, errors.New("db error")).Once()

	got, err := svc.List(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, subs, got)

	_, err = svc.List(context.Background(), 8)
	assert.Error(t, err)
}
