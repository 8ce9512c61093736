package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/serene987/vidora/internal/metrics"
	"github.com/serene987/vidora/internal/models"
	"github.com/serene987/vidora/internal/rabbitmq"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) DeleteExpiredPendingSignups(ctx context.Context, olderThan time.Time) ([]*models.PendingSignup, error) {
	args := m.Called(ctx, olderThan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PendingSignup), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	return m.Called(ctx, routingKey, event).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestSchedulerService_CleanupExpiredPending(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(-24 * time.Hour)
	expired := []*models.PendingSignup{
		{ID: 1, Email: "a@x.com", FullName: "A", PlanID: 1, GatewaySessionID: "cs_a"},
		{ID: 2, Email: "b@x.com", FullName: "B", PlanID: 2, GatewaySessionID: "cs_b"},
	}

	tests := []struct {
		name       string
		setupMocks func(r *MockRepository, p *MockPublisher)
		want       int
	}{
		{
			name: "publishes one event per removed row",
			setupMocks: func(r *MockRepository, p *MockPublisher) {
				r.On("DeleteExpiredPendingSignups", mock.Anything, cutoff).Return(expired, nil).Once()
				p.On("Publish", mock.Anything, rabbitmq.RoutingAbandoned, mock.AnythingOfType("models.CheckoutAbandoned")).Return(nil).Twice()
			},
			want: 2,
		},
		{
			name: "publish failure does not stop the rest",
			setupMocks: func(r *MockRepository, p *MockPublisher) {
				r.On("DeleteExpiredPendingSignups", mock.Anything, cutoff).Return(expired, nil).Once()
				p.On("Publish", mock.Anything, rabbitmq.RoutingAbandoned, models.CheckoutAbandoned{Email: "a@x.com", FullName: "A", PlanID: 1}).
					Return(errors.New("channel closed")).Once()
				p.On("Publish", mock.Anything, rabbitmq.RoutingAbandoned, models.CheckoutAbandoned{Email: "b@x.com", FullName: "B", PlanID: 2}).
					Return(nil).Once()
			},
			want: 2,
		},
		{
			name: "nothing expired",
			setupMocks: func(r *MockRepository, _ *MockPublisher) {
				r.On("DeleteExpiredPendingSignups", mock.Anything, cutoff).Return([]*models.PendingSignup{}, nil).Once()
			},
			want: 0,
		},
		{
			name: "storage error",
			setupMocks: func(r *MockRepository, _ *MockPublisher) {
				r.On("DeleteExpiredPendingSignups", mock.Anything, cutoff).Return(nil, errors.New("db error")).Once()
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			pub := new(MockPublisher)
			svc := NewSchedulerService(repo, pub, 24*time.Hour, newNoopLogger())
			svc.now = func() time.Time { return now }
			tt.setupMocks(repo, pub)

			before := testutil.ToFloat64(metrics.PendingExpiredTotal)
			got := svc.CleanupExpiredPending(context.Background())

			assert.Equal(t, tt.want, got)
			assert.Equal(t, float64(tt.want), testutil.ToFloat64(metrics.PendingExpiredTotal)-before)
			repo.AssertExpectations(t)
			pub.AssertExpectations(t)
		})
	}
}

func TestSchedulerService_RunStopsOnCancel(t *testing.T) {
	repo := new(MockRepository)
	svc := NewSchedulerService(repo, new(MockPublisher), time.Hour, newNoopLogger())
	repo.On("DeleteExpiredPendingSignups", mock.Anything, mock.Anything).Return([]*models.PendingSignup{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx, time.Hour)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
	repo.AssertCalled(t, "DeleteExpiredPendingSignups", mock.Anything, mock.Anything)
}
