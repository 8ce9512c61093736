package payment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/serene987/vidora/internal/metrics"
	"github.com/serene987/vidora/internal/paymentprovider"
	"github.com/serene987/vidora/internal/services"
	"github.com/serene987/vidora/internal/services/provisioning"
)

type ParserMock struct{ mock.Mock }

func (m *ParserMock) ParseWebhook(payload []byte, signature string) (*paymentprovider.Event, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentprovider.Event), args.Error(1)
}

type ConfirmerMock struct{ mock.Mock }

func (m *ConfirmerMock) ConfirmPayment(ctx context.Context, sessionID, source string) (*provisioning.Result, error) {
	args := m.Called(ctx, sessionID, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provisioning.Result), args.Error(1)
}

type InvoiceMock struct{ mock.Mock }

func (m *InvoiceMock) ApplyInvoice(ctx context.Context, eventType string, invoice *paymentprovider.Invoice) (int64, error) {
	args := m.Called(ctx, eventType, invoice)
	return args.Get(0).(int64), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func sessionEvent(id string) *paymentprovider.Event {
	return &paymentprovider.Event{
		ID:      "evt_1",
		Type:    paymentprovider.EventCheckoutSessionCompleted,
		Session: &paymentprovider.Session{ID: id},
	}
}

func TestPaymentService_HandleWebhook(t *testing.T) {
	payload := []byte(`{}`)
	failedInvoice := &paymentprovider.Invoice{ID: "in_1", SubscriptionID: "sub_9"}

	tests := []struct {
		name       string
		setupMocks func(p *ParserMock, c *ConfirmerMock, i *InvoiceMock)
		wantResult string
		wantErr    error
		wantAnyErr bool
	}{
		{
			name: "invalid signature",
			setupMocks: func(p *ParserMock, _ *ConfirmerMock, _ *InvoiceMock) {
				p.On("ParseWebhook", payload, "sig").
					Return(nil, fmt.Errorf("parse: %w", paymentprovider.ErrInvalidSignature)).Once()
			},
			wantErr: paymentprovider.ErrInvalidSignature,
		},
		{
			name: "checkout completed provisions",
			setupMocks: func(p *ParserMock, c *ConfirmerMock, _ *InvoiceMock) {
				p.On("ParseWebhook", payload, "sig").Return(sessionEvent("cs_1"), nil).Once()
				c.On("ConfirmPayment", mock.Anything, "cs_1", metrics.SourceWebhook).
					Return(&provisioning.Result{Outcome: provisioning.OutcomeProvisioned, UserID: 1}, nil).Once()
			},
			wantResult: ResultProcessed,
		},
		{
			name: "unknown session is acknowledged",
			setupMocks: func(p *ParserMock, c *ConfirmerMock, _ *InvoiceMock) {
				p.On("ParseWebhook", payload, "sig").Return(sessionEvent("cs_x"), nil).Once()
				c.On("ConfirmPayment", mock.Anything, "cs_x", metrics.SourceWebhook).
					Return(nil, fmt.Errorf("retrieve: %w", services.ErrSessionNotFound)).Once()
			},
			wantResult: ResultRejected,
		},
		{
			name: "unpaid session is acknowledged",
			setupMocks: func(p *ParserMock, c *ConfirmerMock, _ *InvoiceMock) {
				p.On("ParseWebhook", payload, "sig").Return(sessionEvent("cs_2"), nil).Once()
				c.On("ConfirmPayment", mock.Anything, "cs_2", metrics.SourceWebhook).
					Return(nil, services.ErrPaymentIncomplete).Once()
			},
			wantResult: ResultRejected,
		},
		{
			name: "gateway outage asks for redelivery",
			setupMocks: func(p *ParserMock, c *ConfirmerMock, _ *InvoiceMock) {
				p.On("ParseWebhook", payload, "sig").Return(sessionEvent("cs_3"), nil).Once()
				c.On("ConfirmPayment", mock.Anything, "cs_3", metrics.SourceWebhook).
					Return(nil, services.ErrGatewayUnavailable).Once()
			},
			wantErr: services.ErrGatewayUnavailable,
		},
		{
			name: "storage failure asks for redelivery",
			setupMocks: func(p *ParserMock, c *ConfirmerMock, _ *InvoiceMock) {
				p.On("ParseWebhook", payload, "sig").Return(sessionEvent("cs_4"), nil).Once()
				c.On("ConfirmPayment", mock.Anything, "cs_4", metrics.SourceWebhook).
					Return(nil, errors.New("connection reset")).Once()
			},
			wantAnyErr: true,
		},
		{
			name: "invoice failed updates subscription",
			setupMocks: func(p *ParserMock, _ *ConfirmerMock, i *InvoiceMock) {
				p.On("ParseWebhook", payload, "sig").Return(&paymentprovider.Event{
					ID: "evt_2", Type: paymentprovider.EventInvoicePaymentFailed, Invoice: failedInvoice,
				}, nil).Once()
				i.On("ApplyInvoice", mock.Anything, paymentprovider.EventInvoicePaymentFailed, failedInvoice).Return(int64(1), nil).Once()
			},
			wantResult: ResultProcessed,
		},
		{
			name: "invoice for unknown subscription",
			setupMocks: func(p *ParserMock, _ *ConfirmerMock, i *InvoiceMock) {
				p.On("ParseWebhook", payload, "sig").Return(&paymentprovider.Event{
					ID: "evt_3", Type: paymentprovider.EventInvoicePaymentSucceeded, Invoice: failedInvoice,
				}, nil).Once()
				i.On("ApplyInvoice", mock.Anything, paymentprovider.EventInvoicePaymentSucceeded, failedInvoice).Return(int64(0), nil).Once()
			},
			wantResult: ResultIgnored,
		},
		{
			name: "other events are ignored",
			setupMocks: func(p *ParserMock, _ *ConfirmerMock, _ *InvoiceMock) {
				p.On("ParseWebhook", payload, "sig").Return(&paymentprovider.Event{ID: "evt_4", Type: "customer.created"}, nil).Once()
			},
			wantResult: ResultIgnored,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := new(ParserMock)
			confirmer := new(ConfirmerMock)
			invoices := new(InvoiceMock)
			svc := New(parser, confirmer, invoices, newNoopLogger())
			tt.setupMocks(parser, confirmer, invoices)

			res, err := svc.HandleWebhook(context.Background(), payload, "sig")
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, res)
			case tt.wantAnyErr:
				assert.Error(t, err)
				assert.Nil(t, res)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantResult, res.Result)
			}
			parser.AssertExpectations(t)
			confirmer.AssertExpectations(t)
			invoices.AssertExpectations(t)
		})
	}
}
