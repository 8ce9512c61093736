package paymentprovider

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

// ParseWebhook проверяет подпись события и разбирает интересующие сервис типы.
// Для остальных типов возвращается событие без Session и Invoice.
func (c *Client) ParseWebhook(payload []byte, signature string) (*Event, error) {
	const op = "paymentprovider.ParseWebhook"

	evt, err := webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrInvalidSignature, err)
	}

	res := &Event{ID: evt.ID, Type: string(evt.Type)}
	if evt.Data == nil {
		return res, nil
	}

	switch res.Type {
	case EventCheckoutSessionCompleted:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("%s: decode session: %w", op, err)
		}
		res.Session = sessionFromStripe(&sess)
	case EventInvoicePaymentSucceeded, EventInvoicePaymentFailed:
		var inv stripe.Invoice
		if err := json.Unmarshal(evt.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("%s: decode invoice: %w", op, err)
		}
		res.Invoice = &Invoice{ID: inv.ID}
		if inv.Subscription != nil {
			res.Invoice.SubscriptionID = inv.Subscription.ID
		}
		if inv.Customer != nil {
			res.Invoice.CustomerID = inv.Customer.ID
		}
	}
	return res, nil
}
