package models

// Периоды оплаты тарифа.
const (
	BillingMonthly = "monthly"
	BillingYearly  = "yearly"
)

// Plan тариф сервиса.
type Plan struct {
	ID             int64   `json:"id"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Price          float64 `json:"price"`
	BillingCycle   string  `json:"billing_cycle"`
	ChannelCount   int     `json:"channel_count"`
	IsActive       bool    `json:"is_active"`
	GatewayPriceID string  `json:"gateway_price_id,omitempty"`
}
