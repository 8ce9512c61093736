package provisioning

// Outcome итог подтверждения оплаты.
type Outcome string

// Итоги подтверждения оплаты.
const (
	OutcomeProvisioned        Outcome = "provisioned"
	OutcomeAlreadyProvisioned Outcome = "already_provisioned"
)

// Причины, по которым работа уже была сделана.
const (
	ReasonSubscriptionExists     = "subscription_exists"
	ReasonAccountExists          = "account_exists"
	ReasonConcurrentConfirmation = "concurrent_confirmation"
)

// Degradation отклонение от штатного результата, с которым подписка всё же создана.
type Degradation string

// DegradationSessionAsSubscription шлюз не вернул подписку, вместо её
// идентификатора сохранён идентификатор сессии.
const DegradationSessionAsSubscription Degradation = "session_as_subscription"

// Result результат подтверждения оплаты.
type Result struct {
	Outcome               Outcome     `json:"outcome"`
	Reason                string      `json:"reason,omitempty"`
	UserID                int64       `json:"user_id,omitempty"`
	SubscriptionID        int64       `json:"subscription_id,omitempty"`
	GatewaySubscriptionID string      `json:"gateway_subscription_id,omitempty"`
	Degradation           Degradation `json:"degradation,omitempty"`
	IntentKind            IntentKind  `json:"intent,omitempty"`
}

// AccountExists сообщает, что аккаунт с почтой регистрации был создан раньше.
func (r *Result) AccountExists() bool {
	return r.Outcome == OutcomeAlreadyProvisioned && r.Reason == ReasonAccountExists
}

// Degraded сообщает, что подписка сохранена с отклонением.
func (r *Result) Degraded() bool {
	return r.Degradation != ""
}
