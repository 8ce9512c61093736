// Package metrics содержит счётчики Prometheus для создания аккаунтов по оплате и вебхуков.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Источники подтверждения оплаты.
const (
	SourceRedirect = "redirect"
	SourceWebhook  = "webhook"
)

var (
	// ProvisioningTotal результаты подтверждения оплаты по источнику и исходу.
	ProvisioningTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vidora",
		Name:      "provisioning_total",
		Help:      "Payment confirmations by source and outcome.",
	}, []string{"source", "outcome"})

	// ProvisioningDegradedTotal подписки, сохранённые с идентификатором сессии вместо идентификатора подписки.
	ProvisioningDegradedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vidora",
		Name:      "provisioning_degraded_total",
		Help:      "Subscriptions stored with the session id as gateway subscription id.",
	})

	// WebhookEventsTotal полученные события вебхука по типу и результату обработки.
	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vidora",
		Name:      "webhook_events_total",
		Help:      "Gateway webhook events by type and result.",
	}, []string{"type", "result"})

	// LoginLockoutsTotal блокировки входа после серии неудачных попыток.
	LoginLockoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vidora",
		Name:      "login_lockouts_total",
		Help:      "Accounts locked after repeated failed logins.",
	})

	// PendingExpiredTotal удалённые просроченные незавершённые регистрации.
	PendingExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vidora",
		Name:      "pending_signups_expired_total",
		Help:      "Abandoned checkout signups removed by the cleanup job.",
	})
)
