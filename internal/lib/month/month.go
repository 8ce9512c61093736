// Package month считает календарные даты списаний по подписке.
package month

import (
	"time"

	"github.com/serene987/vidora/internal/models"
)

// AddMonths прибавляет n месяцев к дате. Если в целевом месяце нет такого дня,
// берётся последний день месяца (31 января + 1 месяц = 29 февраля в високосный год).
func AddMonths(t time.Time, n int) time.Time {
	firstOfTarget := time.Date(t.Year(), t.Month()+time.Month(n), 1,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()

	day := t.Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// NextBillingDate возвращает дату следующего списания для периода оплаты тарифа.
// Неизвестный период считается помесячным.
func NextBillingDate(start time.Time, billingCycle string) time.Time {
	if billingCycle == models.BillingYearly {
		return AddMonths(start, 12)
	}
	return AddMonths(start, 1)
}
