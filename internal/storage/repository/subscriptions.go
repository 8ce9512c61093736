package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/serene987/vidora/internal/models"
)

const subscriptionColumns = `s.id, s.user_id, s.plan_id, s.status, s.gateway_subscription_id,
	s.start_date, s.end_date, s.next_billing_date, s.degraded`

const subscriptionWithPlanColumns = subscriptionColumns + `,
	p.id, p.title, p.description, p.price, p.billing_cycle, p.channel_count, p.is_active, p.gateway_price_id`

func scanSubscription(row interface{ Scan(dest ...any) error }) (*models.Subscription, error) {
	var (
		sub         models.Subscription
		gatewayID   sql.NullString
		endDate     sql.NullTime
		nextBilling sql.NullTime
	)
	if err := row.Scan(&sub.ID, &sub.UserID, &sub.PlanID, &sub.Status, &gatewayID,
		&sub.StartDate, &endDate, &nextBilling, &sub.Degraded); err != nil {
		return nil, err
	}
	sub.GatewaySubscriptionID = gatewayID.String
	sub.EndDate = nullTime(endDate)
	sub.NextBillingDate = nullTime(nextBilling)
	return &sub, nil
}

func scanSubscriptionWithPlan(row interface{ Scan(dest ...any) error }) (*models.SubscriptionWithPlan, error) {
	var (
		sw          models.SubscriptionWithPlan
		gatewayID   sql.NullString
		endDate     sql.NullTime
		nextBilling sql.NullTime
		priceID     sql.NullString
	)
	if err := row.Scan(&sw.ID, &sw.UserID, &sw.PlanID, &sw.Status, &gatewayID,
		&sw.StartDate, &endDate, &nextBilling, &sw.Degraded,
		&sw.Plan.ID, &sw.Plan.Title, &sw.Plan.Description, &sw.Plan.Price, &sw.Plan.BillingCycle,
		&sw.Plan.ChannelCount, &sw.Plan.IsActive, &priceID); err != nil {
		return nil, err
	}
	sw.GatewaySubscriptionID = gatewayID.String
	sw.EndDate = nullTime(endDate)
	sw.NextBillingDate = nullTime(nextBilling)
	sw.Plan.GatewayPriceID = priceID.String
	return &sw, nil
}

// FindSubscriptionByGatewayIDs ищет подписку, чей идентификатор в шлюзе
// совпадает с одним из переданных. Пустые значения не участвуют в поиске.
func (s *Storage) FindSubscriptionByGatewayIDs(ctx context.Context, primary, fallback string) (*models.Subscription, bool, error) {
	const op = "storage.FindSubscriptionByGatewayIDs"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions s
			  WHERE (s.gateway_subscription_id = $1 AND $1 <> '')
			     OR (s.gateway_subscription_id = $2 AND $2 <> '')
			  ORDER BY s.id
			  LIMIT 1`
	sub, err := scanSubscription(s.conn(ctx).QueryRowContext(ctx, query, primary, fallback))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return sub, true, nil
}

// CreateSubscription сохраняет подписку и возвращает её ID.
// Повторный идентификатор шлюза возвращается как storage.ErrDuplicate.
func (s *Storage) CreateSubscription(ctx context.Context, sub models.Subscription) (int64, error) {
	const op = "storage.CreateSubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var nextBilling sql.NullTime
	if sub.NextBillingDate != nil {
		nextBilling = sql.NullTime{Time: *sub.NextBillingDate, Valid: true}
	}
	query := `INSERT INTO subscriptions (user_id, plan_id, status, gateway_subscription_id, start_date, next_billing_date, degraded)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING id`
	var id int64
	if err := s.conn(ctx).QueryRowContext(ctx, query,
		sub.UserID, sub.PlanID, sub.Status, sub.GatewaySubscriptionID,
		sub.StartDate, nextBilling, sub.Degraded).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return id, nil
}

// GetSubscription возвращает подписку по ID.
func (s *Storage) GetSubscription(ctx context.Context, id int64) (*models.Subscription, bool, error) {
	const op = "storage.GetSubscription"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions s WHERE s.id = $1`
	sub, err := scanSubscription(s.conn(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return sub, true, nil
}

// GetActiveSubscriptionWithPlan возвращает последнюю активную или пробную подписку пользователя.
func (s *Storage) GetActiveSubscriptionWithPlan(ctx context.Context, userID int64) (*models.SubscriptionWithPlan, bool, error) {
	const op = "storage.GetActiveSubscriptionWithPlan"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionWithPlanColumns + `
			  FROM subscriptions s
			  JOIN plans p ON p.id = s.plan_id
			  WHERE s.user_id = $1 AND s.status IN ('active', 'trialing')
			  ORDER BY s.start_date DESC, s.id DESC
			  LIMIT 1`
	sw, err := scanSubscriptionWithPlan(s.conn(ctx).QueryRowContext(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return sw, true, nil
}

// GetLatestSubscriptionWithPlan возвращает последнюю подписку пользователя в любом статусе.
func (s *Storage) GetLatestSubscriptionWithPlan(ctx context.Context, userID int64) (*models.SubscriptionWithPlan, bool, error) {
	const op = "storage.GetLatestSubscriptionWithPlan"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionWithPlanColumns + `
			  FROM subscriptions s
			  JOIN plans p ON p.id = s.plan_id
			  WHERE s.user_id = $1
			  ORDER BY s.start_date DESC, s.id DESC
			  LIMIT 1`
	sw, err := scanSubscriptionWithPlan(s.conn(ctx).QueryRowContext(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return sw, true, nil
}

// ListSubscriptionsWithPlan возвращает все подписки пользователя, новые первыми.
func (s *Storage) ListSubscriptionsWithPlan(ctx context.Context, userID int64) ([]*models.SubscriptionWithPlan, error) {
	const op = "storage.ListSubscriptionsWithPlan"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionWithPlanColumns + `
			  FROM subscriptions s
			  JOIN plans p ON p.id = s.plan_id
			  WHERE s.user_id = $1
			  ORDER BY s.start_date DESC, s.id DESC`
	rows, err := s.conn(ctx).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.SubscriptionWithPlan
	for rows.Next() {
		sw, err := scanSubscriptionWithPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, sw)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CancelSubscription переводит подписку в статус cancelled с датой окончания endDate.
// Возвращает false, если подписка не найдена или уже отменена.
func (s *Storage) CancelSubscription(ctx context.Context, id int64, endDate time.Time) (bool, error) {
	const op = "storage.CancelSubscription"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET status = 'cancelled', end_date = $1, next_billing_date = NULL
			  WHERE id = $2 AND status <> 'cancelled'`
	res, err := s.conn(ctx).ExecContext(ctx, query, endDate, id)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return affected > 0, nil
}

// UpdateSubscriptionStatusByGatewayID меняет статус подписки по идентификатору шлюза.
// Возвращает количество изменённых строк, 0 для неизвестного идентификатора.
func (s *Storage) UpdateSubscriptionStatusByGatewayID(ctx context.Context, gatewayID, status string) (int64, error) {
	const op = "storage.UpdateSubscriptionStatusByGatewayID"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET status = $1,
			      end_date = CASE WHEN $1 = 'cancelled' THEN COALESCE(end_date, NOW()) ELSE NULL END
			  WHERE gateway_subscription_id = $2`
	res, err := s.conn(ctx).ExecContext(ctx, query, status, gatewayID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return affected, nil
}

// HasPaidSubscription сообщает, есть ли у пользователя активная подписка.
func (s *Storage) HasPaidSubscription(ctx context.Context, userID int64) (bool, error) {
	const op = "storage.HasPaidSubscription"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM subscriptions WHERE user_id = $1 AND status = 'active')`
	if err := s.conn(ctx).QueryRowContext(ctx, query, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}
