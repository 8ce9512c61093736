package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/serene987/vidora/internal/models"
)

const planColumns = `id, title, description, price, billing_cycle, channel_count, is_active, gateway_price_id`

func scanPlan(row interface{ Scan(dest ...any) error }) (*models.Plan, error) {
	var (
		p       models.Plan
		priceID sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Price, &p.BillingCycle,
		&p.ChannelCount, &p.IsActive, &priceID); err != nil {
		return nil, err
	}
	p.GatewayPriceID = priceID.String
	return &p, nil
}

// ListActivePlans возвращает активные тарифы по возрастанию цены.
func (s *Storage) ListActivePlans(ctx context.Context) ([]*models.Plan, error) {
	const op = "storage.ListActivePlans"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + planColumns + ` FROM plans WHERE is_active = TRUE ORDER BY price ASC, id ASC`
	rows, err := s.conn(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// GetActivePlan возвращает активный тариф. found=false для отсутствующего или выключенного.
func (s *Storage) GetActivePlan(ctx context.Context, id int64) (*models.Plan, bool, error) {
	const op = "storage.GetActivePlan"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + planColumns + ` FROM plans WHERE id = $1 AND is_active = TRUE`
	p, err := scanPlan(s.conn(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return p, true, nil
}

// GetPlan возвращает тариф независимо от активности.
func (s *Storage) GetPlan(ctx context.Context, id int64) (*models.Plan, bool, error) {
	const op = "storage.GetPlan"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + planColumns + ` FROM plans WHERE id = $1`
	p, err := scanPlan(s.conn(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return p, true, nil
}
