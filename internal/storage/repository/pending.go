package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/serene987/vidora/internal/models"
)

const pendingColumns = `id, full_name, email, password_hash, plan_id, gateway_session_id, created_at`

func scanPending(row interface{ Scan(dest ...any) error }) (*models.PendingSignup, error) {
	var (
		p         models.PendingSignup
		sessionID sql.NullString
	)
	if err := row.Scan(&p.ID, &p.FullName, &p.Email, &p.PasswordHash, &p.PlanID,
		&sessionID, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.GatewaySessionID = sessionID.String
	return &p, nil
}

// CreatePendingSignup сохраняет незавершённую регистрацию и возвращает её ID.
func (s *Storage) CreatePendingSignup(ctx context.Context, p models.PendingSignup) (int64, error) {
	const op = "storage.CreatePendingSignup"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO pending_users (full_name, email, password_hash, plan_id, gateway_session_id)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING id`
	var id int64
	if err := s.conn(ctx).QueryRowContext(ctx, query,
		p.FullName, p.Email, p.PasswordHash, p.PlanID, nullString(p.GatewaySessionID)).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return id, nil
}

// GetPendingSignupBySessionID ищет регистрацию по идентификатору сессии оплаты.
func (s *Storage) GetPendingSignupBySessionID(ctx context.Context, sessionID string) (*models.PendingSignup, bool, error) {
	const op = "storage.GetPendingSignupBySessionID"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + pendingColumns + ` FROM pending_users WHERE gateway_session_id = $1`
	p, err := scanPending(s.conn(ctx).QueryRowContext(ctx, query, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return p, true, nil
}

// GetPendingSignupByID ищет регистрацию по её ID.
func (s *Storage) GetPendingSignupByID(ctx context.Context, id int64) (*models.PendingSignup, bool, error) {
	const op = "storage.GetPendingSignupByID"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + pendingColumns + ` FROM pending_users WHERE id = $1`
	p, err := scanPending(s.conn(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return p, true, nil
}

// GetLatestPendingSignupByEmail возвращает самую свежую регистрацию для email.
func (s *Storage) GetLatestPendingSignupByEmail(ctx context.Context, email string) (*models.PendingSignup, bool, error) {
	const op = "storage.GetLatestPendingSignupByEmail"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + pendingColumns + ` FROM pending_users
			  WHERE email = $1
			  ORDER BY created_at DESC, id DESC
			  LIMIT 1`
	p, err := scanPending(s.conn(ctx).QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return p, true, nil
}

// UpdatePendingSessionID привязывает регистрацию к новой сессии оплаты.
// Срок жизни регистрации отсчитывается заново.
func (s *Storage) UpdatePendingSessionID(ctx context.Context, id int64, sessionID string) error {
	const op = "storage.UpdatePendingSessionID"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE pending_users SET gateway_session_id = $1, created_at = NOW() WHERE id = $2`
	if _, err := s.conn(ctx).ExecContext(ctx, query, sessionID, id); err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	return nil
}

// DeletePendingSignup удаляет регистрацию по ID.
func (s *Storage) DeletePendingSignup(ctx context.Context, id int64) error {
	const op = "storage.DeletePendingSignup"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if _, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM pending_users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeletePendingSignupBySessionID удаляет регистрацию отменённой сессии оплаты.
func (s *Storage) DeletePendingSignupBySessionID(ctx context.Context, sessionID string) (int64, error) {
	const op = "storage.DeletePendingSignupBySessionID"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM pending_users WHERE gateway_session_id = $1`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return affected, nil
}

// DeletePendingSignupsByEmail удаляет все регистрации для email.
func (s *Storage) DeletePendingSignupsByEmail(ctx context.Context, email string) (int64, error) {
	const op = "storage.DeletePendingSignupsByEmail"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM pending_users WHERE email = $1`, email)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return affected, nil
}

// DeleteExpiredPendingSignups удаляет регистрации, начатые через оплату и
// созданные раньше olderThan, и возвращает удалённые записи.
func (s *Storage) DeleteExpiredPendingSignups(ctx context.Context, olderThan time.Time) ([]*models.PendingSignup, error) {
	const op = "storage.DeleteExpiredPendingSignups"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM pending_users
			  WHERE gateway_session_id IS NOT NULL AND created_at < $1
			  RETURNING ` + pendingColumns
	rows, err := s.conn(ctx).QueryContext(ctx, query, olderThan)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.PendingSignup
	for rows.Next() {
		p, err := scanPending(rows)
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
