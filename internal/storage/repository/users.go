package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/serene987/vidora/internal/models"
	"github.com/serene987/vidora/internal/storage"
)

const userColumns = `id, full_name, email, password_hash, email_verified, role,
	gateway_customer_id, failed_attempts, lock_until, created_at`

func scanUser(row interface{ Scan(dest ...any) error }) (*models.User, error) {
	var (
		u          models.User
		customerID sql.NullString
		lockUntil  sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &u.EmailVerified,
		&u.Role, &customerID, &u.FailedAttempts, &lockUntil, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.GatewayCustomerID = customerID.String
	u.LockUntil = nullTime(lockUntil)
	return &u, nil
}

// CreateUser сохраняет нового пользователя и возвращает его ID.
// Занятый email возвращается как storage.ErrDuplicate.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (int64, error) {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (full_name, email, password_hash, email_verified, role, gateway_customer_id)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id`
	var id int64
	if err := s.conn(ctx).QueryRowContext(ctx, query,
		user.FullName, user.Email, user.PasswordHash, user.EmailVerified, user.Role,
		nullString(user.GatewayCustomerID)).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return id, nil
}

// GetUserByID возвращает пользователя по ID. found=false, если пользователя нет.
func (s *Storage) GetUserByID(ctx context.Context, id int64) (*models.User, bool, error) {
	const op = "storage.GetUserByID"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(s.conn(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return u, true, nil
}

// GetUserByEmail возвращает пользователя по email. found=false, если пользователя нет.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, bool, error) {
	const op = "storage.GetUserByEmail"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := scanUser(s.conn(ctx).QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return u, true, nil
}

// SetGatewayCustomerID сохраняет идентификатор клиента платёжного шлюза.
func (s *Storage) SetGatewayCustomerID(ctx context.Context, userID int64, customerID string) error {
	const op = "storage.SetGatewayCustomerID"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET gateway_customer_id = $1 WHERE id = $2`
	if _, err := s.conn(ctx).ExecContext(ctx, query, customerID, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RecordFailedLogin атомарно увеличивает счётчик неудачных попыток и возвращает
// его новое значение. Когда счётчик достигает maxAttempts, вход блокируется до lockUntil.
func (s *Storage) RecordFailedLogin(ctx context.Context, userID int64, maxAttempts int, lockUntil time.Time) (int, error) {
	const op = "storage.RecordFailedLogin"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET failed_attempts = failed_attempts + 1,
			      lock_until = CASE WHEN failed_attempts + 1 >= $2 THEN $3 ELSE lock_until END
			  WHERE id = $1
			  RETURNING failed_attempts`
	var attempts int
	err := s.conn(ctx).QueryRowContext(ctx, query, userID, maxAttempts, lockUntil).Scan(&attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s: user %d: %w", op, userID, storage.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return attempts, nil
}

// ResetLoginFailures обнуляет счётчик попыток и снимает блокировку.
func (s *Storage) ResetLoginFailures(ctx context.Context, userID int64) error {
	const op = "storage.ResetLoginFailures"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET failed_attempts = 0, lock_until = NULL WHERE id = $1`
	if _, err := s.conn(ctx).ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdatePasswordHash меняет хэш пароля пользователя.
func (s *Storage) UpdatePasswordHash(ctx context.Context, userID int64, hash string) error {
	const op = "storage.UpdatePasswordHash"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET password_hash = $1 WHERE id = $2`
	if _, err := s.conn(ctx).ExecContext(ctx, query, hash, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// MarkEmailVerified отмечает почту пользователя подтверждённой.
func (s *Storage) MarkEmailVerified(ctx context.Context, userID int64) error {
	const op = "storage.MarkEmailVerified"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.conn(ctx).ExecContext(ctx, `UPDATE users SET email_verified = TRUE WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: user %d: %w", op, userID, storage.ErrNotFound)
	}
	return nil
}

// DeleteUser удаляет пользователя; подписки и токены удаляются каскадно.
// Возвращает количество удалённых строк.
func (s *Storage) DeleteUser(ctx context.Context, userID int64) (int64, error) {
	const op = "storage.DeleteUser"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return affected, nil
}
