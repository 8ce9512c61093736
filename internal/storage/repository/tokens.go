package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateToken сохраняет хэш одноразового токена пользователя.
func (s *Storage) CreateToken(ctx context.Context, userID int64, tokenHash, tokenType string, expiresAt time.Time) error {
	const op = "storage.CreateToken"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO tokens (user_id, token_hash, type, expires_at) VALUES ($1, $2, $3, $4)`
	if _, err := s.conn(ctx).ExecContext(ctx, query, userID, tokenHash, tokenType, expiresAt); err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	return nil
}

// ConsumeToken удаляет действующий на момент now токен и возвращает его
// владельца. Просроченный или уже использованный токен даёт found=false.
func (s *Storage) ConsumeToken(ctx context.Context, tokenHash, tokenType string, now time.Time) (int64, bool, error) {
	const op = "storage.ConsumeToken"
	select {
	case <-ctx.Done():
		return 0, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM tokens
			  WHERE token_hash = $1 AND type = $2 AND expires_at > $3
			  RETURNING user_id`
	var userID int64
	err := s.conn(ctx).QueryRowContext(ctx, query, tokenHash, tokenType, now).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}
	return userID, true, nil
}
