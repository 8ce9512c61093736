package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serene987/vidora/internal/models"
	"github.com/serene987/vidora/internal/storage"
)

func TestStorage_CreateToken(t *testing.T) {
	expires := time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)

	s, mock := newMockStorage(t)
	mock.ExpectExec(`INSERT INTO tokens`).
		WithArgs(int64(7), "hash", models.TokenTypeEmailVerification, expires).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.CreateToken(context.Background(), 7, "hash", models.TokenTypeEmailVerification, expires))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_ConsumeToken(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		setup     func(mock sqlmock.Sqlmock)
		wantID    int64
		wantFound bool
		wantErr   bool
	}{
		{
			name: "valid token",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`DELETE FROM tokens\s+WHERE token_hash = \$1 AND type = \$2 AND expires_at > \$3`).
					WithArgs("hash", models.TokenTypeEmailVerification, now).
					WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(int64(7)))
			},
			wantID:    7,
			wantFound: true,
		},
		{
			name: "expired or unknown token",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`DELETE FROM tokens`).
					WithArgs("hash", models.TokenTypeEmailVerification, now).
					WillReturnRows(sqlmock.NewRows([]string{"user_id"}))
			},
		},
		{
			name: "db error",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`DELETE FROM tokens`).
					WillReturnError(errors.New("connection reset"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStorage(t)
			tt.setup(mock)

			id, found, err := s.ConsumeToken(context.Background(), "hash", models.TokenTypeEmailVerification, now)
			if tt.wantErr {
				assert.ErrorContains(t, err, "storage.ConsumeToken")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.wantID, id)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStorage_MarkEmailVerified(t *testing.T) {
	t.Run("updated", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectExec(`UPDATE users SET email_verified = TRUE WHERE id = \$1`).
			WithArgs(int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.MarkEmailVerified(context.Background(), 7))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown user", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectExec(`UPDATE users SET email_verified`).
			WithArgs(int64(404)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, s.MarkEmailVerified(context.Background(), 404), storage.ErrNotFound)
	})
}
