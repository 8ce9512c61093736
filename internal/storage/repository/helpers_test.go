package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/serene987/vidora/internal/migrations"
	"github.com/serene987/vidora/internal/models"
)

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateUser создает тестового пользователя и возвращает его ID
func (f *TestDataFactory) CreateUser(t *testing.T, email string) int64 {
	t.Helper()
	id, err := f.storage.CreateUser(context.Background(), models.User{
		FullName:      models.DefaultFullName(email),
		Email:         email,
		PasswordHash:  "hashedpassword",
		EmailVerified: true,
		Role:          models.RoleUser,
	})
	require.NoError(t, err)
	return id
}

// CreatePending создает незавершённую регистрацию
func (f *TestDataFactory) CreatePending(t *testing.T, email string, planID int64, sessionID string) int64 {
	t.Helper()
	id, err := f.storage.CreatePendingSignup(context.Background(), models.PendingSignup{
		FullName:         models.DefaultFullName(email),
		Email:            email,
		PasswordHash:     "hashedpassword",
		PlanID:           planID,
		GatewaySessionID: sessionID,
	})
	require.NoError(t, err)
	return id
}

// CreateSubscription создает подписку со статусом status
func (f *TestDataFactory) CreateSubscription(t *testing.T, userID, planID int64, status, gatewayID string) int64 {
	t.Helper()
	id, err := f.storage.CreateSubscription(context.Background(), models.Subscription{
		UserID:                userID,
		PlanID:                planID,
		Status:                status,
		GatewaySubscriptionID: gatewayID,
		StartDate:             time.Now().UTC(),
	})
	require.NoError(t, err)
	return id
}

// AgePending сдвигает время создания регистрации в прошлое
func (f *TestDataFactory) AgePending(t *testing.T, id int64, age time.Duration) {
	t.Helper()
	_, err := f.storage.DB.Exec(`UPDATE pending_users SET created_at = NOW() - make_interval(secs => $1) WHERE id = $2`,
		age.Seconds(), id)
	require.NoError(t, err)
}

// countRows возвращает число строк таблицы, удовлетворяющих условию
func countRows(t *testing.T, s *Storage, query string, args ...any) int {
	t.Helper()
	var count int
	require.NoError(t, s.DB.QueryRow(query, args...).Scan(&count))
	return count
}

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start container")

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(connStr)
	require.NoError(t, err, "failed to connect")

	root, err := filepath.Abs("../../..")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, filepath.Join(root, "migrations")))

	cleanup := func() {
		if storage != nil && storage.DB != nil {
			_ = storage.DB.Close()
		}
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return storage, cleanup
}
