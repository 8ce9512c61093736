package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serene987/vidora/internal/models"
	"github.com/serene987/vidora/internal/storage"
)

func TestStorage_UserUniqueEmail(t *testing.T) {
	s, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	factory := NewTestDataFactory(s)
	factory.CreateUser(t, "a@x.com")

	_, err := s.CreateUser(ctx, models.User{
		FullName: "a", Email: "a@x.com", PasswordHash: "h", Role: models.RoleUser,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrDuplicate)
	assert.Equal(t, 1, countRows(t, s, `SELECT COUNT(*) FROM users WHERE email = $1`, "a@x.com"))
}

func TestStorage_GetUserByEmail_Integration(t *testing.T) {
	s, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	id := NewTestDataFactory(s).CreateUser(t, "b@x.com")

	lock := time.Now().Add(time.Minute).UTC().Truncate(time.Microsecond)
	for i := 1; i <= 5; i++ {
		attempts, err := s.RecordFailedLogin(ctx, id, 5, lock)
		require.NoError(t, err)
		assert.Equal(t, i, attempts)
	}
	require.NoError(t, s.SetGatewayCustomerID(ctx, id, "cus_1"))

	u, found, err := s.GetUserByEmail(ctx, "b@x.com")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 5, u.FailedAttempts)
	assert.Equal(t, "cus_1", u.GatewayCustomerID)
	assert.True(t, u.EmailVerified)
	require.NotNil(t, u.LockUntil)
	assert.True(t, u.LockUntil.Equal(lock))

	require.NoError(t, s.ResetLoginFailures(ctx, id))
	u, _, err = s.GetUserByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, u.FailedAttempts)
	assert.Nil(t, u.LockUntil)

	_, found, err = s.GetUserByEmail(ctx, "missing@x.com")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStorage_RecordFailedLogin_Concurrent(t *testing.T) {
	s, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	id := NewTestDataFactory(s).CreateUser(t, "race@x.com")
	lock := time.Now().Add(time.Minute).UTC()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.RecordFailedLogin(ctx, id, 5, lock)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	u, _, err := s.GetUserByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 8, u.FailedAttempts)
	require.NotNil(t, u.LockUntil)

	_, err = s.RecordFailedLogin(ctx, 999999, 5, lock)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStorage_SubscriptionGatewayIDUnique(t *testing.T) {
	s, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	factory := NewTestDataFactory(s)
	userID := factory.CreateUser(t, "c@x.com")
	factory.CreateSubscription(t, userID, 2, models.StatusActive, "sub_1")

	_, err := s.CreateSubscription(ctx, models.Subscription{
		UserID: userID, PlanID: 2, Status: models.StatusActive, GatewaySubscriptionID: "sub_1", StartDate: time.Now(),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	sub, found, err := s.FindSubscriptionByGatewayIDs(ctx, "", "sub_1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, userID, sub.UserID)

	_, found, err = s.FindSubscriptionByGatewayIDs(ctx, "", "")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStorage_UpdateSubscriptionStatusByGatewayID(t *testing.T) {
	s, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	factory := NewTestDataFactory(s)
	userID := factory.CreateUser(t, "d@x.com")
	target := factory.CreateSubscription(t, userID, 2, models.StatusActive, "sub_target")
	other := factory.CreateSubscription(t, userID, 1, models.StatusActive, "sub_other")

	n, err := s.UpdateSubscriptionStatusByGatewayID(ctx, "sub_target", models.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, _, err := s.GetSubscription(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
	assert.NotNil(t, got.EndDate)

	untouched, _, err := s.GetSubscription(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, untouched.Status)
	assert.Nil(t, untouched.EndDate)

	n, err = s.UpdateSubscriptionStatusByGatewayID(ctx, "sub_unknown", models.StatusActive)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStorage_ActiveSubscriptionWithPlan(t *testing.T) {
	s, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	factory := NewTestDataFactory(s)
	userID := factory.CreateUser(t, "e@x.com")
	subID := factory.CreateSubscription(t, userID, 2, models.StatusActive, "sub_e")

	sw, found, err := s.GetActiveSubscriptionWithPlan(ctx, userID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, subID, sw.ID)
	assert.Equal(t, "Standard", sw.Plan.Title)
	assert.InDelta(t, 499.0, sw.Plan.Price, 0.001)

	paid, err := s.HasPaidSubscription(ctx, userID)
	require.NoError(t, err)
	assert.True(t, paid)

	ok, err := s.CancelSubscription(ctx, subID, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	_, found, err = s.GetActiveSubscriptionWithPlan(ctx, userID)
	require.NoError(t, err)
	assert.False(t, found)

	latest, found, err := s.GetLatestSubscriptionWithPlan(ctx, userID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.StatusCancelled, latest.Status)
}

func TestStorage_DeleteExpiredPendingSignups_Integration(t *testing.T) {
	s, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	factory := NewTestDataFactory(s)
	stale := factory.CreatePending(t, "old@x.com", 1, "cs_old")
	factory.AgePending(t, stale, 48*time.Hour)
	factory.CreatePending(t, "fresh@x.com", 2, "cs_fresh")
	cancelled := factory.CreatePending(t, "cancel@x.com", 2, "")
	factory.AgePending(t, cancelled, 48*time.Hour)

	removed, err := s.DeleteExpiredPendingSignups(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Equal(t, "old@x.com", removed[0].Email)

	assert.Equal(t, 2, countRows(t, s, `SELECT COUNT(*) FROM pending_users`))
}

func TestStorage_PendingLookups(t *testing.T) {
	s, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	factory := NewTestDataFactory(s)
	first := factory.CreatePending(t, "p@x.com", 1, "cs_1")
	factory.AgePending(t, first, time.Hour)
	second := factory.CreatePending(t, "p@x.com", 3, "cs_2")

	latest, found, err := s.GetLatestPendingSignupByEmail(ctx, "p@x.com")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, second, latest.ID)

	_, err = s.CreatePendingSignup(ctx, models.PendingSignup{
		FullName: "p", Email: "q@x.com", PasswordHash: "h", PlanID: 1, GatewaySessionID: "cs_1",
	})
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	require.NoError(t, s.UpdatePendingSessionID(ctx, second, "cs_3"))
	p, found, err := s.GetPendingSignupBySessionID(ctx, "cs_3")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(3), p.PlanID)

	n, err := s.DeletePendingSignupsByEmail(ctx, "p@x.com")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestStorage_DeleteUserCascades(t *testing.T) {
	s, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	factory := NewTestDataFactory(s)
	userID := factory.CreateUser(t, "f@x.com")
	factory.CreateSubscription(t, userID, 1, models.StatusActive, "sub_f")

	require.NoError(t, s.CreateToken(ctx, userID, "hash_f", models.TokenTypeEmailVerification, time.Now().Add(time.Hour)))

	n, err := s.DeleteUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Zero(t, countRows(t, s, `SELECT COUNT(*) FROM subscriptions WHERE user_id = $1`, userID))
	assert.Zero(t, countRows(t, s, `SELECT COUNT(*) FROM tokens WHERE user_id = $1`, userID))
}

func TestStorage_VerificationTokenLifecycle(t *testing.T) {
	s, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()

	factory := NewTestDataFactory(s)
	userID, err := s.CreateUser(ctx, models.User{
		FullName: "h", Email: "h@x.com", PasswordHash: "h", Role: models.RoleUser,
	})
	require.NoError(t, err)
	otherID := factory.CreateUser(t, "i@x.com")

	require.NoError(t, s.CreateToken(ctx, userID, "fresh", models.TokenTypeEmailVerification, now.Add(time.Hour)))
	require.NoError(t, s.CreateToken(ctx, otherID, "stale", models.TokenTypeEmailVerification, now.Add(-time.Minute)))

	err = s.CreateToken(ctx, otherID, "fresh", models.TokenTypeEmailVerification, now.Add(time.Hour))
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	_, found, err := s.ConsumeToken(ctx, "stale", models.TokenTypeEmailVerification, now)
	require.NoError(t, err)
	assert.False(t, found, "expired token must not be accepted")

	id, found, err := s.ConsumeToken(ctx, "fresh", models.TokenTypeEmailVerification, now)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, userID, id)
	require.NoError(t, s.MarkEmailVerified(ctx, id))

	_, found, err = s.ConsumeToken(ctx, "fresh", models.TokenTypeEmailVerification, now)
	require.NoError(t, err)
	assert.False(t, found, "token is single use")

	user, _, err := s.GetUserByID(ctx, userID)
	require.NoError(t, err)
	assert.True(t, user.EmailVerified)

	assert.ErrorIs(t, s.MarkEmailVerified(ctx, 99999), storage.ErrNotFound)
}

func TestStorage_DegradedSubscriptionPersists(t *testing.T) {
	s, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	factory := NewTestDataFactory(s)
	userID := factory.CreateUser(t, "j@x.com")

	_, err := s.CreateSubscription(ctx, models.Subscription{
		UserID: userID, PlanID: 2, Status: models.StatusActive,
		GatewaySubscriptionID: "cs_fallback", StartDate: time.Now(), Degraded: true,
	})
	require.NoError(t, err)

	sub, found, err := s.GetActiveSubscriptionWithPlan(ctx, userID)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, sub.Degraded)
	assert.False(t, sub.HasGatewaySubscription())

	other := factory.CreateUser(t, "k@x.com")
	factory.CreateSubscription(t, other, 2, models.StatusActive, "sub_k")
	plain, found, err := s.FindSubscriptionByGatewayIDs(ctx, "", "sub_k")
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, plain.Degraded)
	assert.True(t, plain.HasGatewaySubscription())
}

func TestStorage_WithinTx_Rollback(t *testing.T) {
	s, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	err := s.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.CreateUser(ctx, models.User{FullName: "g", Email: "g@x.com", PasswordHash: "h", Role: models.RoleUser}); err != nil {
			return err
		}
		_, err := s.CreateUser(ctx, models.User{FullName: "g", Email: "g@x.com", PasswordHash: "h", Role: models.RoleUser})
		return err
	})
	assert.ErrorIs(t, err, storage.ErrDuplicate)
	assert.Zero(t, countRows(t, s, `SELECT COUNT(*) FROM users WHERE email = $1`, "g@x.com"))
}
