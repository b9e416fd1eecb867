package emailchange

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/harborchat/harborchat/models"
	"github.com/harborchat/harborchat/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupService(t *testing.T) (*Service, *gorm.DB, *testutils.RecordingEnqueuer) {
	t.Helper()
	db := testutils.SetupTestDB(t, &models.Realm{}, &models.User{}, &EmailChangeStatus{}, &Confirmation{})
	enqueuer := &testutils.RecordingEnqueuer{}
	service := NewService(testutils.GetTestConfig(), db, enqueuer, nil)
	return service, db, enqueuer
}

func unknownKey(t *testing.T, service *Service) string {
	t.Helper()
	key, err := service.generateKey()
	require.NoError(t, err)
	return key
}

func TestService_Start(t *testing.T) {
	t.Run("creates status, confirmation and email job", func(t *testing.T) {
		service, db, enqueuer := setupService(t)
		realm := testutils.CreateTestRealm(t, db, "acme")
		user := testutils.CreateTestUser(t, db, realm, "old@x.com")

		confirmation, err := service.Start(user, "new@x.com")

		require.NoError(t, err)
		require.NotNil(t, confirmation)
		assert.Equal(t, KindEmailChange, confirmation.Kind)
		assert.Len(t, confirmation.Key, 48)
		assert.True(t, confirmation.ExpiresAt.After(time.Now()))

		var status EmailChangeStatus
		require.NoError(t, db.First(&status, confirmation.ObjectID).Error)
		assert.Equal(t, "old@x.com", status.OldEmail)
		assert.Equal(t, "new@x.com", status.NewEmail)
		assert.Equal(t, StatusOpen, status.Status)

		jobs := enqueuer.Enqueued()
		require.Len(t, jobs, 1)
		assert.Equal(t, "confirm_new_email", jobs[0].Template)
		assert.Equal(t, []string{"new@x.com"}, jobs[0].To)
		assert.Equal(t, "Verify your new email address", jobs[0].Subject)
		assert.Contains(t, jobs[0].Context["confirm_url"], confirmation.Key)
	})

	t.Run("rejects invalid address before creating anything", func(t *testing.T) {
		service, db, enqueuer := setupService(t)
		realm := testutils.CreateTestRealm(t, db, "acme")
		user := testutils.CreateTestUser(t, db, realm, "old@x.com")

		confirmation, err := service.Start(user, "hamlet-new")

		assert.Nil(t, confirmation)
		assert.ErrorIs(t, err, ErrInvalidAddress)
		assert.Empty(t, enqueuer.Enqueued())

		var count int64
		require.NoError(t, db.Model(&Confirmation{}).Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("same address is a silent no-op", func(t *testing.T) {
		service, db, enqueuer := setupService(t)
		realm := testutils.CreateTestRealm(t, db, "acme")
		user := testutils.CreateTestUser(t, db, realm, "old@x.com")

		confirmation, err := service.Start(user, "old@x.com")

		assert.NoError(t, err)
		assert.Nil(t, confirmation)
		assert.Empty(t, enqueuer.Enqueued())
	})

	t.Run("rejects when realm disables email changes", func(t *testing.T) {
		service, db, enqueuer := setupService(t)
		realm := testutils.CreateTestRealm(t, db, "acme")
		require.NoError(t, db.Model(realm).Update("email_changes_disabled", true).Error)
		user := testutils.CreateTestUser(t, db, realm, "old@x.com")

		confirmation, err := service.Start(user, "new@x.com")

		assert.Nil(t, confirmation)
		assert.ErrorIs(t, err, ErrChangesDisabled)
		assert.Empty(t, enqueuer.Enqueued())
	})

	t.Run("realm admin bypasses the disabled flag", func(t *testing.T) {
		service, db, _ := setupService(t)
		realm := testutils.CreateTestRealm(t, db, "acme")
		require.NoError(t, db.Model(realm).Update("email_changes_disabled", true).Error)
		admin := testutils.CreateTestUser(t, db, realm, "iago@x.com")
		require.NoError(t, db.Model(admin).Update("role", models.RoleAdmin).Error)
		admin.Role = models.RoleAdmin

		confirmation, err := service.Start(admin, "iago-new@x.com")

		require.NoError(t, err)
		assert.NotNil(t, confirmation)
	})

	t.Run("rejects an address owned by another account in the realm", func(t *testing.T) {
		service, db, enqueuer := setupService(t)
		realm := testutils.CreateTestRealm(t, db, "acme")
		testutils.CreateTestUser(t, db, realm, "cordelia@x.com")
		user := testutils.CreateTestUser(t, db, realm, "hamlet@x.com")

		confirmation, err := service.Start(user, "Cordelia@X.com")

		assert.Nil(t, confirmation)
		assert.ErrorIs(t, err, ErrEmailTaken)
		assert.Empty(t, enqueuer.Enqueued())
	})

	t.Run("same address in a different realm is allowed", func(t *testing.T) {
		service, db, _ := setupService(t)
		realmA := testutils.CreateTestRealm(t, db, "acme")
		realmB := testutils.CreateTestRealm(t, db, "globex")
		testutils.CreateTestUser(t, db, realmB, "shared@x.com")
		user := testutils.CreateTestUser(t, db, realmA, "hamlet@x.com")

		confirmation, err := service.Start(user, "shared@x.com")

		require.NoError(t, err)
		assert.NotNil(t, confirmation)
	})

	t.Run("new request supersedes the previous one", func(t *testing.T) {
		service, db, _ := setupService(t)
		realm := testutils.CreateTestRealm(t, db, "acme")
		user := testutils.CreateTestUser(t, db, realm, "old@x.com")

		first, err := service.Start(user, "first@x.com")
		require.NoError(t, err)
		second, err := service.Start(user, "second@x.com")
		require.NoError(t, err)

		_, err = service.Lookup(first.Key)
		assert.ErrorIs(t, err, ErrKeyExpired)

		status, err := service.Lookup(second.Key)
		require.NoError(t, err)
		assert.Equal(t, "second@x.com", status.NewEmail)
	})
}

func TestService_Confirm(t *testing.T) {
	t.Run("valid key applies the change", func(t *testing.T) {
		service, db, _ := setupService(t)
		realm := testutils.CreateTestRealm(t, db, "acme")
		user := testutils.CreateTestUser(t, db, realm, "old@x.com")

		confirmation, err := service.Start(user, "new@x.com")
		require.NoError(t, err)

		status, err := service.Confirm(confirmation.Key)

		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, status.Status)

		var updated models.User
		require.NoError(t, db.First(&updated, user.ID).Error)
		assert.Equal(t, "new@x.com", updated.Email)
	})

	t.Run("unknown key", func(t *testing.T) {
		service, _, _ := setupService(t)

		status, err := service.Confirm(unknownKey(t, service))

		assert.Nil(t, status)
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("malformed key", func(t *testing.T) {
		service, _, _ := setupService(t)

		for _, key := range []string{"invalid_key", "", "abc123", hex.EncodeToString(make([]byte, 16))} {
			status, err := service.Confirm(key)
			assert.Nil(t, status)
			assert.ErrorIs(t, err, ErrKeyMalformed, key)
		}
	})

	t.Run("expired key", func(t *testing.T) {
		service, db, _ := setupService(t)
		realm := testutils.CreateTestRealm(t, db, "acme")
		user := testutils.CreateTestUser(t, db, realm, "old@x.com")

		confirmation, err := service.Start(user, "new@x.com")
		require.NoError(t, err)

		twoDaysAgo := time.Now().Add(-48 * time.Hour)
		require.NoError(t, db.Model(confirmation).Update("expires_at", twoDaysAgo).Error)

		status, err := service.Confirm(confirmation.Key)

		assert.Nil(t, status)
		assert.ErrorIs(t, err, ErrKeyExpired)

		var unchanged models.User
		require.NoError(t, db.First(&unchanged, user.ID).Error)
		assert.Equal(t, "old@x.com", unchanged.Email)
	})

	t.Run("second redemption of the same key is rejected", func(t *testing.T) {
		service, db, _ := setupService(t)
		realm := testutils.CreateTestRealm(t, db, "acme")
		user := testutils.CreateTestUser(t, db, realm, "old@x.com")

		confirmation, err := service.Start(user, "new@x.com")
		require.NoError(t, err)

		_, err = service.Confirm(confirmation.Key)
		require.NoError(t, err)

		status, err := service.Confirm(confirmation.Key)

		assert.Nil(t, status)
		require.Error(t, err)
		// Either outcome means no double apply: the consumed token or
		// the closed change record wins the check first.
		assert.True(t, err == ErrKeyUsed || err == ErrKeyExpired)
	})

	t.Run("guarded update blocks a raced consume", func(t *testing.T) {
		service, db, _ := setupService(t)
		realm := testutils.CreateTestRealm(t, db, "acme")
		user := testutils.CreateTestUser(t, db, realm, "old@x.com")

		confirmation, err := service.Start(user, "new@x.com")
		require.NoError(t, err)

		// Simulate the loser of a race: the token was consumed after
		// findValid observed it unused.
		now := time.Now()
		res := db.Model(&Confirmation{}).
			Where("id = ? AND used = ?", confirmation.ID, false).
			Updates(map[string]any{"used": true, "used_at": now})
		require.NoError(t, res.Error)
		require.EqualValues(t, 1, res.RowsAffected)

		res = db.Model(&Confirmation{}).
			Where("id = ? AND used = ?", confirmation.ID, false).
			Updates(map[string]any{"used": true, "used_at": now})
		require.NoError(t, res.Error)
		assert.EqualValues(t, 0, res.RowsAffected)
	})
}

func TestService_Lookup(t *testing.T) {
	service, db, _ := setupService(t)
	realm := testutils.CreateTestRealm(t, db, "acme")
	user := testutils.CreateTestUser(t, db, realm, "old@x.com")

	confirmation, err := service.Start(user, "new@x.com")
	require.NoError(t, err)

	t.Run("does not consume the key", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			status, err := service.Lookup(confirmation.Key)
			require.NoError(t, err)
			assert.Equal(t, "new@x.com", status.NewEmail)
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := service.Lookup(unknownKey(t, service))
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})
}

func TestService_Unsubscribe(t *testing.T) {
	service, db, _ := setupService(t)
	realm := testutils.CreateTestRealm(t, db, "acme")
	user := testutils.CreateTestUser(t, db, realm, "hamlet@x.com")

	confirmation, err := service.CreateUnsubscribeConfirmation(user)
	require.NoError(t, err)
	assert.Equal(t, KindUnsubscribeLoginEmail, confirmation.Kind)
	assert.True(t, confirmation.ExpiresAt.IsZero())

	t.Run("disables login emails idempotently", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			updated, err := service.Unsubscribe(confirmation.Key)
			require.NoError(t, err)
			assert.False(t, updated.EnableLoginEmails)
		}

		var persisted models.User
		require.NoError(t, db.First(&persisted, user.ID).Error)
		assert.False(t, persisted.EnableLoginEmails)
	})

	t.Run("email change key is not accepted for unsubscribe", func(t *testing.T) {
		changeConfirmation, err := service.Start(user, "another@x.com")
		require.NoError(t, err)

		_, err = service.Unsubscribe(changeConfirmation.Key)
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})
}
