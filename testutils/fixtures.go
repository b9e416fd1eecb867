package testutils

import (
	"testing"
	"time"

	"github.com/harborchat/harborchat/config"
	"github.com/harborchat/harborchat/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func GetTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name: "Harborchat",
			URL:  "http://localhost:8080",
		},
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			DSN:    ":memory:",
		},
		Notifications: config.NotificationsConfig{
			LoginEmailsEnabled:   true,
			JustCreatedThreshold: 60 * time.Second,
		},
		EmailChange: config.EmailChangeConfig{
			TokenLength: 24,
			Validity:    24 * time.Hour,
		},
		Queue: config.QueueConfig{
			Backend:    "memory",
			BufferSize: 16,
		},
	}
}

// CreateTestRealm persists a realm for tests that need tenant scoping.
func CreateTestRealm(t *testing.T, db *gorm.DB, subdomain string) *models.Realm {
	t.Helper()
	realm := &models.Realm{
		Name:      "Test Realm",
		Subdomain: subdomain,
	}
	require.NoError(t, db.Create(realm).Error)
	return realm
}

// CreateTestUser persists a user in realm with login emails enabled and
// an account age old enough to not count as just-created.
func CreateTestUser(t *testing.T, db *gorm.DB, realm *models.Realm, email string) *models.User {
	t.Helper()
	user := &models.User{
		RealmID:           realm.ID,
		Email:             email,
		FullName:          "Test User",
		Role:              models.RoleMember,
		EnableLoginEmails: true,
	}
	require.NoError(t, db.Create(user).Error)

	createdAt := time.Now().Add(-time.Hour)
	require.NoError(t, db.Model(user).Update("created_at", createdAt).Error)
	user.CreatedAt = createdAt
	return user
}
