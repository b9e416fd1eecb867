package emailchange

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/harborchat/harborchat/config"
	"github.com/harborchat/harborchat/models"
	"github.com/harborchat/harborchat/services/logging"
	"github.com/harborchat/harborchat/services/queue"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrInvalidAddress  = errors.New("invalid email address")
	ErrChangesDisabled = errors.New("email address changes are disabled in this organization")
	ErrEmailTaken      = errors.New("email address already has an account")
	ErrKeyMalformed    = errors.New("confirmation key is malformed")
	ErrKeyNotFound     = errors.New("confirmation key not found")
	ErrKeyExpired      = errors.New("confirmation key has expired or been deactivated")
	ErrKeyUsed         = errors.New("confirmation key has already been used")
)

const confirmEmailSubject = "Verify your new email address"

type Service struct {
	config   *config.Config
	db       *gorm.DB
	enqueuer queue.Enqueuer
	logger   *logging.Service
}

func NewService(cfg *config.Config, db *gorm.DB, enqueuer queue.Enqueuer, logger *logging.Service) *Service {
	return &Service{
		config:   cfg,
		db:       db,
		enqueuer: enqueuer,
		logger:   logger,
	}
}

// Start begins the email-change process for user. All preconditions are
// checked before anything is persisted. A nil, nil return means the
// requested address equals the current one and nothing was done.
func (s *Service) Start(user *models.User, newEmail string) (*Confirmation, error) {
	newEmail = strings.TrimSpace(newEmail)

	if _, err := netmail.ParseAddress(newEmail); err != nil {
		return nil, ErrInvalidAddress
	}

	if strings.EqualFold(newEmail, user.Email) {
		return nil, nil
	}

	var realm models.Realm
	if err := s.db.First(&realm, user.RealmID).Error; err != nil {
		return nil, fmt.Errorf("failed to load realm: %w", err)
	}

	// Realm admins may change their address even when the realm-wide
	// setting forbids it.
	if realm.EmailChangesDisabled && !user.IsAdmin() {
		s.logger.Warn("email change rejected: disabled for realm",
			zap.Uint("user_id", user.ID),
			zap.Uint("realm_id", realm.ID))
		return nil, ErrChangesDisabled
	}

	var count int64
	err := s.db.Model(&models.User{}).
		Where("realm_id = ? AND LOWER(email) = LOWER(?) AND id <> ?", user.RealmID, newEmail, user.ID).
		Count(&count).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check email availability: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	if err := s.db.Model(&EmailChangeStatus{}).
		Where("user_id = ? AND status = ?", user.ID, StatusOpen).
		Update("status", StatusSuperseded).Error; err != nil {
		return nil, fmt.Errorf("failed to supersede previous requests: %w", err)
	}

	status := &EmailChangeStatus{
		UserID:   user.ID,
		RealmID:  user.RealmID,
		OldEmail: user.Email,
		NewEmail: newEmail,
		Status:   StatusOpen,
	}
	if err := s.db.Create(status).Error; err != nil {
		return nil, fmt.Errorf("failed to create email change record: %w", err)
	}

	key, err := s.generateKey()
	if err != nil {
		return nil, err
	}

	confirmation := &Confirmation{
		Key:       key,
		Kind:      KindEmailChange,
		ObjectID:  status.ID,
		ExpiresAt: time.Now().Add(s.config.EmailChange.Validity),
	}
	if err := s.db.Create(confirmation).Error; err != nil {
		return nil, fmt.Errorf("failed to create confirmation: %w", err)
	}

	job := queue.NewEmailJob(
		"confirm_new_email",
		[]string{newEmail},
		fmt.Sprintf("%s Account Security", s.config.App.Name),
		confirmEmailSubject,
		map[string]any{
			"old_email":   user.Email,
			"new_email":   newEmail,
			"full_name":   user.FullName,
			"realm_name":  realm.Name,
			"confirm_url": s.ConfirmationURL(key),
		},
	)
	if err := s.enqueuer.Enqueue(job); err != nil {
		s.logger.Error("failed to enqueue confirmation email",
			zap.Error(err),
			zap.Uint("user_id", user.ID))
	}

	s.logger.Info("email change started",
		zap.Uint("user_id", user.ID),
		zap.String("old_email", user.Email),
		zap.Time("expires_at", confirmation.ExpiresAt))

	return confirmation, nil
}

// Lookup validates key without consuming it. Used by the confirmation
// link handler before handing off to re-authentication.
func (s *Service) Lookup(key string) (*EmailChangeStatus, error) {
	confirmation, err := s.findValid(key, KindEmailChange)
	if err != nil {
		return nil, err
	}
	return s.loadOpenStatus(confirmation)
}

// Confirm consumes key and applies the pending change to the user
// record. The token is consumed with a guarded update so that
// concurrent redemptions of the same key cannot both apply it.
func (s *Service) Confirm(key string) (*EmailChangeStatus, error) {
	confirmation, err := s.findValid(key, KindEmailChange)
	if err != nil {
		return nil, err
	}

	status, err := s.loadOpenStatus(confirmation)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	res := s.db.Model(&Confirmation{}).
		Where("id = ? AND used = ?", confirmation.ID, false).
		Updates(map[string]any{"used": true, "used_at": now})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to consume confirmation: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrKeyUsed
	}

	if err := s.db.Model(&models.User{}).
		Where("id = ?", status.UserID).
		Update("email", status.NewEmail).Error; err != nil {
		return nil, fmt.Errorf("failed to apply email change: %w", err)
	}

	status.Status = StatusCompleted
	if err := s.db.Model(&EmailChangeStatus{}).
		Where("id = ?", status.ID).
		Update("status", StatusCompleted).Error; err != nil {
		return nil, fmt.Errorf("failed to close email change record: %w", err)
	}

	s.logger.Info("email change confirmed",
		zap.Uint("user_id", status.UserID),
		zap.String("old_email", status.OldEmail),
		zap.String("new_email", status.NewEmail))

	return status, nil
}

// CreateUnsubscribeConfirmation issues a non-expiring key that lets the
// recipient of a login notification turn those emails off in one click.
func (s *Service) CreateUnsubscribeConfirmation(user *models.User) (*Confirmation, error) {
	key, err := s.generateKey()
	if err != nil {
		return nil, err
	}

	confirmation := &Confirmation{
		Key:      key,
		Kind:     KindUnsubscribeLoginEmail,
		ObjectID: user.ID,
	}
	if err := s.db.Create(confirmation).Error; err != nil {
		return nil, fmt.Errorf("failed to create unsubscribe confirmation: %w", err)
	}
	return confirmation, nil
}

// Unsubscribe disables login emails for the key's owner. Idempotent:
// the key stays valid so a repeated click renders the same page.
func (s *Service) Unsubscribe(key string) (*models.User, error) {
	confirmation, err := s.findValid(key, KindUnsubscribeLoginEmail)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.First(&user, confirmation.ObjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := s.db.Model(&user).Update("enable_login_emails", false).Error; err != nil {
		return nil, fmt.Errorf("failed to disable login emails: %w", err)
	}
	user.EnableLoginEmails = false

	s.logger.Info("login emails disabled via unsubscribe link", zap.Uint("user_id", user.ID))
	return &user, nil
}

func (s *Service) ConfirmationURL(key string) string {
	return fmt.Sprintf("%s/accounts/confirm_new_email/%s", s.config.App.URL, key)
}

func (s *Service) UnsubscribeURL(key string) string {
	return fmt.Sprintf("%s/accounts/unsubscribe/login/%s", s.config.App.URL, key)
}

func (s *Service) findValid(key, kind string) (*Confirmation, error) {
	if !s.wellFormedKey(key) {
		return nil, ErrKeyMalformed
	}

	var confirmation Confirmation
	err := s.db.Where("key = ? AND kind = ?", key, kind).First(&confirmation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to look up confirmation: %w", err)
	}

	if !confirmation.ExpiresAt.IsZero() && time.Now().After(confirmation.ExpiresAt) {
		return nil, ErrKeyExpired
	}

	if confirmation.Used {
		return nil, ErrKeyUsed
	}

	return &confirmation, nil
}

func (s *Service) loadOpenStatus(confirmation *Confirmation) (*EmailChangeStatus, error) {
	var status EmailChangeStatus
	if err := s.db.First(&status, confirmation.ObjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to load email change record: %w", err)
	}

	// A superseded or completed record means a newer request or a prior
	// redemption deactivated this link.
	if status.Status != StatusOpen {
		return nil, ErrKeyExpired
	}

	return &status, nil
}

func (s *Service) generateKey() (string, error) {
	length := s.config.EmailChange.TokenLength
	if length <= 0 {
		length = 24
	}
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate confirmation key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

func (s *Service) wellFormedKey(key string) bool {
	length := s.config.EmailChange.TokenLength
	if length <= 0 {
		length = 24
	}
	if len(key) != length*2 {
		return false
	}
	_, err := hex.DecodeString(key)
	return err == nil
}
