package emailchange

import (
	"time"

	"gorm.io/gorm"
)

const (
	StatusOpen       = "open"
	StatusCompleted  = "completed"
	StatusSuperseded = "superseded"
)

const (
	KindEmailChange           = "email_change"
	KindUnsubscribeLoginEmail = "unsubscribe_login_emails"
)

// EmailChangeStatus is the pending record created when a user asks to
// change their address. At most one open record per user; newer
// requests supersede older ones.
type EmailChangeStatus struct {
	gorm.Model
	UserID   uint   `json:"user_id" gorm:"index;not null"`
	RealmID  uint   `json:"realm_id" gorm:"index;not null"`
	OldEmail string `json:"old_email" gorm:"not null"`
	NewEmail string `json:"new_email" gorm:"not null"`
	Status   string `json:"status" gorm:"default:open"`
}

func (EmailChangeStatus) TableName() string {
	return "email_change_statuses"
}

// Confirmation is a single-use random key authorizing one state
// transition on the record it references. ExpiresAt is zero for kinds
// that never expire.
type Confirmation struct {
	gorm.Model
	Key       string     `json:"-" gorm:"uniqueIndex;not null"`
	Kind      string     `json:"kind" gorm:"index;not null"`
	ObjectID  uint       `json:"object_id" gorm:"not null"`
	ExpiresAt time.Time  `json:"expires_at"`
	Used      bool       `json:"used" gorm:"default:false"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

func (Confirmation) TableName() string {
	return "confirmations"
}
