package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// Realm is the multi-tenant scoping unit. Email-change restrictions are
// scoped per realm.
type Realm struct {
	gorm.Model
	Name                 string `json:"name" gorm:"not null"`
	Subdomain            string `json:"subdomain" gorm:"uniqueIndex;not null"`
	EmailChangesDisabled bool   `json:"email_changes_disabled" gorm:"default:false"`
}

func (Realm) TableName() string {
	return "realms"
}

type User struct {
	gorm.Model
	RealmID            uint       `json:"realm_id" gorm:"index;not null"`
	Realm              Realm      `json:"-" gorm:"foreignKey:RealmID"`
	Email              string     `json:"email" gorm:"index;not null"`
	FullName           string     `json:"full_name"`
	PasswordHash       string     `json:"-"`
	Role               string     `json:"role" gorm:"default:member"`
	EnableLoginEmails  bool       `json:"enable_login_emails" gorm:"default:true"`
	TwentyFourHourTime bool       `json:"twenty_four_hour_time" gorm:"default:false"`
	Timezone           string     `json:"timezone"`
	LastLoginAt        *time.Time `json:"last_login_at,omitempty"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
