package models

import (
	"time"

	"gorm.io/gorm"
)

// DefaultRoleName is assigned when a user's role reference does not resolve.
const DefaultRoleName = "User"

// DefaultProfilePicturePath is served when a user has not uploaded a picture.
const DefaultProfilePicturePath = "/images/users/default-user.jpg"

type Role struct {
	gorm.Model
	Name  string `json:"name" gorm:"uniqueIndex;size:50"`
	Users []User `json:"-"`
}

type User struct {
	gorm.Model
	Username           string `json:"username" gorm:"uniqueIndex;size:50"`
	Password           string `json:"-"` // bcrypt hash, never serialize
	Email              string `json:"email" gorm:"uniqueIndex;size:100"`
	FirstName          string `json:"first_name" gorm:"size:50"`
	LastName           string `json:"last_name" gorm:"size:50"`
	PhoneNumber        string `json:"phone_number" gorm:"size:20"`
	RoleID             *uint  `json:"role_id"`
	Role               *Role  `json:"role,omitempty" gorm:"foreignKey:RoleID"`
	TwoFactorEnabled   bool   `json:"two_factor_enabled" gorm:"default:false"`
	ProfilePicturePath string `json:"profile_picture_path"`

	// Preferences
	ReceiveEmailNotifications bool   `json:"receive_email_notifications" gorm:"default:true"`
	ReceiveSMSNotifications   bool   `json:"receive_sms_notifications" gorm:"default:false"`
	PreferredLanguage         string `json:"preferred_language" gorm:"size:5;default:tr"`
	ThemePreference           string `json:"theme_preference" gorm:"size:10;default:light"`
	SessionTimeoutMinutes     int    `json:"session_timeout_minutes" gorm:"default:30"`
}

// RoleName returns the resolved role name, falling back to the default role
// when the reference is absent or dangling.
func (u *User) RoleName() string {
	if u.Role == nil || u.Role.Name == "" {
		return DefaultRoleName
	}
	return u.Role.Name
}

// PasswordResetToken is a single-use, time-limited token for password
// recovery. Consumed rows are deleted; expired rows are ignored by lookups.
type PasswordResetToken struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UserID    uint      `json:"user_id" gorm:"index"`
	User      *User     `json:"-" gorm:"foreignKey:UserID"`
	Token     string    `json:"-" gorm:"uniqueIndex;size:100"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index"`
}
