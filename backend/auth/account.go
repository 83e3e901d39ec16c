package auth

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/ygtkoc/RMS/backend/models"
	"github.com/ygtkoc/RMS/backend/session"
	"github.com/ygtkoc/RMS/backend/sms"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Account self-service: operations an authenticated user performs on their
// own record. All of them key off the session principal's username.

var (
	validLanguages = []string{"tr", "en"}
	validThemes    = []string{"light", "dark"}
	validTimeouts  = []int{15, 30, 60, 120}
)

type ProfileView struct {
	UserID             uint   `json:"user_id"`
	Username           string `json:"username"`
	Email              string `json:"email"`
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	PhoneNumber        string `json:"phone_number"`
	ProfilePicturePath string `json:"profile_picture_path"`
	TwoFactorEnabled   bool   `json:"two_factor_enabled"`
	ThemePreference    string `json:"theme_preference"`
	RoleName           string `json:"role_name"`
}

type ProfileUpdate struct {
	Username    string
	Email       string
	FirstName   string
	LastName    string
	PhoneNumber string
}

func (s *Service) Profile(username string) (ProfileView, Result) {
	var user models.User
	err := s.db.Preload("Role").Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ProfileView{}, fail(KindAccountNotFound, "Account not found.")
	}
	if err != nil {
		return ProfileView{}, s.unexpected("profile", err)
	}

	picture := user.ProfilePicturePath
	if picture == "" {
		picture = models.DefaultProfilePicturePath
	}
	theme := user.ThemePreference
	if theme == "" {
		theme = "light"
	}
	return ProfileView{
		UserID:             user.ID,
		Username:           user.Username,
		Email:              user.Email,
		FirstName:          user.FirstName,
		LastName:           user.LastName,
		PhoneNumber:        user.PhoneNumber,
		ProfilePicturePath: picture,
		TwoFactorEnabled:   user.TwoFactorEnabled,
		ThemePreference:    theme,
		RoleName:           user.RoleName(),
	}, ok("")
}

// UpdateProfile changes the identity fields, enforcing username/email
// uniqueness and phone format, and refreshes the session's display fields.
func (s *Service) UpdateProfile(sess *session.Session, currentUsername string, in ProfileUpdate) Result {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" || in.Email == "" {
		return fail(KindInvalidInput, "Username and email are required.")
	}

	var user models.User
	err := s.db.Where("username = ?", currentUsername).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(KindAccountNotFound, "Account not found.")
	}
	if err != nil {
		return s.unexpected("update profile", err)
	}

	var count int64
	if err := s.db.Model(&models.User{}).
		Where("username = ? AND id <> ?", in.Username, user.ID).Count(&count).Error; err != nil {
		return s.unexpected("update profile", err)
	}
	if count > 0 {
		return failField(KindInvalidInput, "This username is already taken.",
			"username", "This username is already taken.")
	}
	if err := s.db.Model(&models.User{}).
		Where("email = ? AND id <> ?", in.Email, user.ID).Count(&count).Error; err != nil {
		return s.unexpected("update profile", err)
	}
	if count > 0 {
		return failField(KindInvalidInput, "This email address is already in use.",
			"email", "This email address is already in use.")
	}
	if in.PhoneNumber != "" && !sms.IsValidPhoneNumber(in.PhoneNumber) {
		return failField(KindInvalidInput, "Invalid phone number format.",
			"phoneNumber", "Invalid phone number format.")
	}

	user.Username = in.Username
	user.Email = in.Email
	user.FirstName = in.FirstName
	user.LastName = in.LastName
	user.PhoneNumber = in.PhoneNumber
	if err := s.db.Save(&user).Error; err != nil {
		return s.unexpected("update profile", err)
	}

	if p, found := sess.Principal(); found {
		p.Username = user.Username
		p.FirstName = user.FirstName
		sess.SetAuthenticated(p)
	}
	slog.Info("profile updated", "source", "account", "username", user.Username)
	return ok("Profile updated.")
}

// ChangePassword verifies the current password before storing the new hash.
func (s *Service) ChangePassword(username, currentPassword, newPassword, confirmPassword string) Result {
	if currentPassword == "" || newPassword == "" {
		return fail(KindInvalidInput, "Current and new passwords are required.")
	}
	if newPassword != confirmPassword {
		return failField(KindInvalidInput, "New passwords do not match.",
			"newPassword", "New passwords do not match.")
	}

	var user models.User
	err := s.db.Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(KindAccountNotFound, "Account not found.")
	}
	if err != nil {
		return s.unexpected("change password", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(currentPassword)) != nil {
		return failField(KindAuthenticationFailed, "Current password is incorrect.",
			"currentPassword", "Current password is incorrect.")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return s.unexpected("change password", err)
	}
	if err := s.db.Model(&user).Update("password", string(hashed)).Error; err != nil {
		return s.unexpected("change password", err)
	}
	slog.Info("password changed", "source", "account", "username", username)
	return ok("Password changed.")
}

// ToggleTwoFactor flips the two-factor flag. Enabling requires a phone
// number in dispatchable form on the account.
func (s *Service) ToggleTwoFactor(username string, enable bool) Result {
	var user models.User
	err := s.db.Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(KindAccountNotFound, "Account not found.")
	}
	if err != nil {
		return s.unexpected("toggle 2fa", err)
	}
	if enable && !sms.IsValidPhoneNumber(user.PhoneNumber) {
		return fail(KindTwoFactorMisconfigured, "Two-factor authentication requires a registered phone number.")
	}

	if err := s.db.Model(&user).Update("two_factor_enabled", enable).Error; err != nil {
		return s.unexpected("toggle 2fa", err)
	}
	slog.Info("two-factor toggled", "source", "account", "username", username, "enabled", enable)
	if enable {
		return ok("Two-factor authentication enabled.")
	}
	return ok("Two-factor authentication disabled.")
}

type SettingsView struct {
	UserID                    uint   `json:"user_id"`
	ReceiveEmailNotifications bool   `json:"receive_email_notifications"`
	ReceiveSMSNotifications   bool   `json:"receive_sms_notifications"`
	PreferredLanguage         string `json:"preferred_language"`
	ThemePreference           string `json:"theme_preference"`
	SessionTimeoutMinutes     int    `json:"session_timeout_minutes"`
}

type SettingsUpdate struct {
	ReceiveEmailNotifications bool
	ReceiveSMSNotifications   bool
	PreferredLanguage         string
	ThemePreference           string
	SessionTimeoutMinutes     int
}

func (s *Service) Settings(username string) (SettingsView, Result) {
	var user models.User
	err := s.db.Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return SettingsView{}, fail(KindAccountNotFound, "Account not found.")
	}
	if err != nil {
		return SettingsView{}, s.unexpected("settings", err)
	}
	return SettingsView{
		UserID:                    user.ID,
		ReceiveEmailNotifications: user.ReceiveEmailNotifications,
		ReceiveSMSNotifications:   user.ReceiveSMSNotifications,
		PreferredLanguage:         user.PreferredLanguage,
		ThemePreference:           user.ThemePreference,
		SessionTimeoutMinutes:     user.SessionTimeoutMinutes,
	}, ok("")
}

// UpdateSettings validates against the allowed option sets and refreshes
// the session copies of theme and timeout.
func (s *Service) UpdateSettings(sess *session.Session, username string, in SettingsUpdate) Result {
	if !contains(validLanguages, in.PreferredLanguage) {
		return failField(KindInvalidInput, "Invalid language selection.",
			"preferredLanguage", "Invalid language selection.")
	}
	if !contains(validThemes, in.ThemePreference) {
		return failField(KindInvalidInput, "Invalid theme selection.",
			"themePreference", "Invalid theme selection.")
	}
	if !containsInt(validTimeouts, in.SessionTimeoutMinutes) {
		return failField(KindInvalidInput, "Invalid session timeout.",
			"sessionTimeoutMinutes", "Invalid session timeout.")
	}

	var user models.User
	err := s.db.Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(KindAccountNotFound, "Account not found.")
	}
	if err != nil {
		return s.unexpected("update settings", err)
	}

	user.ReceiveEmailNotifications = in.ReceiveEmailNotifications
	user.ReceiveSMSNotifications = in.ReceiveSMSNotifications
	user.PreferredLanguage = in.PreferredLanguage
	user.ThemePreference = in.ThemePreference
	user.SessionTimeoutMinutes = in.SessionTimeoutMinutes
	if err := s.db.Save(&user).Error; err != nil {
		return s.unexpected("update settings", err)
	}

	if p, found := sess.Principal(); found {
		p.Theme = in.ThemePreference
		p.TimeoutMinutes = in.SessionTimeoutMinutes
		sess.SetAuthenticated(p)
	}
	slog.Info("settings updated", "source", "account", "username", username)
	return ok("Settings updated.")
}

// SetProfilePicture persists the stored path of an uploaded picture and
// refreshes the session copy. File handling is the caller's concern.
func (s *Service) SetProfilePicture(sess *session.Session, username, path string) Result {
	var user models.User
	err := s.db.Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(KindAccountNotFound, "Account not found.")
	}
	if err != nil {
		return s.unexpected("profile picture", err)
	}

	if err := s.db.Model(&user).Update("profile_picture_path", path).Error; err != nil {
		return s.unexpected("profile picture", err)
	}
	if p, found := sess.Principal(); found {
		p.ProfilePicturePath = path
		sess.SetAuthenticated(p)
	}
	slog.Info("profile picture updated", "source", "account", "username", username)
	return ok("Profile picture updated.")
}

func contains(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}

func containsInt(options []int, v int) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}
