// Package auth implements the credential, two-factor, and password-recovery
// flows. Every operation returns a Result; the session moves through the
// explicit Anonymous -> PendingTwoFactor -> Authenticated states owned by
// the session package.
package auth

import (
	"crypto/rand"
	"errors"
	"log/slog"
	"math/big"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ygtkoc/RMS/backend/mail"
	"github.com/ygtkoc/RMS/backend/models"
	"github.com/ygtkoc/RMS/backend/session"
	"github.com/ygtkoc/RMS/backend/sms"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	// DefaultLandingURL is where a successful login lands when the caller
	// did not supply a return URL.
	DefaultLandingURL = "/Home/Index"
	// LoginURL is the public login entry point unauthenticated requests
	// are redirected to.
	LoginURL = "/Account/Login"
	// VerifyCodeURL is where a pending two-factor session must go next.
	VerifyCodeURL = "/Account/VerifyCode"
	// ResetPasswordPath is the public path embedded in recovery links.
	ResetPasswordPath = "/Account/ResetPassword"

	resetTokenTTL = 15 * time.Minute
	codeTTL       = 5 * time.Minute
	codeAttempts  = 5
)

// generateCode is a variable to allow deterministic codes in tests.
var generateCode = func() (string, error) {
	// Uniform across the full 6-digit range 100000-999999.
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}

type Service struct {
	db        *gorm.DB
	sms       sms.Sender
	mail      mail.Sender
	publicURL string
	now       func() time.Time
}

func NewService(db *gorm.DB, smsSender sms.Sender, mailSender mail.Sender, publicURL string) *Service {
	return &Service{
		db:        db,
		sms:       smsSender,
		mail:      mailSender,
		publicURL: publicURL,
		now:       time.Now,
	}
}

// Login validates the submitted credentials. Without two-factor the session
// is promoted directly; with two-factor a fresh code is dispatched and the
// session parks in the pending state until VerifyCode confirms it.
func (s *Service) Login(sess *session.Session, username, password, returnURL string) Result {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return fail(KindInvalidInput, "Username and password are required.")
	}

	var user models.User
	err := s.db.Preload("Role").Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		slog.Warn("login failed: unknown user", "source", "auth", "username", username)
		return fail(KindAuthenticationFailed, "Invalid username or password.")
	}
	if err != nil {
		return s.unexpected("login", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		slog.Warn("login failed: wrong password", "source", "auth", "username", username)
		return fail(KindAuthenticationFailed, "Invalid username or password.")
	}

	role := user.RoleName()
	redirect := returnURL
	if redirect == "" {
		redirect = DefaultLandingURL
	}

	if !user.TwoFactorEnabled {
		sess.SetAuthenticated(principalOf(&user, role))
		slog.Info("user logged in", "source", "auth", "username", user.Username)
		return okRedirect("Login successful.", redirect)
	}

	if user.PhoneNumber == "" {
		slog.Warn("login failed: 2FA enabled without phone", "source", "auth", "username", username)
		return fail(KindTwoFactorMisconfigured, "Two-factor authentication requires a registered phone number.")
	}

	code, err := generateCode()
	if err != nil {
		return s.unexpected("login", err)
	}

	// Dispatch before touching the session: a failed send must leave the
	// attempt without a pending challenge, forcing a retry from scratch.
	if err := s.sendCode(user.PhoneNumber, code); err != nil {
		slog.Error("verification SMS failed", "source", "auth", "username", username, "error", err.Error())
		return fail(KindNotificationFailed, "Could not send the verification code. Please try again.")
	}

	sess.SetPending(session.Pending{
		Username:      user.Username,
		FirstName:     user.FirstName,
		Role:          role,
		Code:          code,
		CodeExpiresAt: s.now().Add(codeTTL),
		AttemptsLeft:  codeAttempts,
		ReturnURL:     redirect,
	})
	slog.Info("verification code sent", "source", "auth", "username", user.Username)
	return okRedirect("A verification code was sent to your phone.", VerifyCodeURL)
}

// VerifyCode confirms a pending two-factor challenge. Comparison is
// whitespace-trimmed and case-insensitive. The challenge survives a wrong
// guess until the attempt budget runs out.
func (s *Service) VerifyCode(sess *session.Session, code string) Result {
	pending, found := sess.Pending()
	if !found {
		return fail(KindNoPendingVerification, "No verification in progress. Please sign in again.")
	}

	if s.now().After(pending.CodeExpiresAt) {
		return failField(KindInvalidCode, "The verification code has expired. Request a new one.",
			"code", "The verification code has expired.")
	}

	if !strings.EqualFold(strings.TrimSpace(code), pending.Code) {
		pending.AttemptsLeft--
		if pending.AttemptsLeft <= 0 {
			sess.Clear()
			slog.Warn("verification attempts exhausted", "source", "auth", "username", pending.Username)
			return fail(KindInvalidCode, "Too many incorrect codes. Please sign in again.")
		}
		sess.SetPending(pending)
		slog.Warn("invalid verification code", "source", "auth", "username", pending.Username)
		return failField(KindInvalidCode, "Invalid verification code.", "code", "Invalid verification code.")
	}

	// Display-only fields missing here (theme, picture, timeout) are
	// backfilled by the session gate from the store on the next request.
	sess.SetAuthenticated(session.Principal{
		Username:  pending.Username,
		FirstName: pending.FirstName,
		Role:      pending.Role,
	})
	slog.Info("user logged in", "source", "auth", "username", pending.Username)

	redirect := pending.ReturnURL
	if redirect == "" {
		redirect = DefaultLandingURL
	}
	return okRedirect("Login successful.", redirect)
}

// ResendCode issues a fresh code for an outstanding challenge, overwriting
// (and thereby invalidating) the previous one and resetting the attempt
// budget. If the redispatch fails, the previous code stays live.
func (s *Service) ResendCode(sess *session.Session) Result {
	pending, found := sess.Pending()
	if !found {
		return fail(KindNoPendingVerification, "No verification in progress. Please sign in again.")
	}

	var user models.User
	err := s.db.Where("username = ?", pending.Username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(KindAccountNotFound, "Account not found.")
	}
	if err != nil {
		return s.unexpected("resend code", err)
	}
	if user.PhoneNumber == "" {
		return fail(KindTwoFactorMisconfigured, "This account has no registered phone number.")
	}

	code, err := generateCode()
	if err != nil {
		return s.unexpected("resend code", err)
	}
	if err := s.sendCode(user.PhoneNumber, code); err != nil {
		slog.Error("verification SMS failed", "source", "auth", "username", user.Username, "error", err.Error())
		return fail(KindNotificationFailed, "Could not send the verification code. Please try again.")
	}

	pending.Code = code
	pending.CodeExpiresAt = s.now().Add(codeTTL)
	pending.AttemptsLeft = codeAttempts
	sess.SetPending(pending)
	slog.Info("verification code resent", "source", "auth", "username", user.Username)
	return okRedirect("A new verification code was sent to your phone.", VerifyCodeURL)
}

// Logout unconditionally returns the session to Anonymous.
func (s *Service) Logout(sess *session.Session) Result {
	if p, found := sess.Principal(); found {
		slog.Info("user logged out", "source", "auth", "username", p.Username)
	}
	sess.Clear()
	return okRedirect("You have been signed out.", LoginURL)
}

// RecoverPassword looks up an account by username, email, or phone and
// mails a single-use reset link valid for 15 minutes. Outstanding tokens
// for the same account are revoked when a new one is issued.
func (s *Service) RecoverPassword(identifier string) Result {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return failField(KindInvalidInput, "Username, email, or phone number is required.",
			"identifier", "Username, email, or phone number is required.")
	}

	var user models.User
	err := s.db.Where("username = ? OR email = ? OR phone_number = ?", identifier, identifier, identifier).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		slog.Warn("recovery failed: no matching account", "source", "auth", "identifier", identifier)
		return failField(KindAccountNotFound, "No account matches that information.",
			"identifier", "No account matches that information.")
	}
	if err != nil {
		return s.unexpected("recover password", err)
	}
	if user.Email == "" {
		return failField(KindNoEmailOnFile, "This account has no email address on file.",
			"identifier", "This account has no email address on file.")
	}

	link, err := s.resetLink(uuid.NewString())
	if err != nil {
		slog.Error("reset link generation failed", "source", "auth", "error", err.Error())
		return fail(KindLinkGenerationFailed, "Could not generate the reset link.")
	}
	token := link.token

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Revoke any outstanding tokens so at most one is valid per account.
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.PasswordResetToken{}).Error; err != nil {
			return err
		}
		return tx.Create(&models.PasswordResetToken{
			UserID:    user.ID,
			Token:     token,
			ExpiresAt: s.now().Add(resetTokenTTL),
		}).Error
	})
	if err != nil {
		return s.unexpected("recover password", err)
	}

	body := "Click the link below to reset your password:\n" + link.url +
		"\n\nThis link is valid for 15 minutes. If you did not request a reset, ignore this email."
	if err := s.mail.Send(user.Email, "RMS Password Reset", body); err != nil {
		// The token row is already persisted at this point; it expires on
		// its own or is revoked by the next recovery request.
		slog.Error("reset email failed", "source", "auth", "username", user.Username, "error", err.Error())
		return fail(KindNotificationFailed, "Could not send the reset email. Please try again.")
	}

	slog.Info("password reset link sent", "source", "auth", "username", user.Username)
	return okRedirect("A password reset link was sent to your email.", LoginURL)
}

// ValidateResetToken reports whether a token is currently exchangeable,
// used by the reset form before showing the password fields.
func (s *Service) ValidateResetToken(token string) Result {
	if strings.TrimSpace(token) == "" {
		return fail(KindInvalidInput, "Invalid token.")
	}
	var row models.PasswordResetToken
	err := s.db.Where("token = ? AND expires_at > ?", token, s.now()).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(KindInvalidOrExpiredToken, "Invalid or expired password reset link.")
	}
	if err != nil {
		return s.unexpected("validate reset token", err)
	}
	return ok("Token is valid.")
}

// ResetPassword exchanges a live token for a password change and consumes
// the token so it can never authorize a second change.
func (s *Service) ResetPassword(token, newPassword, confirmPassword string) Result {
	if strings.TrimSpace(token) == "" {
		return fail(KindInvalidInput, "Invalid token.")
	}
	if newPassword == "" || newPassword != confirmPassword {
		return failField(KindInvalidInput, "Passwords are empty or do not match.",
			"newPassword", "Passwords are empty or do not match.")
	}

	var row models.PasswordResetToken
	err := s.db.Where("token = ? AND expires_at > ?", token, s.now()).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		slog.Warn("reset failed: invalid or expired token", "source", "auth")
		return fail(KindInvalidOrExpiredToken, "Invalid or expired password reset link.")
	}
	if err != nil {
		return s.unexpected("reset password", err)
	}

	var user models.User
	err = s.db.First(&user, row.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(KindAccountNotFound, "Account not found.")
	}
	if err != nil {
		return s.unexpected("reset password", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return s.unexpected("reset password", err)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Update("password", string(hashed)).Error; err != nil {
			return err
		}
		return tx.Delete(&row).Error
	})
	if err != nil {
		return s.unexpected("reset password", err)
	}

	slog.Info("password reset", "source", "auth", "username", user.Username)
	return okRedirect("Your password has been reset.", LoginURL)
}

type link struct {
	token string
	url   string
}

func (s *Service) resetLink(token string) (link, error) {
	if s.publicURL == "" {
		return link{}, errors.New("public URL is not configured")
	}
	base, err := url.Parse(s.publicURL)
	if err != nil {
		return link{}, err
	}
	base.Path = strings.TrimRight(base.Path, "/") + ResetPasswordPath
	base.RawQuery = url.Values{"token": {token}}.Encode()
	return link{token: token, url: base.String()}, nil
}

func (s *Service) sendCode(phoneNumber, code string) error {
	return s.sms.Send(sms.NormalizePhoneNumber(phoneNumber), "Your verification code: "+code)
}

func (s *Service) unexpected(op string, err error) Result {
	slog.Error("unexpected failure", "source", "auth", "op", op, "error", err.Error())
	return fail(KindUnexpected, "Something went wrong. Please try again later.")
}

func principalOf(u *models.User, role string) session.Principal {
	picture := u.ProfilePicturePath
	if picture == "" {
		picture = models.DefaultProfilePicturePath
	}
	theme := u.ThemePreference
	if theme == "" {
		theme = "light"
	}
	return session.Principal{
		Username:           u.Username,
		FirstName:          u.FirstName,
		Role:               role,
		Theme:              theme,
		ProfilePicturePath: picture,
		TimeoutMinutes:     u.SessionTimeoutMinutes,
	}
}
