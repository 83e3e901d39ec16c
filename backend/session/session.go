// Package session wraps the cookie-backed session store with an explicit
// three-way state: a browser session is Anonymous, PendingTwoFactor, or
// Authenticated, never two at once. All transitions go through setters that
// clear the keys of the other states, so a stale verification code can never
// coexist with an authenticated principal.
package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/ygtkoc/RMS/backend/config"

	"github.com/gorilla/sessions"
)

const cookieName = "session"

var Store *sessions.CookieStore

// Init configures the session store with the secret and timeout from config.
func Init() error {
	secret := config.C.Session.Secret
	if secret == "" {
		return errors.New("session secret is required (set SESSION_SECRET or session.secret in config.yaml)")
	}
	if len(secret) < 32 {
		return errors.New("session secret must be at least 32 characters")
	}

	Store = sessions.NewCookieStore([]byte(secret))
	Store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(config.C.Session.Timeout.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   config.C.TLS.Enabled,
	}
	return nil
}

type State int

const (
	Anonymous State = iota
	PendingTwoFactor
	Authenticated
)

// Pending is the transient state between a successful credential check and
// the confirmation of the SMS code.
type Pending struct {
	Username      string
	FirstName     string
	Role          string
	Code          string
	CodeExpiresAt time.Time
	AttemptsLeft  int
	ReturnURL     string
}

// Principal is the authenticated identity plus the presentation fields
// cached for the base layout.
type Principal struct {
	Username           string
	FirstName          string
	Role               string
	Theme              string
	ProfilePicturePath string
	TimeoutMinutes     int
}

type Session struct {
	raw *sessions.Session
}

// Get returns the session for the request. A decode failure (tampered or
// stale cookie) yields a fresh anonymous session, matching the store's
// behavior of always returning a usable session.
func Get(r *http.Request) *Session {
	raw, _ := Store.Get(r, cookieName)
	return &Session{raw: raw}
}

func (s *Session) State() State {
	if _, ok := s.raw.Values["username"].(string); ok {
		return Authenticated
	}
	if _, ok := s.raw.Values["pending_user"].(string); ok {
		return PendingTwoFactor
	}
	return Anonymous
}

func (s *Session) Principal() (Principal, bool) {
	username, ok := s.raw.Values["username"].(string)
	if !ok {
		return Principal{}, false
	}
	p := Principal{Username: username}
	p.FirstName, _ = s.raw.Values["first_name"].(string)
	p.Role, _ = s.raw.Values["role"].(string)
	p.Theme, _ = s.raw.Values["theme"].(string)
	p.ProfilePicturePath, _ = s.raw.Values["profile_picture_path"].(string)
	p.TimeoutMinutes, _ = s.raw.Values["timeout_minutes"].(int)
	return p, true
}

func (s *Session) Pending() (Pending, bool) {
	username, ok := s.raw.Values["pending_user"].(string)
	if !ok {
		return Pending{}, false
	}
	p := Pending{Username: username}
	p.FirstName, _ = s.raw.Values["pending_first_name"].(string)
	p.Role, _ = s.raw.Values["pending_role"].(string)
	p.Code, _ = s.raw.Values["pending_code"].(string)
	p.ReturnURL, _ = s.raw.Values["pending_return_url"].(string)
	p.AttemptsLeft, _ = s.raw.Values["pending_attempts"].(int)
	if unix, ok := s.raw.Values["pending_code_expires"].(int64); ok {
		p.CodeExpiresAt = time.Unix(unix, 0)
	}
	return p, true
}

// SetAuthenticated promotes the session to the authenticated state,
// discarding any outstanding verification challenge.
func (s *Session) SetAuthenticated(p Principal) {
	s.clearPending()
	s.raw.Values["username"] = p.Username
	s.raw.Values["first_name"] = p.FirstName
	s.raw.Values["role"] = p.Role
	s.raw.Values["theme"] = p.Theme
	s.raw.Values["profile_picture_path"] = p.ProfilePicturePath
	s.raw.Values["timeout_minutes"] = p.TimeoutMinutes
}

// SetPending parks the session in the two-factor challenge state,
// discarding any authenticated principal.
func (s *Session) SetPending(p Pending) {
	s.clearPrincipal()
	s.raw.Values["pending_user"] = p.Username
	s.raw.Values["pending_first_name"] = p.FirstName
	s.raw.Values["pending_role"] = p.Role
	s.raw.Values["pending_code"] = p.Code
	s.raw.Values["pending_code_expires"] = p.CodeExpiresAt.Unix()
	s.raw.Values["pending_attempts"] = p.AttemptsLeft
	s.raw.Values["pending_return_url"] = p.ReturnURL
}

// Clear resets the session to Anonymous and expires the cookie.
func (s *Session) Clear() {
	s.raw.Values = make(map[interface{}]interface{})
	s.raw.Options.MaxAge = -1
}

// SetMaxAge overrides the cookie lifetime for this response, used by the
// gate to honor the principal's stored timeout preference.
func (s *Session) SetMaxAge(d time.Duration) {
	opts := *s.raw.Options
	opts.MaxAge = int(d.Seconds())
	s.raw.Options = &opts
}

func (s *Session) Save(r *http.Request, w http.ResponseWriter) error {
	return s.raw.Save(r, w)
}

func (s *Session) clearPending() {
	for _, k := range []string{
		"pending_user", "pending_first_name", "pending_role",
		"pending_code", "pending_code_expires", "pending_attempts",
		"pending_return_url",
	} {
		delete(s.raw.Values, k)
	}
}

func (s *Session) clearPrincipal() {
	for _, k := range []string{
		"username", "first_name", "role", "theme",
		"profile_picture_path", "timeout_minutes",
	} {
		delete(s.raw.Values, k)
	}
}
