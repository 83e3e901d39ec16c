package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ygtkoc/RMS/backend/auth"
	"github.com/ygtkoc/RMS/backend/config"
	"github.com/ygtkoc/RMS/backend/database"
	"github.com/ygtkoc/RMS/backend/models"
	"github.com/ygtkoc/RMS/backend/session"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupGateTest(t *testing.T) {
	t.Helper()
	config.C.Session.Secret = "test-secret-key-32-chars-long!!!"
	config.C.Session.Timeout = 30 * time.Minute
	if err := session.Init(); err != nil {
		t.Fatal(err)
	}
	var err error
	database.DB, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := database.DB.AutoMigrate(&models.Role{}, &models.User{}, &models.PasswordResetToken{}, &models.LogEntry{}); err != nil {
		t.Fatal(err)
	}
}

// requestWithSession builds a request carrying the cookie produced by
// mutating a fresh session.
func requestWithSession(t *testing.T, target string, mutate func(*session.Session)) *http.Request {
	t.Helper()
	seed := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	s := session.Get(seed)
	mutate(s)
	if err := s.Save(seed, rec); err != nil {
		t.Fatal(err)
	}

	r := httptest.NewRequest("GET", target, nil)
	for _, c := range rec.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}

func TestRequireAuth_AnonymousRedirectsToLogin(t *testing.T) {
	setupGateTest(t)

	called := false
	handler := RequireAuth(func(w http.ResponseWriter, r *http.Request) { called = true })

	r := httptest.NewRequest("GET", "/Home/Index", nil)
	w := httptest.NewRecorder()
	handler(w, r)

	if called {
		t.Error("handler body must not execute for anonymous sessions")
	}
	if w.Code != http.StatusSeeOther {
		t.Errorf("expected 303, got %d", w.Code)
	}
	loc := w.Header().Get("Location")
	if !strings.HasPrefix(loc, auth.LoginURL) {
		t.Errorf("expected redirect to login, got %q", loc)
	}
	if !strings.Contains(loc, "returnUrl=%2FHome%2FIndex") {
		t.Errorf("expected return URL in redirect, got %q", loc)
	}
}

func TestRequireAuth_PendingRedirectsToVerify(t *testing.T) {
	setupGateTest(t)

	handler := RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler body must not execute while two-factor is pending")
	})

	r := requestWithSession(t, "/Home/Index", func(s *session.Session) {
		s.SetPending(session.Pending{Username: "bob", Code: "123456"})
	})
	w := httptest.NewRecorder()
	handler(w, r)

	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != auth.VerifyCodeURL {
		t.Errorf("expected redirect to %q, got %d %q", auth.VerifyCodeURL, w.Code, w.Header().Get("Location"))
	}
}

func TestRequireAuth_AuthenticatedPopulatesContext(t *testing.T) {
	setupGateTest(t)

	var got session.Principal
	handler := RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		got, _ = CurrentPrincipal(r)
	})

	r := requestWithSession(t, "/Home/Index", func(s *session.Session) {
		s.SetAuthenticated(session.Principal{
			Username: "alice", FirstName: "Alice", Role: "User",
			Theme: "dark", ProfilePicturePath: "/images/users/a.png", TimeoutMinutes: 60,
		})
	})
	w := httptest.NewRecorder()
	handler(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got.Username != "alice" || got.Theme != "dark" || got.TimeoutMinutes != 60 {
		t.Errorf("unexpected principal in context: %+v", got)
	}
}

func TestRequireAuth_BackfillsFromStore(t *testing.T) {
	setupGateTest(t)
	database.DB.Create(&models.User{
		Username:              "alice",
		Email:                 "alice@example.com",
		ProfilePicturePath:    "/images/users/a.png",
		ThemePreference:       "dark",
		SessionTimeoutMinutes: 120,
	})

	var got session.Principal
	handler := RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		got, _ = CurrentPrincipal(r)
	})

	// Session carries only the identity fields set at 2FA promotion.
	r := requestWithSession(t, "/Home/Index", func(s *session.Session) {
		s.SetAuthenticated(session.Principal{Username: "alice", FirstName: "Alice", Role: "User"})
	})
	w := httptest.NewRecorder()
	handler(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got.ProfilePicturePath != "/images/users/a.png" {
		t.Errorf("picture not backfilled: %+v", got)
	}
	if got.TimeoutMinutes != 120 {
		t.Errorf("timeout not backfilled: %+v", got)
	}
}

func TestRequireAuth_DanglingIdentityClearsSession(t *testing.T) {
	setupGateTest(t)
	// No user row for "ghost".

	handler := RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler body must not execute for a dangling identity")
	})

	r := requestWithSession(t, "/Home/Index", func(s *session.Session) {
		s.SetAuthenticated(session.Principal{Username: "ghost", Role: "User"})
	})
	w := httptest.NewRecorder()
	handler(w, r)

	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != auth.LoginURL {
		t.Errorf("expected redirect to login, got %d %q", w.Code, w.Header().Get("Location"))
	}
	// The cleared session cookie must be expired.
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" && c.MaxAge >= 0 {
			t.Error("session cookie should be expired after clearing")
		}
	}
}
