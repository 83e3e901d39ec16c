package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newCSRF() *CSRFProtection {
	return NewCSRFProtection("test-secret-key-32-chars-long!!!", false)
}

func csrfCookie(t *testing.T, c *CSRFProtection) *http.Cookie {
	t.Helper()
	handler := c.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	r := httptest.NewRequest("GET", "/Account/Login", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	for _, ck := range w.Result().Cookies() {
		if ck.Name == "_csrf" {
			return ck
		}
	}
	t.Fatal("GET did not issue a _csrf cookie")
	return nil
}

func TestCSRF_GetIssuesToken(t *testing.T) {
	ck := csrfCookie(t, newCSRF())
	if ck.Value == "" {
		t.Error("issued token is empty")
	}
	if ck.Path != "/" {
		t.Errorf("cookie path = %q", ck.Path)
	}
}

func TestCSRF_PostWithoutTokenRejected(t *testing.T) {
	handler := newCSRF().Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without a token")
	}))
	r := httptest.NewRequest("POST", "/Account/Login", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

func TestCSRF_PostWithHeaderTokenAccepted(t *testing.T) {
	c := newCSRF()
	ck := csrfCookie(t, c)

	called := false
	handler := c.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	r := httptest.NewRequest("POST", "/Account/Login", nil)
	r.AddCookie(ck)
	r.Header.Set("X-CSRF-Token", ck.Value)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if !called || w.Code != http.StatusOK {
		t.Errorf("valid token should pass, got %d (called=%v)", w.Code, called)
	}
}

func TestCSRF_PostWithFormTokenAccepted(t *testing.T) {
	c := newCSRF()
	ck := csrfCookie(t, c)

	called := false
	handler := c.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	r := httptest.NewRequest("POST", "/Account/Login", strings.NewReader("_csrf="+ck.Value))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.AddCookie(ck)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if !called || w.Code != http.StatusOK {
		t.Errorf("valid form token should pass, got %d (called=%v)", w.Code, called)
	}
}

func TestCSRF_MismatchedTokenRejected(t *testing.T) {
	c := newCSRF()
	ck := csrfCookie(t, c)
	other := csrfCookie(t, c)

	handler := c.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run on a cookie/header mismatch")
	}))
	r := httptest.NewRequest("POST", "/Account/Login", nil)
	r.AddCookie(ck)
	r.Header.Set("X-CSRF-Token", other.Value)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

func TestCSRF_ForgedTokenRejected(t *testing.T) {
	c := newCSRF()
	forged := &http.Cookie{Name: "_csrf", Value: "Zm9yZ2VkLXRva2VuLW5vdC1zaWduZWQ="}

	handler := c.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run on an unsigned token")
	}))
	r := httptest.NewRequest("POST", "/Account/Login", nil)
	r.AddCookie(forged)
	r.Header.Set("X-CSRF-Token", forged.Value)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}
