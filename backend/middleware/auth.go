package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/ygtkoc/RMS/backend/auth"
	"github.com/ygtkoc/RMS/backend/database"
	"github.com/ygtkoc/RMS/backend/models"
	"github.com/ygtkoc/RMS/backend/session"

	"gorm.io/gorm"
)

type contextKey string

const principalContextKey contextKey = "principal"

// CurrentPrincipal returns the authenticated principal placed in the
// request context by RequireAuth.
func CurrentPrincipal(r *http.Request) (session.Principal, bool) {
	p, ok := r.Context().Value(principalContextKey).(session.Principal)
	return p, ok
}

// RequireAuth gates a private handler behind an authenticated session.
// Anonymous sessions are redirected to login (carrying the original path as
// the return URL), pending two-factor sessions to the verification step.
// On success the presentation fields are served from the session, backfilled
// from the user store when missing, and the cookie lifetime is refreshed
// from the principal's stored timeout preference.
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := session.Get(r)

		switch sess.State() {
		case session.PendingTwoFactor:
			http.Redirect(w, r, auth.VerifyCodeURL, http.StatusSeeOther)
			return
		case session.Anonymous:
			http.Redirect(w, r, auth.LoginURL+"?returnUrl="+url.QueryEscape(r.URL.Path), http.StatusSeeOther)
			return
		}

		p, _ := sess.Principal()
		if p.ProfilePicturePath == "" || p.TimeoutMinutes == 0 {
			var user models.User
			err := database.DB.Where("username = ?", p.Username).First(&user).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Dangling identity: the user row is gone, invalidate the session.
				sess.Clear()
				sess.Save(r, w)
				http.Redirect(w, r, auth.LoginURL, http.StatusSeeOther)
				return
			}
			if err != nil {
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			p.ProfilePicturePath = user.ProfilePicturePath
			if p.ProfilePicturePath == "" {
				p.ProfilePicturePath = models.DefaultProfilePicturePath
			}
			p.TimeoutMinutes = user.SessionTimeoutMinutes
			if p.TimeoutMinutes == 0 {
				p.TimeoutMinutes = 30
			}
			if p.Theme == "" {
				p.Theme = user.ThemePreference
				if p.Theme == "" {
					p.Theme = "light"
				}
			}
			sess.SetAuthenticated(p)
		}

		sess.SetMaxAge(time.Duration(p.TimeoutMinutes) * time.Minute)
		if err := sess.Save(r, w); err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		ctx := context.WithValue(r.Context(), principalContextKey, p)
		next(w, r.WithContext(ctx))
	}
}
