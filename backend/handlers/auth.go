package handlers

import (
	"log/slog"
	"net/http"

	"github.com/ygtkoc/RMS/backend/auth"
	"github.com/ygtkoc/RMS/backend/session"
)

// LoginPage answers the login entry point. Already-authenticated sessions
// are bounced straight to the landing page.
func LoginPage(w http.ResponseWriter, r *http.Request) {
	sess := session.Get(r)
	if sess.State() == session.Authenticated {
		http.Redirect(w, r, auth.DefaultLandingURL, http.StatusSeeOther)
		return
	}
	writeData(w, map[string]any{"authenticated": false, "returnUrl": r.URL.Query().Get("returnUrl")})
}

// Login validates credentials and either authenticates the session or
// starts a two-factor challenge.
func Login(w http.ResponseWriter, r *http.Request) {
	sess := session.Get(r)
	res := Auth.Login(sess, r.FormValue("username"), r.FormValue("password"), r.FormValue("returnUrl"))
	saveSession(sess, w, r)
	writeJSON(w, res)
}

// VerifyCodePage is only reachable while a challenge is outstanding.
func VerifyCodePage(w http.ResponseWriter, r *http.Request) {
	sess := session.Get(r)
	if sess.State() != session.PendingTwoFactor {
		http.Redirect(w, r, auth.LoginURL, http.StatusSeeOther)
		return
	}
	writeData(w, map[string]any{"pending": true})
}

// VerifyCode confirms the SMS code and completes the login.
func VerifyCode(w http.ResponseWriter, r *http.Request) {
	sess := session.Get(r)
	res := Auth.VerifyCode(sess, r.FormValue("code"))
	saveSession(sess, w, r)
	writeJSON(w, res)
}

// ResendVerificationCode reissues the SMS code for a pending challenge.
func ResendVerificationCode(w http.ResponseWriter, r *http.Request) {
	sess := session.Get(r)
	res := Auth.ResendCode(sess)
	saveSession(sess, w, r)
	writeJSON(w, res)
}

// Logout clears the session unconditionally.
func Logout(w http.ResponseWriter, r *http.Request) {
	sess := session.Get(r)
	res := Auth.Logout(sess)
	saveSession(sess, w, r)
	writeJSON(w, res)
}

// RecoverPassword mails a reset link for the matched account.
func RecoverPassword(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, Auth.RecoverPassword(r.FormValue("identifier")))
}

// ResetPasswordPage checks the token before the client shows the form.
func ResetPasswordPage(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	res := Auth.ValidateResetToken(token)
	if !res.Success {
		http.Redirect(w, r, auth.LoginURL, http.StatusSeeOther)
		return
	}
	writeData(w, map[string]any{"token": token})
}

// ResetPassword exchanges a live token for a password change.
func ResetPassword(w http.ResponseWriter, r *http.Request) {
	res := Auth.ResetPassword(r.FormValue("token"), r.FormValue("newPassword"), r.FormValue("confirmPassword"))
	writeJSON(w, res)
}

func saveSession(sess *session.Session, w http.ResponseWriter, r *http.Request) {
	if err := sess.Save(r, w); err != nil {
		slog.Error("session save failed", "source", "handlers", "error", err.Error())
	}
}
