package handlers

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ygtkoc/RMS/backend/auth"
	"github.com/ygtkoc/RMS/backend/config"
	"github.com/ygtkoc/RMS/backend/middleware"
	"github.com/ygtkoc/RMS/backend/session"

	"github.com/google/uuid"
)

const maxUploadBytes = 5 << 20

var allowedPictureExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true,
}

// HomeIndex is the default landing page after login.
func HomeIndex(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.CurrentPrincipal(r)
	writeData(w, map[string]any{
		"username":               p.Username,
		"first_name":             p.FirstName,
		"role":                   p.Role,
		"theme_preference":       p.Theme,
		"profile_picture_path":   p.ProfilePicturePath,
		"session_timeout_minutes": p.TimeoutMinutes,
	})
}

func ProfilePage(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.CurrentPrincipal(r)
	view, res := Auth.Profile(p.Username)
	if !res.Success {
		writeJSON(w, res)
		return
	}
	writeData(w, view)
}

func UpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.CurrentPrincipal(r)
	sess := session.Get(r)
	res := Auth.UpdateProfile(sess, p.Username, auth.ProfileUpdate{
		Username:    r.FormValue("username"),
		Email:       r.FormValue("email"),
		FirstName:   r.FormValue("firstName"),
		LastName:    r.FormValue("lastName"),
		PhoneNumber: r.FormValue("phoneNumber"),
	})
	saveSession(sess, w, r)
	writeJSON(w, res)
}

func ChangePassword(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.CurrentPrincipal(r)
	res := Auth.ChangePassword(p.Username,
		r.FormValue("currentPassword"), r.FormValue("newPassword"), r.FormValue("confirmPassword"))
	writeJSON(w, res)
}

func ToggleTwoFactorAuth(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.CurrentPrincipal(r)
	enable := r.FormValue("enable") == "true"
	writeJSON(w, Auth.ToggleTwoFactor(p.Username, enable))
}

func SettingsPage(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.CurrentPrincipal(r)
	view, res := Auth.Settings(p.Username)
	if !res.Success {
		writeJSON(w, res)
		return
	}
	writeData(w, view)
}

func UpdateSettings(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.CurrentPrincipal(r)
	sess := session.Get(r)
	timeout, _ := strconv.Atoi(r.FormValue("sessionTimeoutMinutes"))
	res := Auth.UpdateSettings(sess, p.Username, auth.SettingsUpdate{
		ReceiveEmailNotifications: r.FormValue("receiveEmailNotifications") == "true",
		ReceiveSMSNotifications:   r.FormValue("receiveSMSNotifications") == "true",
		PreferredLanguage:         r.FormValue("preferredLanguage"),
		ThemePreference:           r.FormValue("themePreference"),
		SessionTimeoutMinutes:     timeout,
	})
	saveSession(sess, w, r)
	writeJSON(w, res)
}

// UploadProfilePicture stores the uploaded image under the configured
// directory with a random filename and records its public path.
func UploadProfilePicture(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.CurrentPrincipal(r)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, auth.Result{Success: false, Kind: auth.KindInvalidInput, Message: "Please select a file."})
		return
	}
	file, header, err := r.FormFile("profilePicture")
	if err != nil {
		writeJSON(w, auth.Result{Success: false, Kind: auth.KindInvalidInput, Message: "Please select a file."})
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedPictureExtensions[ext] {
		writeJSON(w, auth.Result{Success: false, Kind: auth.KindInvalidInput, Message: "Only JPG, PNG, or WEBP files can be uploaded."})
		return
	}

	if err := os.MkdirAll(config.C.UploadDir, 0o755); err != nil {
		writeJSON(w, auth.Result{Success: false, Kind: auth.KindUnexpected, Message: "Could not store the file."})
		return
	}
	name := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(config.C.UploadDir, name))
	if err != nil {
		writeJSON(w, auth.Result{Success: false, Kind: auth.KindUnexpected, Message: "Could not store the file."})
		return
	}
	defer dst.Close()
	if _, err := io.Copy(dst, file); err != nil {
		writeJSON(w, auth.Result{Success: false, Kind: auth.KindUnexpected, Message: "Could not store the file."})
		return
	}

	sess := session.Get(r)
	res := Auth.SetProfilePicture(sess, p.Username, "/images/users/"+name)
	saveSession(sess, w, r)
	writeJSON(w, res)
}
