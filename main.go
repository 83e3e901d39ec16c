package main

import (
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/ygtkoc/RMS/backend/auth"
	"github.com/ygtkoc/RMS/backend/config"
	"github.com/ygtkoc/RMS/backend/database"
	"github.com/ygtkoc/RMS/backend/handlers"
	"github.com/ygtkoc/RMS/backend/logger"
	"github.com/ygtkoc/RMS/backend/mail"
	"github.com/ygtkoc/RMS/backend/middleware"
	"github.com/ygtkoc/RMS/backend/session"
	"github.com/ygtkoc/RMS/backend/sms"
)

// Rate limiter for the public auth endpoints (10 requests per minute)
var authRateLimiter = middleware.NewRateLimiter(10, time.Minute)

func main() {
	if err := config.Load(); err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := session.Init(); err != nil {
		log.Fatal("Failed to init session store:", err)
	}

	if err := database.Init(); err != nil {
		log.Fatal("Failed to init database:", err)
	}

	// Structured logging into the LogEntry table
	slog.SetDefault(slog.New(logger.NewDBHandler(database.DB)))
	go logger.CleanupOldLogs(database.DB, config.C.Logs.Retention)

	svc := auth.NewService(
		database.DB,
		sms.NewClient(config.C.SMS),
		mail.NewSMTPSender(config.C.SMTP),
		config.C.PublicURL,
	)
	handlers.Init(svc)

	slog.Info("server starting", "source", "main", "listen", config.C.Listen, "public_url", config.C.PublicURL)

	mux := http.NewServeMux()

	// Health check (unauthenticated, for load balancers)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Public auth routes (rate limited on state-changing calls)
	mux.HandleFunc("GET /Account/Login", handlers.LoginPage)
	mux.HandleFunc("POST /Account/Login", authRateLimiter.LimitFunc(handlers.Login))
	mux.HandleFunc("GET /Account/VerifyCode", handlers.VerifyCodePage)
	mux.HandleFunc("POST /Account/VerifyCode", authRateLimiter.LimitFunc(handlers.VerifyCode))
	mux.HandleFunc("POST /Account/ResendVerificationCode", authRateLimiter.LimitFunc(handlers.ResendVerificationCode))
	mux.HandleFunc("POST /Account/Logout", handlers.Logout)
	mux.HandleFunc("POST /Account/RecoverPassword", authRateLimiter.LimitFunc(handlers.RecoverPassword))
	mux.HandleFunc("GET /Account/ResetPassword", handlers.ResetPasswordPage)
	mux.HandleFunc("POST /Account/ResetPassword", authRateLimiter.LimitFunc(handlers.ResetPassword))

	// Private routes behind the session gate
	mux.HandleFunc("GET /Home/Index", middleware.RequireAuth(handlers.HomeIndex))
	mux.HandleFunc("GET /Account/Profile", middleware.RequireAuth(handlers.ProfilePage))
	mux.HandleFunc("POST /Account/Profile", middleware.RequireAuth(handlers.UpdateProfile))
	mux.HandleFunc("POST /Account/ChangePassword", middleware.RequireAuth(handlers.ChangePassword))
	mux.HandleFunc("POST /Account/ToggleTwoFactorAuth", middleware.RequireAuth(handlers.ToggleTwoFactorAuth))
	mux.HandleFunc("GET /Account/Settings", middleware.RequireAuth(handlers.SettingsPage))
	mux.HandleFunc("POST /Account/Settings", middleware.RequireAuth(handlers.UpdateSettings))
	mux.HandleFunc("POST /Account/UploadProfilePicture", middleware.RequireAuth(handlers.UploadProfilePicture))
	mux.HandleFunc("GET /Admin/Logs", middleware.RequireAuth(handlers.GetLogs))

	// Root redirects to the landing page; the gate handles the rest.
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, auth.DefaultLandingURL, http.StatusSeeOther)
	})

	// Anti-forgery on every state-changing request, security headers on all.
	csrf := middleware.NewCSRFProtection(config.C.Session.Secret, config.C.TLS.Enabled)
	handler := middleware.SecurityHeaders(csrf.Protect(mux))

	fmt.Printf("Server running at %s (public: %s)\n", config.C.Listen, config.C.PublicURL)
	if config.C.TLS.Enabled {
		slog.Info("starting server with TLS", "source", "main")
		log.Fatal(http.ListenAndServeTLS(config.C.Listen, config.C.TLS.Cert, config.C.TLS.Key, handler))
	} else {
		log.Fatal(http.ListenAndServe(config.C.Listen, handler))
	}
}
