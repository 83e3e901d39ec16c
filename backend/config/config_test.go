package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	if err := Load(); err != nil {
		t.Fatal(err)
	}
	if C.Listen != ":8080" {
		t.Errorf("default listen = %q", C.Listen)
	}
	if C.Session.Timeout != 30*time.Minute {
		t.Errorf("default session timeout = %v", C.Session.Timeout)
	}
	if C.SMS.APIURL == "" {
		t.Error("default SMS API URL should be set")
	}
	if C.SMTP.Port != 587 {
		t.Errorf("default SMTP port = %d", C.SMTP.Port)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	os.Setenv("LISTEN", ":9090")
	os.Setenv("PUBLIC_URL", "https://rms.example.com")
	os.Setenv("SESSION_TIMEOUT", "1h")
	os.Setenv("SESSION_SECRET", "test-secret-key-32-chars-long!!!")
	os.Setenv("SMS_USERCODE", "acct")
	os.Setenv("SMTP_PORT", "2525")
	defer func() {
		for _, k := range []string{"LISTEN", "PUBLIC_URL", "SESSION_TIMEOUT", "SESSION_SECRET", "SMS_USERCODE", "SMTP_PORT"} {
			os.Unsetenv(k)
		}
	}()

	if err := Load(); err != nil {
		t.Fatal(err)
	}
	if C.Listen != ":9090" {
		t.Errorf("LISTEN override not applied: %q", C.Listen)
	}
	if C.PublicURL != "https://rms.example.com" {
		t.Errorf("PUBLIC_URL override not applied: %q", C.PublicURL)
	}
	if C.Session.Timeout != time.Hour {
		t.Errorf("SESSION_TIMEOUT override not applied: %v", C.Session.Timeout)
	}
	if C.Session.Secret != "test-secret-key-32-chars-long!!!" {
		t.Error("SESSION_SECRET override not applied")
	}
	if C.SMS.Usercode != "acct" {
		t.Errorf("SMS_USERCODE override not applied: %q", C.SMS.Usercode)
	}
	if C.SMTP.Port != 2525 {
		t.Errorf("SMTP_PORT override not applied: %d", C.SMTP.Port)
	}
}

func TestLoad_InvalidEnvValuesIgnored(t *testing.T) {
	os.Setenv("SESSION_TIMEOUT", "soon")
	os.Setenv("SMTP_PORT", "not-a-port")
	defer func() {
		os.Unsetenv("SESSION_TIMEOUT")
		os.Unsetenv("SMTP_PORT")
	}()

	if err := Load(); err != nil {
		t.Fatal(err)
	}
	if C.Session.Timeout != 30*time.Minute {
		t.Errorf("invalid SESSION_TIMEOUT should keep the default, got %v", C.Session.Timeout)
	}
	if C.SMTP.Port != 587 {
		t.Errorf("invalid SMTP_PORT should keep the default, got %d", C.SMTP.Port)
	}
}
