package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Listen       string        `yaml:"listen"`
	PublicURL    string        `yaml:"public_url"`
	DatabasePath string        `yaml:"database_path"`
	UploadDir    string        `yaml:"upload_dir"`
	Session      SessionConfig `yaml:"session"`
	SMS          SMSConfig     `yaml:"sms"`
	SMTP         SMTPConfig    `yaml:"smtp"`
	Logs         LogsConfig    `yaml:"logs"`
	TLS          TLSConfig     `yaml:"tls"`
}

type SessionConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	Secret  string        `yaml:"secret"`
}

// SMSConfig holds the NetGSM gateway credentials. Header is the registered
// sender name shown on the recipient's phone.
type SMSConfig struct {
	APIURL   string `yaml:"api_url"`
	Usercode string `yaml:"usercode"`
	Password string `yaml:"password"`
	Header   string `yaml:"header"`
}

type SMTPConfig struct {
	Server      string `yaml:"server"`
	Port        int    `yaml:"port"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	SenderEmail string `yaml:"sender_email"`
	SenderName  string `yaml:"sender_name"`
}

type LogsConfig struct {
	Retention time.Duration `yaml:"retention"`
}

type TLSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cert    string `yaml:"cert"`
	Key     string `yaml:"key"`
}

var C Config

func Load() error {
	// Defaults
	C = Config{
		Listen:       ":8080",
		PublicURL:    "http://localhost:8080",
		DatabasePath: "rms.db",
		UploadDir:    "uploads/images/users",
		Session: SessionConfig{
			Timeout: 30 * time.Minute,
		},
		SMS: SMSConfig{
			APIURL: "https://api.netgsm.com.tr/sms/send/xml",
		},
		SMTP: SMTPConfig{
			Port: 587,
		},
		Logs: LogsConfig{
			Retention: 48 * time.Hour,
		},
	}

	// Load from YAML if exists
	if data, err := os.ReadFile("config.yaml"); err == nil {
		if err := yaml.Unmarshal(data, &C); err != nil {
			return err
		}
	}

	// Environment overrides
	if v := os.Getenv("LISTEN"); v != "" {
		C.Listen = v
	}
	if v := os.Getenv("PUBLIC_URL"); v != "" {
		C.PublicURL = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		C.DatabasePath = v
	}
	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		C.UploadDir = v
	}
	if v := os.Getenv("SESSION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			C.Session.Timeout = d
		}
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		C.Session.Secret = v
	}
	if v := os.Getenv("SMS_API_URL"); v != "" {
		C.SMS.APIURL = v
	}
	if v := os.Getenv("SMS_USERCODE"); v != "" {
		C.SMS.Usercode = v
	}
	if v := os.Getenv("SMS_PASSWORD"); v != "" {
		C.SMS.Password = v
	}
	if v := os.Getenv("SMS_HEADER"); v != "" {
		C.SMS.Header = v
	}
	if v := os.Getenv("SMTP_SERVER"); v != "" {
		C.SMTP.Server = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.SMTP.Port = p
		}
	}
	if v := os.Getenv("SMTP_USERNAME"); v != "" {
		C.SMTP.Username = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		C.SMTP.Password = v
	}
	if v := os.Getenv("SMTP_SENDER_EMAIL"); v != "" {
		C.SMTP.SenderEmail = v
	}
	if v := os.Getenv("SMTP_SENDER_NAME"); v != "" {
		C.SMTP.SenderName = v
	}
	if v := os.Getenv("LOGS_RETENTION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			C.Logs.Retention = d
		}
	}
	if v := os.Getenv("TLS_ENABLED"); v == "true" {
		C.TLS.Enabled = true
	}
	if v := os.Getenv("TLS_CERT"); v != "" {
		C.TLS.Cert = v
	}
	if v := os.Getenv("TLS_KEY"); v != "" {
		C.TLS.Key = v
	}

	return nil
}
