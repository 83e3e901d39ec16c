package sms

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ygtkoc/RMS/backend/config"
)

func TestNormalizePhoneNumber(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"5551234567", "905551234567"},
		{"05551234567", "905551234567"},
		{"0555 123 45 67", "905551234567"},
		{"(0555) 123-45-67", "905551234567"},
		{"+905551234567", "905551234567"},
		{"905551234567", "905551234567"},
	}
	for _, c := range cases {
		if got := NormalizePhoneNumber(c.in); got != c.want {
			t.Errorf("NormalizePhoneNumber(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestIsValidPhoneNumber(t *testing.T) {
	valid := []string{"5551234567", "05551234567", "0555 123 45 67", "905551234567"}
	for _, n := range valid {
		if !IsValidPhoneNumber(n) {
			t.Errorf("%q should be valid", n)
		}
	}
	invalid := []string{"", "123", "not-a-number", "15551234567", "90555123"}
	for _, n := range invalid {
		if IsValidPhoneNumber(n) {
			t.Errorf("%q should be invalid", n)
		}
	}
}

func testConfig(apiURL string) config.SMSConfig {
	return config.SMSConfig{
		APIURL:   apiURL,
		Usercode: "user",
		Password: "pass",
		Header:   "RMS",
	}
}

func TestSend_BuildsGatewayEnvelope(t *testing.T) {
	var gotBody string
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte("00 1234567890"))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	if err := c.Send("905551234567", "Your verification code: 123456"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if gotContentType != "application/xml" {
		t.Errorf("content type = %q", gotContentType)
	}
	for _, want := range []string{
		"<usercode>user</usercode>",
		"<password>pass</password>",
		"<type>1:n</type>",
		"<msgheader>RMS</msgheader>",
		"<no>905551234567</no>",
		"<![CDATA[Your verification code: 123456]]>",
	} {
		if !strings.Contains(gotBody, want) {
			t.Errorf("request body missing %q:\n%s", want, gotBody)
		}
	}
}

func TestSend_GatewayErrorCodes(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"bad credentials", "40"},
		{"bad number", "70"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(c.body))
			}))
			defer srv.Close()

			client := NewClient(testConfig(srv.URL))
			if err := client.Send("905551234567", "hi"); err == nil {
				t.Errorf("gateway body %q should be a dispatch failure", c.body)
			}
		})
	}
}

func TestSend_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	if err := c.Send("905551234567", "hi"); err == nil {
		t.Error("non-2xx status should be a dispatch failure")
	}
}

func TestSend_RejectsUnnormalizedNumber(t *testing.T) {
	c := NewClient(testConfig("http://localhost:1"))
	if err := c.Send("5551234567", "hi"); err == nil {
		t.Error("Send should reject numbers not in country-coded form")
	}
}

func TestSend_RequiresConfiguration(t *testing.T) {
	c := NewClient(config.SMSConfig{})
	if err := c.Send("905551234567", "hi"); err == nil {
		t.Error("Send should fail when the gateway is not configured")
	}
}
