// Package sms dispatches short text messages through a NetGSM-compatible
// XML-over-HTTP gateway.
package sms

import (
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/ygtkoc/RMS/backend/config"

	"github.com/beevik/etree"
)

// Sender is the outbound SMS channel. The destination must already be in
// the normalized country-coded form produced by NormalizePhoneNumber.
type Sender interface {
	Send(phoneNumber, message string) error
}

var phonePattern = regexp.MustCompile(`^90[0-9]{10}$`)

// NormalizePhoneNumber strips punctuation and converts a Turkish subscriber
// number to the gateway's country-coded digits-only form:
//
//	"0555 123 45 67" -> "905551234567"
//	"5551234567"     -> "905551234567"
//	"+905551234567"  -> "905551234567"
func NormalizePhoneNumber(phoneNumber string) string {
	replacer := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", "+", "")
	n := replacer.Replace(strings.TrimSpace(phoneNumber))
	switch {
	case len(n) == 10 && !strings.HasPrefix(n, "0"):
		n = "90" + n
	case len(n) == 11 && strings.HasPrefix(n, "0"):
		n = "9" + n
	}
	return n
}

// IsValidPhoneNumber reports whether the number normalizes to the
// country-coded form the gateway accepts.
func IsValidPhoneNumber(phoneNumber string) bool {
	return phonePattern.MatchString(NormalizePhoneNumber(phoneNumber))
}

// Client sends messages through the NetGSM 1:n XML endpoint.
type Client struct {
	cfg  config.SMSConfig
	http *http.Client
}

func NewClient(cfg config.SMSConfig) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Send(phoneNumber, message string) error {
	if c.cfg.Usercode == "" || c.cfg.Password == "" || c.cfg.Header == "" || c.cfg.APIURL == "" {
		return fmt.Errorf("sms gateway is not configured")
	}
	if !phonePattern.MatchString(phoneNumber) {
		return fmt.Errorf("phone number %q is not in country-coded form", phoneNumber)
	}

	body, err := c.buildRequest(phoneNumber, message)
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}

	resp, err := c.http.Post(c.cfg.APIURL, "application/xml", strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("post to sms gateway: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read sms gateway response: %w", err)
	}
	return checkResponse(resp.StatusCode, strings.TrimSpace(string(raw)))
}

// buildRequest produces the gateway's 1:n XML envelope for a single number.
func (c *Client) buildRequest(phoneNumber, message string) (string, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	main := doc.CreateElement("mainbody")
	header := main.CreateElement("header")
	company := header.CreateElement("company")
	company.CreateAttr("dil", "TR")
	company.SetText("Netgsm")
	header.CreateElement("usercode").SetText(c.cfg.Usercode)
	header.CreateElement("password").SetText(c.cfg.Password)
	header.CreateElement("type").SetText("1:n")
	header.CreateElement("msgheader").SetText(c.cfg.Header)

	body := main.CreateElement("body")
	body.CreateElement("msg").CreateCData(message)
	body.CreateElement("no").SetText(phoneNumber)

	return doc.WriteToString()
}

// checkResponse maps the gateway's numeric status bodies to errors. The
// gateway reports success with a message id and failures with short numeric
// codes ("40" bad credentials, "70" malformed request).
func checkResponse(status int, body string) error {
	if status < 200 || status > 299 {
		return fmt.Errorf("sms gateway returned HTTP %d: %s", status, body)
	}
	switch {
	case strings.HasPrefix(body, "40"):
		return fmt.Errorf("sms gateway rejected credentials (code %s)", body)
	case strings.HasPrefix(body, "70"):
		return fmt.Errorf("sms gateway rejected the request (code %s)", body)
	}
	return nil
}
