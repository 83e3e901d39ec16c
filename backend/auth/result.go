package auth

// Kind classifies a flow outcome. Expected failures (bad input, bad
// credentials, expired tokens) are normal results, never raised as errors;
// infrastructure failures are logged in full and downgraded to a generic
// kind with a safe message.
type Kind string

const (
	KindInvalidInput           Kind = "invalid_input"
	KindAuthenticationFailed   Kind = "authentication_failed"
	KindTwoFactorMisconfigured Kind = "two_factor_misconfigured"
	KindNoPendingVerification  Kind = "no_pending_verification"
	KindInvalidCode            Kind = "invalid_code"
	KindAccountNotFound        Kind = "account_not_found"
	KindNoEmailOnFile          Kind = "no_email_on_file"
	KindInvalidOrExpiredToken  Kind = "invalid_or_expired_token"
	KindNotificationFailed     Kind = "notification_failed"
	KindLinkGenerationFailed   Kind = "link_generation_failed"
	KindUnexpected             Kind = "unexpected"
)

// Result is the envelope every flow returns and every endpoint serializes.
// Errors carries field-keyed validation messages when a failure is
// attributable to a specific input; the "General" key is used otherwise.
type Result struct {
	Success     bool                `json:"success"`
	Kind        Kind                `json:"kind,omitempty"`
	Message     string              `json:"message"`
	RedirectURL string              `json:"redirectUrl,omitempty"`
	Errors      map[string][]string `json:"errors,omitempty"`
}

const generalField = "General"

func ok(message string) Result {
	return Result{Success: true, Message: message}
}

func okRedirect(message, redirectURL string) Result {
	return Result{Success: true, Message: message, RedirectURL: redirectURL}
}

func fail(kind Kind, message string) Result {
	return failField(kind, message, generalField, message)
}

func failField(kind Kind, message, field, fieldMessage string) Result {
	return Result{
		Success: false,
		Kind:    kind,
		Message: message,
		Errors:  map[string][]string{field: {fieldMessage}},
	}
}
