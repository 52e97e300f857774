package domain

// LoginStatus tags the result of a login or code-submission attempt.
type LoginStatus string

const (
	// LoginSuccess: credentials (and second factor, when enabled) verified.
	LoginSuccess LoginStatus = "success"
	// LoginCodeRequired: password verified, an SMS code was sent; the client
	// must resubmit with the code and the escrow secret.
	LoginCodeRequired LoginStatus = "code_required"
	// LoginWrongCode: the submitted code did not match; the challenge stays
	// open and the client may retry with its original secret.
	LoginWrongCode LoginStatus = "wrong_code"
	// LoginRateLimited: too many codes requested inside the window.
	LoginRateLimited LoginStatus = "rate_limited"
	// LoginDeliveryFailed: the SMS provider refused the message.
	LoginDeliveryFailed LoginStatus = "delivery_failed"
)

// LoginOutcome is the explicit, switchable result of the challenge flow.
// Exactly one shape is populated per status: Bearer/RefreshToken/Session on
// success, SessionID/Secret on code_required, SessionID alone on wrong_code.
type LoginOutcome struct {
	Status       LoginStatus
	Bearer       string
	RefreshToken string
	Session      *Session
	SessionID    string
	Secret       string // base64, returned to the client once and never stored
}
