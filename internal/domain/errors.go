package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)

// Login-flow outcomes surfaced as errors by the credential gate and the
// challenge service. Each one maps to a distinct user-displayable result;
// callers branch with errors.Is.
var (
	// ErrInvalidCredentials is deliberately opaque: it never reveals which
	// factor (password or code) failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNoCodeProvided means the second factor is enabled but no code has
	// been entered for this session yet. It triggers code issuance, it is
	// not shown to the user as a failure.
	ErrNoCodeProvided = errors.New("no SMS code provided")

	// ErrWrongCode means a code was entered but did not match. Recoverable,
	// the user may retry with the same challenge.
	ErrWrongCode = errors.New("wrong SMS code")

	// ErrRateLimited means the user requested too many codes inside the
	// configured window. Terminal for the current login attempt.
	ErrRateLimited = errors.New("SMS rate limit exceeded")

	// ErrDeliveryFailed means the SMS provider rejected the send. No retry
	// is attempted.
	ErrDeliveryFailed = errors.New("sending SMS failed")
)
