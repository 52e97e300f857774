package domain

import "time"

// ChallengeSession is the transient state of one second-factor challenge,
// keyed by the login session it belongs to. It never holds the plaintext
// password: only the XOR ciphertext stays server-side, while the secret is
// round-tripped by the client.
//
// Field lifecycle: EscrowedPassword is set between code send and challenge
// completion; PendingCode is set only between code entry and the credential
// re-check, and is cleared again when the code turns out wrong.
type ChallengeSession struct {
	SessionID        string    `json:"id" dynamodbav:"session_id"`
	UserID           string    `json:"user_id" dynamodbav:"user_id"`
	PendingCode      string    `json:"-" dynamodbav:"pending_code"`
	EscrowedPassword []byte    `json:"-" dynamodbav:"escrowed_password"`
	CreatedAt        time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt        time.Time `json:"updated" dynamodbav:"updated_at"`
	ExpiresAt        int64     `json:"-" dynamodbav:"expires_at"` // TTL (Unix seconds)
}
