package domain

import "time"

// OneTimeCode is a single SMS login code issued for one (user, session) pair.
// PK: user_id, SK: code_id. The code_id is a ULID, so range queries on it are
// range queries on creation time — the rate limiter counts a user's codes in
// the trailing window with a single key-condition query.
//
// Records are never mutated. ExpiresAt is a DynamoDB TTL set to the end of
// the rate-limit window, not the code's validity: deleting earlier would make
// the window count undercount. Validity is checked against CreatedAt.
type OneTimeCode struct {
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	CodeID    string    `json:"id" dynamodbav:"code_id"`
	Code      string    `json:"-" dynamodbav:"code"`
	SessionID string    `json:"session_id" dynamodbav:"session_id"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	ExpiresAt int64     `json:"-" dynamodbav:"expires_at"`
}
