// Package credential wraps the base password check with the SMS second
// factor. The ordering is deliberate: the second factor is only ever
// evaluated after the password passes, so a failure never reveals which half
// of the combined credential was wrong.
package credential

import (
	"context"
	"fmt"

	"github.com/auth-sms-api/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// MFAKindSMS is reported for users with the SMS factor enabled; it masks any
// other second factor configured upstream.
const MFAKindSMS = "sms"

type codeVerifier interface {
	Verify(ctx context.Context, candidate, userID, sessionID string) (bool, error)
}

// Gate performs the combined credential check.
type Gate struct {
	codes codeVerifier
}

func NewGate(codes codeVerifier) *Gate {
	return &Gate{codes: codes}
}

// Check validates password, then — only when it holds — the second factor.
// challenge may be nil when no challenge has been opened yet.
//
// Returns nil when the user is fully authenticated, ErrInvalidCredentials on
// a password mismatch, ErrNoCodeProvided when the factor is enabled but no
// code has been entered, and ErrWrongCode when the entered code has no
// matching record.
func (g *Gate) Check(ctx context.Context, u *domain.User, password string, challenge *domain.ChallengeSession) error {
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return domain.ErrInvalidCredentials
	}
	if g.EffectiveMFAKind(u) != MFAKindSMS {
		return nil
	}
	if challenge == nil || challenge.PendingCode == "" {
		return domain.ErrNoCodeProvided
	}
	ok, err := g.codes.Verify(ctx, challenge.PendingCode, u.UserID, challenge.SessionID)
	if err != nil {
		return fmt.Errorf("verify code: %w", err)
	}
	if !ok {
		return domain.ErrWrongCode
	}
	return nil
}

// EffectiveMFAKind returns "sms" for users with the SMS factor enabled and
// "" otherwise, delegating the decision to whatever the base identity layer
// configures for the user.
func (g *Gate) EffectiveMFAKind(u *domain.User) string {
	if u.SecondFactorEnabled {
		return MFAKindSMS
	}
	return ""
}
