package credential

import (
	"context"
	"testing"

	"github.com/auth-sms-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mockCodeVerifier struct{ mock.Mock }

func (m *mockCodeVerifier) Verify(ctx context.Context, candidate, userID, sessionID string) (bool, error) {
	args := m.Called(ctx, candidate, userID, sessionID)
	return args.Bool(0), args.Error(1)
}

func userWithPassword(t *testing.T, password string, secondFactor bool) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &domain.User{
		UserID:              "u1",
		Username:            "dportier",
		Mobile:              "+31612345678",
		PasswordHash:        string(hash),
		SecondFactorEnabled: secondFactor,
	}
}

func TestCheck_WrongPassword(t *testing.T) {
	codes := new(mockCodeVerifier)
	g := NewGate(codes)
	u := userWithPassword(t, "correct horse", true)

	err := g.Check(context.Background(), u, "wrong", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	// the second factor must never be consulted before the password passes
	codes.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCheck_SecondFactorDisabled_Bypass(t *testing.T) {
	codes := new(mockCodeVerifier)
	g := NewGate(codes)
	u := userWithPassword(t, "correct horse", false)

	assert.NoError(t, g.Check(context.Background(), u, "correct horse", nil))
	codes.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCheck_NoChallenge_NoCodeProvided(t *testing.T) {
	g := NewGate(new(mockCodeVerifier))
	u := userWithPassword(t, "correct horse", true)

	err := g.Check(context.Background(), u, "correct horse", nil)
	assert.ErrorIs(t, err, domain.ErrNoCodeProvided)
}

func TestCheck_EmptyPendingCode_NoCodeProvided(t *testing.T) {
	g := NewGate(new(mockCodeVerifier))
	u := userWithPassword(t, "correct horse", true)
	ch := &domain.ChallengeSession{SessionID: "sess1", UserID: "u1"}

	err := g.Check(context.Background(), u, "correct horse", ch)
	assert.ErrorIs(t, err, domain.ErrNoCodeProvided)
}

func TestCheck_WrongCode(t *testing.T) {
	codes := new(mockCodeVerifier)
	codes.On("Verify", mock.Anything, "bogus", "u1", "sess1").Return(false, nil)
	g := NewGate(codes)
	u := userWithPassword(t, "correct horse", true)
	ch := &domain.ChallengeSession{SessionID: "sess1", UserID: "u1", PendingCode: "bogus"}

	err := g.Check(context.Background(), u, "correct horse", ch)
	assert.ErrorIs(t, err, domain.ErrWrongCode)
}

func TestCheck_CorrectCode(t *testing.T) {
	codes := new(mockCodeVerifier)
	codes.On("Verify", mock.Anything, "c0d3c0d3", "u1", "sess1").Return(true, nil)
	g := NewGate(codes)
	u := userWithPassword(t, "correct horse", true)
	ch := &domain.ChallengeSession{SessionID: "sess1", UserID: "u1", PendingCode: "c0d3c0d3"}

	assert.NoError(t, g.Check(context.Background(), u, "correct horse", ch))
}

func TestEffectiveMFAKind(t *testing.T) {
	g := NewGate(new(mockCodeVerifier))
	assert.Equal(t, "sms", g.EffectiveMFAKind(&domain.User{SecondFactorEnabled: true}))
	assert.Equal(t, "", g.EffectiveMFAKind(&domain.User{SecondFactorEnabled: false}))
}
