package code

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/auth-sms-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockCodeStore struct{ mock.Mock }

func (m *mockCodeStore) Put(ctx context.Context, c *domain.OneTimeCode) error {
	return m.Called(ctx, c).Error(0)
}
func (m *mockCodeStore) Find(ctx context.Context, userID, sessionID, code string) (*domain.OneTimeCode, error) {
	args := m.Called(ctx, userID, sessionID, code)
	if c, _ := args.Get(0).(*domain.OneTimeCode); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockCodeStore) Delete(ctx context.Context, userID, codeID string) error {
	return m.Called(ctx, userID, codeID).Error(0)
}
func (m *mockCodeStore) CountSince(ctx context.Context, userID string, cutoff time.Time) (int, error) {
	args := m.Called(ctx, userID, cutoff)
	return args.Int(0), args.Error(1)
}

func defaultConfig() Config {
	return Config{
		Alphabet:    "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789",
		Length:      8,
		TTL:         15 * time.Minute,
		WindowHours: 24,
		MaxRequests: 10,
	}
}

func testUser() *domain.User {
	return &domain.User{UserID: "u1", Username: "dportier", Mobile: "+31612345678", SecondFactorEnabled: true}
}

// --- generation ---

func TestGenerate_LengthAndAlphabet(t *testing.T) {
	const alphabet = "0123456789"
	for _, length := range []int{1, 6, 8, 32} {
		got, err := generate(alphabet, length)
		require.NoError(t, err)
		assert.Len(t, got, length)
		for _, r := range got {
			assert.True(t, strings.ContainsRune(alphabet, r), "char %q not in alphabet", r)
		}
	}
}

func TestGenerate_CustomAlphabet(t *testing.T) {
	got, err := generate("a", 5)
	require.NoError(t, err)
	assert.Equal(t, "aaaaa", got)
}

func TestGenerate_EmptyConfigRejected(t *testing.T) {
	_, err := generate("", 8)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	_, err = generate("abc", 0)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

// --- issue ---

func TestIssue_PersistsRecord(t *testing.T) {
	repo := new(mockCodeStore)
	svc := NewService(repo, defaultConfig())

	var stored *domain.OneTimeCode
	repo.On("Put", mock.Anything, mock.MatchedBy(func(c *domain.OneTimeCode) bool {
		stored = c
		return c.UserID == "u1" && c.SessionID == "sess1"
	})).Return(nil)

	c, err := svc.Issue(context.Background(), testUser(), "sess1")
	require.NoError(t, err)
	assert.Equal(t, stored, c)
	assert.Len(t, c.Code, 8)
	assert.NotEmpty(t, c.CodeID)
	// Retention outlasts the rate window so window counts stay correct.
	assert.Greater(t, c.ExpiresAt, time.Now().Add(24*time.Hour).Unix())
	repo.AssertExpectations(t)
}

func TestIssue_DistinctCodes(t *testing.T) {
	repo := new(mockCodeStore)
	svc := NewService(repo, defaultConfig())
	repo.On("Put", mock.Anything, mock.Anything).Return(nil)

	a, err := svc.Issue(context.Background(), testUser(), "s1")
	require.NoError(t, err)
	b, err := svc.Issue(context.Background(), testUser(), "s1")
	require.NoError(t, err)
	assert.NotEqual(t, a.Code, b.Code)
}

// --- verify ---

func TestVerify_ExactTupleMatch(t *testing.T) {
	repo := new(mockCodeStore)
	svc := NewService(repo, defaultConfig())
	repo.On("Find", mock.Anything, "u1", "sess1", "c0d3c0d3").
		Return(&domain.OneTimeCode{UserID: "u1", SessionID: "sess1", Code: "c0d3c0d3", CreatedAt: time.Now()}, nil)

	ok, err := svc.Verify(context.Background(), "c0d3c0d3", "u1", "sess1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_NoMatch(t *testing.T) {
	repo := new(mockCodeStore)
	svc := NewService(repo, defaultConfig())
	repo.On("Find", mock.Anything, "u1", "sess1", "wrong").
		Return(nil, domain.ErrNotFound)

	ok, err := svc.Verify(context.Background(), "wrong", "u1", "sess1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_EmptyCandidate_NoLookup(t *testing.T) {
	repo := new(mockCodeStore)
	svc := NewService(repo, defaultConfig())

	ok, err := svc.Verify(context.Background(), "", "u1", "sess1")
	require.NoError(t, err)
	assert.False(t, ok)
	repo.AssertNotCalled(t, "Find", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVerify_ExpiredCode(t *testing.T) {
	repo := new(mockCodeStore)
	svc := NewService(repo, defaultConfig())
	repo.On("Find", mock.Anything, "u1", "sess1", "c0d3c0d3").
		Return(&domain.OneTimeCode{UserID: "u1", SessionID: "sess1", Code: "c0d3c0d3", CreatedAt: time.Now().Add(-16 * time.Minute)}, nil)

	ok, err := svc.Verify(context.Background(), "c0d3c0d3", "u1", "sess1")
	require.NoError(t, err)
	assert.False(t, ok)
}

// --- consume ---

func TestConsume_DeletesRecord(t *testing.T) {
	repo := new(mockCodeStore)
	svc := NewService(repo, defaultConfig())
	repo.On("Find", mock.Anything, "u1", "sess1", "c0d3c0d3").
		Return(&domain.OneTimeCode{UserID: "u1", CodeID: "id1", SessionID: "sess1", Code: "c0d3c0d3", CreatedAt: time.Now()}, nil)
	repo.On("Delete", mock.Anything, "u1", "id1").Return(nil)

	require.NoError(t, svc.Consume(context.Background(), "c0d3c0d3", "u1", "sess1"))
	repo.AssertExpectations(t)
}

func TestConsume_ThenVerifyFails(t *testing.T) {
	repo := new(mockCodeStore)
	svc := NewService(repo, defaultConfig())
	repo.On("Find", mock.Anything, "u1", "sess1", "c0d3c0d3").
		Return(&domain.OneTimeCode{UserID: "u1", CodeID: "id1", SessionID: "sess1", Code: "c0d3c0d3", CreatedAt: time.Now()}, nil).Once()
	repo.On("Delete", mock.Anything, "u1", "id1").Return(nil)
	// after consumption the record is gone
	repo.On("Find", mock.Anything, "u1", "sess1", "c0d3c0d3").
		Return(nil, domain.ErrNotFound)

	require.NoError(t, svc.Consume(context.Background(), "c0d3c0d3", "u1", "sess1"))
	ok, err := svc.Verify(context.Background(), "c0d3c0d3", "u1", "sess1")
	require.NoError(t, err)
	assert.False(t, ok)
}

// --- rate limit ---

func TestAllowed_AtLimit_Inclusive(t *testing.T) {
	repo := new(mockCodeStore)
	svc := NewService(repo, defaultConfig())
	// the count already includes the just-persisted record
	repo.On("CountSince", mock.Anything, "u1", mock.Anything).Return(10, nil)

	ok, err := svc.Allowed(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, ok, "the Nth request, inclusive, is still allowed")
}

func TestAllowed_OverLimit(t *testing.T) {
	repo := new(mockCodeStore)
	svc := NewService(repo, defaultConfig())
	repo.On("CountSince", mock.Anything, "u1", mock.Anything).Return(11, nil)

	ok, err := svc.Allowed(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAllowed_CutoffIsTrailingWindow(t *testing.T) {
	repo := new(mockCodeStore)
	svc := NewService(repo, defaultConfig())

	var gotCutoff time.Time
	repo.On("CountSince", mock.Anything, "u1", mock.MatchedBy(func(cutoff time.Time) bool {
		gotCutoff = cutoff
		return true
	})).Return(0, nil)

	_, err := svc.Allowed(context.Background(), "u1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), gotCutoff, 5*time.Second)
}

func TestAllowed_ZeroWindowDisablesLimit(t *testing.T) {
	repo := new(mockCodeStore)
	svc := NewService(repo, Config{Alphabet: "ab", Length: 8, WindowHours: 0, MaxRequests: 10})

	ok, err := svc.Allowed(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	repo.AssertNotCalled(t, "CountSince", mock.Anything, mock.Anything, mock.Anything)
}

func TestAllowed_ZeroMaxDisablesLimit(t *testing.T) {
	repo := new(mockCodeStore)
	svc := NewService(repo, Config{Alphabet: "ab", Length: 8, WindowHours: 24, MaxRequests: 0})

	ok, err := svc.Allowed(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	repo.AssertNotCalled(t, "CountSince", mock.Anything, mock.Anything, mock.Anything)
}
