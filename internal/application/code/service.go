// Package code issues, verifies and consumes one-time SMS login codes, and
// enforces the per-user issuance rate limit.
package code

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/auth-sms-api/internal/domain"
	"github.com/auth-sms-api/internal/pkg/id"
)

type Config struct {
	// Alphabet and Length shape generated codes (default alphanumeric, 8).
	Alphabet string
	Length   int
	// TTL is how long an issued code verifies. Records are retained past it
	// for rate-limit counting; see WindowHours.
	TTL time.Duration
	// WindowHours/MaxRequests bound issuance per user. Zero for either
	// disables the limit.
	WindowHours float64
	MaxRequests int
}

type Service interface {
	// Issue generates and persists a fresh code for (user, session). It does
	// not send the SMS; that is the challenge service's job.
	Issue(ctx context.Context, user *domain.User, sessionID string) (*domain.OneTimeCode, error)
	// Verify reports whether a live (non-expired) record matches the
	// candidate exactly on code, user and session.
	Verify(ctx context.Context, candidate, userID, sessionID string) (bool, error)
	// Consume deletes a verified code so it can never be replayed.
	Consume(ctx context.Context, candidate, userID, sessionID string) error
	// Allowed reports whether the user is inside the issuance rate limit.
	// Called after the current code is persisted: the count it compares
	// against max includes that record, and the comparison is inclusive —
	// the Nth request still passes, the (N+1)th is denied.
	Allowed(ctx context.Context, userID string) (bool, error)
}

type codeStore interface {
	Put(ctx context.Context, c *domain.OneTimeCode) error
	Find(ctx context.Context, userID, sessionID, code string) (*domain.OneTimeCode, error)
	Delete(ctx context.Context, userID, codeID string) error
	CountSince(ctx context.Context, userID string, cutoff time.Time) (int, error)
}

type service struct {
	repo codeStore
	cfg  Config
}

func NewService(repo codeStore, cfg Config) Service {
	return &service{repo: repo, cfg: cfg}
}

func (s *service) Issue(ctx context.Context, user *domain.User, sessionID string) (*domain.OneTimeCode, error) {
	code, err := generate(s.cfg.Alphabet, s.cfg.Length)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	c := &domain.OneTimeCode{
		UserID:    user.UserID,
		CodeID:    id.New(),
		Code:      code,
		SessionID: sessionID,
		CreatedAt: now,
		// TTL covers the rate window, not the code's validity — expiring the
		// record earlier would make the window count undercount.
		ExpiresAt: now.Add(s.window() + time.Hour).Unix(),
	}
	if err := s.repo.Put(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) Verify(ctx context.Context, candidate, userID, sessionID string) (bool, error) {
	if candidate == "" {
		return false, nil
	}
	c, err := s.repo.Find(ctx, userID, sessionID, candidate)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if s.cfg.TTL > 0 && time.Since(c.CreatedAt) > s.cfg.TTL {
		return false, nil
	}
	return true, nil
}

func (s *service) Consume(ctx context.Context, candidate, userID, sessionID string) error {
	c, err := s.repo.Find(ctx, userID, sessionID, candidate)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, userID, c.CodeID)
}

func (s *service) Allowed(ctx context.Context, userID string) (bool, error) {
	if s.cfg.WindowHours <= 0 || s.cfg.MaxRequests <= 0 {
		return true, nil
	}
	count, err := s.repo.CountSince(ctx, userID, time.Now().Add(-s.window()))
	if err != nil {
		return false, err
	}
	return count <= s.cfg.MaxRequests, nil
}

func (s *service) window() time.Duration {
	return time.Duration(s.cfg.WindowHours * float64(time.Hour))
}

// generate draws length characters independently and uniformly from alphabet.
func generate(alphabet string, length int) (string, error) {
	if alphabet == "" || length <= 0 {
		return "", fmt.Errorf("code alphabet and length must be configured: %w", domain.ErrBadRequest)
	}
	b := make([]byte, length)
	max := big.NewInt(int64(len(alphabet)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b), nil
}
