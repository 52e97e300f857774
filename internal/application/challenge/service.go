// Package challenge orchestrates the SMS second-factor login flow: password
// check, code issuance and delivery, password escrow across the round trip,
// and the final re-check once the user supplies the code.
package challenge

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/auth-sms-api/internal/domain"
	"github.com/auth-sms-api/internal/pkg/escrow"
	"github.com/auth-sms-api/internal/pkg/id"
	pkgtoken "github.com/auth-sms-api/internal/pkg/token"
)

type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type SubmitCodeRequest struct {
	Login     string `json:"login" validate:"required"`
	SessionID string `json:"session_id" validate:"required"`
	Code      string `json:"code"`
	Secret    string `json:"secret" validate:"required"`
}

type Service interface {
	// Login runs a password login. When the user's SMS factor is enabled it
	// opens a challenge instead of completing: a code goes out by SMS, the
	// password is escrowed, and the outcome tells the client to resubmit
	// with the code plus the escrow secret.
	Login(ctx context.Context, req LoginRequest) (*domain.LoginOutcome, error)
	// SubmitCode completes (or retries) an open challenge. The escrowed
	// password is reconstructed from the client's secret and pushed through
	// the full credential gate again together with the entered code.
	SubmitCode(ctx context.Context, req SubmitCodeRequest) (*domain.LoginOutcome, error)
}

type userStore interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type challengeStore interface {
	Put(ctx context.Context, c *domain.ChallengeSession) error
	Get(ctx context.Context, sessionID string) (*domain.ChallengeSession, error)
	Delete(ctx context.Context, sessionID string) error
}

type sessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
}

type codeService interface {
	Issue(ctx context.Context, user *domain.User, sessionID string) (*domain.OneTimeCode, error)
	Consume(ctx context.Context, candidate, userID, sessionID string) error
	Allowed(ctx context.Context, userID string) (bool, error)
}

type credentialGate interface {
	Check(ctx context.Context, u *domain.User, password string, challenge *domain.ChallengeSession) error
	EffectiveMFAKind(u *domain.User) string
}

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type jwtSigner interface {
	Sign(userID, role, sessionID string) (string, error)
}

type service struct {
	users           userStore
	challenges      challengeStore
	sessions        sessionStore
	codes           codeService
	gate            credentialGate
	sms             smsSender
	jwtProvider     jwtSigner
	secretSize      int
	challengeTTL    time.Duration
	refreshTokenDur time.Duration
}

type ServiceDeps struct {
	UserRepo        userStore
	ChallengeRepo   challengeStore
	SessionRepo     sessionStore
	Codes           codeService
	Gate            credentialGate
	SMSSender       smsSender
	JWTProvider     jwtSigner
	SecretSize      int
	ChallengeTTL    time.Duration
	RefreshTokenDur time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		users:           deps.UserRepo,
		challenges:      deps.ChallengeRepo,
		sessions:        deps.SessionRepo,
		codes:           deps.Codes,
		gate:            deps.Gate,
		sms:             deps.SMSSender,
		jwtProvider:     deps.JWTProvider,
		secretSize:      deps.SecretSize,
		challengeTTL:    deps.ChallengeTTL,
		refreshTokenDur: deps.RefreshTokenDur,
	}
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*domain.LoginOutcome, error) {
	u, err := s.lookupUser(ctx, req.Login)
	if err != nil {
		return nil, err
	}

	err = s.gate.Check(ctx, u, req.Password, nil)
	switch {
	case err == nil:
		return s.finalize(ctx, u)
	case errors.Is(err, domain.ErrNoCodeProvided):
		return s.openChallenge(ctx, u, req.Password)
	default:
		return nil, err
	}
}

// openChallenge is the NoChallenge -> CodeRequested transition. The code
// record is persisted before the rate-limit check, so the count the limiter
// compares includes the current attempt. On denial nothing is sent and
// nothing is escrowed.
func (s *service) openChallenge(ctx context.Context, u *domain.User, password string) (*domain.LoginOutcome, error) {
	sessionID := id.New()

	otc, err := s.codes.Issue(ctx, u, sessionID)
	if err != nil {
		return nil, err
	}
	allowed, err := s.codes.Allowed(ctx, u.UserID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		slog.Info("SMS code rate limit hit", "user_id", u.UserID)
		return &domain.LoginOutcome{Status: domain.LoginRateLimited}, nil
	}

	if u.Mobile == "" {
		// Enforced at profile save; reaching this means config drift.
		slog.Error("second factor enabled but no mobile number", "user_id", u.UserID)
		return &domain.LoginOutcome{Status: domain.LoginDeliveryFailed}, nil
	}
	if s.sms == nil {
		// main degrades gracefully when SNS is unreachable at startup.
		slog.Error("SMS sender not configured", "user_id", u.UserID)
		return &domain.LoginOutcome{Status: domain.LoginDeliveryFailed}, nil
	}
	if err := s.sms.SendSMS(ctx, u.Mobile, "Your login code: "+otc.Code); err != nil {
		slog.Warn("SMS delivery failed", "user_id", u.UserID, "err", err)
		return &domain.LoginOutcome{Status: domain.LoginDeliveryFailed}, nil
	}

	secret, err := escrow.GenerateSecret(s.secretSize)
	if err != nil {
		return nil, err
	}
	ciphertext, err := escrow.Obscure([]byte(password), secret)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	ch := &domain.ChallengeSession{
		SessionID:        sessionID,
		UserID:           u.UserID,
		EscrowedPassword: ciphertext,
		CreatedAt:        now,
		UpdatedAt:        now,
		ExpiresAt:        now.Add(s.challengeTTL).Unix(),
	}
	if err := s.challenges.Put(ctx, ch); err != nil {
		return nil, err
	}

	return &domain.LoginOutcome{
		Status:    domain.LoginCodeRequired,
		SessionID: sessionID,
		Secret:    base64.StdEncoding.EncodeToString(secret),
	}, nil
}

func (s *service) SubmitCode(ctx context.Context, req SubmitCodeRequest) (*domain.LoginOutcome, error) {
	u, err := s.lookupUser(ctx, req.Login)
	if err != nil {
		return nil, err
	}
	ch, err := s.challenges.Get(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("challenge not found or expired: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if ch.UserID != u.UserID {
		return nil, domain.ErrInvalidCredentials
	}

	secret, err := base64.StdEncoding.DecodeString(req.Secret)
	if err != nil {
		return nil, fmt.Errorf("malformed escrow secret: %w", domain.ErrBadRequest)
	}
	password, err := escrow.Reveal(ch.EscrowedPassword, secret)
	if err != nil {
		return nil, err
	}

	ch.PendingCode = req.Code
	ch.UpdatedAt = time.Now().UTC()
	if err := s.challenges.Put(ctx, ch); err != nil {
		return nil, err
	}

	err = s.gate.Check(ctx, u, string(password), ch)
	switch {
	case err == nil:
		if err := s.codes.Consume(ctx, req.Code, u.UserID, ch.SessionID); err != nil {
			slog.Warn("failed to consume verified code", "user_id", u.UserID, "err", err)
		}
		if err := s.challenges.Delete(ctx, ch.SessionID); err != nil {
			slog.Warn("failed to clear challenge", "session_id", ch.SessionID, "err", err)
		}
		return s.finalize(ctx, u)
	case errors.Is(err, domain.ErrWrongCode):
		// Clear the code marker but keep the escrow: the client retries with
		// its original secret, no new code is issued.
		ch.PendingCode = ""
		ch.UpdatedAt = time.Now().UTC()
		if err := s.challenges.Put(ctx, ch); err != nil {
			return nil, err
		}
		return &domain.LoginOutcome{Status: domain.LoginWrongCode, SessionID: ch.SessionID}, nil
	default:
		// ErrNoCodeProvided (empty code) or ErrInvalidCredentials (tampered
		// secret reconstructs a wrong password).
		return nil, err
	}
}

// finalize completes a fully verified login: durable session plus bearer.
func (s *service) finalize(ctx context.Context, u *domain.User) (*domain.LoginOutcome, error) {
	refreshToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	sess := &domain.Session{
		SessionID:        id.New(),
		UserID:           u.UserID,
		Enable:           true,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(s.refreshTokenDur).Unix(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, err
	}
	bearer, err := s.jwtProvider.Sign(u.UserID, u.Role, sess.SessionID)
	if err != nil {
		return nil, err
	}
	sess.User = u
	return &domain.LoginOutcome{
		Status:       domain.LoginSuccess,
		Bearer:       bearer,
		RefreshToken: refreshToken,
		Session:      sess,
	}, nil
}

func (s *service) lookupUser(ctx context.Context, login string) (*domain.User, error) {
	u, err := s.users.GetByUsername(ctx, login)
	if errors.Is(err, domain.ErrNotFound) {
		u, err = s.users.GetByEmail(ctx, login)
	}
	if err != nil {
		// Only a genuine miss is opaque; a store failure must not look like
		// a bad password.
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !u.Enable {
		return nil, domain.ErrInvalidCredentials
	}
	return u, nil
}
