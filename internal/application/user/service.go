package user

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/auth-sms-api/internal/domain"
	"github.com/auth-sms-api/internal/pkg/id"
	"github.com/auth-sms-api/internal/pkg/token"
	"golang.org/x/crypto/bcrypt"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldUsername            = "username"
	fieldEmail               = "email"
	fieldMobile              = "mobile"
	fieldFirstName           = "first_name"
	fieldLastName            = "last_name"
	fieldRole                = "role"
	fieldEnable              = "enable"
	fieldPasswordHash        = "password_hash"
	fieldSecondFactorEnabled = "second_factor_enabled"
)

type Service interface {
	Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error)
	RegisterWithSession(ctx context.Context, req domain.CreateUserRequest) (*domain.Session, string, string, error)
	List(ctx context.Context, limit int, cursor string) ([]domain.User, string, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, req domain.UpdateUserRequest) (*domain.User, error)
	Delete(ctx context.Context, userID string) error
	ChangePassword(ctx context.Context, userID, sessionID, currentPassword, newPassword, code string) error
}

type userStore interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.User, string, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	SoftDelete(ctx context.Context, userID string) error
}

type sessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
	SoftDeleteByUser(ctx context.Context, userID string) error
}

type jwtSigner interface {
	Sign(userID, role, sessionID string) (string, error)
}

type codeService interface {
	Issue(ctx context.Context, user *domain.User, sessionID string) (*domain.OneTimeCode, error)
	Verify(ctx context.Context, candidate, userID, sessionID string) (bool, error)
	Consume(ctx context.Context, candidate, userID, sessionID string) error
	Allowed(ctx context.Context, userID string) (bool, error)
}

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type service struct {
	repo            userStore
	sessionRepo     sessionStore
	jwtProvider     jwtSigner
	codes           codeService
	sms             smsSender
	refreshTokenDur time.Duration
}

type ServiceDeps struct {
	UserRepo        userStore
	SessionRepo     sessionStore
	JWTProvider     jwtSigner
	Codes           codeService
	SMSSender       smsSender
	RefreshTokenDur time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:            deps.UserRepo,
		sessionRepo:     deps.SessionRepo,
		jwtProvider:     deps.JWTProvider,
		codes:           deps.Codes,
		sms:             deps.SMSSender,
		refreshTokenDur: deps.RefreshTokenDur,
	}
}

func (s *service) Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
		return nil, fmt.Errorf("username already taken: %w", domain.ErrConflict)
	}
	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}
	// The challenge flow can't deliver a code without a destination, so the
	// constraint is enforced here at save time, never at login time.
	if req.SecondFactorEnabled && req.Mobile == "" {
		return nil, fmt.Errorf("mobile number required when SMS verification is enabled: %w", domain.ErrBadRequest)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:              id.New(),
		Username:            req.Username,
		Email:               req.Email,
		Mobile:              req.Mobile,
		PasswordHash:        string(hash),
		FirstName:           req.FirstName,
		LastName:            req.LastName,
		SecondFactorEnabled: req.SecondFactorEnabled,
		Role:                domain.RoleUser,
		Enable:              true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.repo.Put(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// RegisterWithSession registers the user and logs them in straight away.
// Self-registration never requires the SMS factor: the user just proved
// control of the account by creating it.
func (s *service) RegisterWithSession(ctx context.Context, req domain.CreateUserRequest) (*domain.Session, string, string, error) {
	u, err := s.Register(ctx, req)
	if err != nil {
		return nil, "", "", err
	}
	refreshToken, err := token.NewRefreshToken()
	if err != nil {
		return nil, "", "", err
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
	if err := s.sessionRepo.Put(ctx, sess); err != nil {
		return nil, "", "", err
	}
	bearer, err := s.jwtProvider.Sign(u.UserID, u.Role, sess.SessionID)
	if err != nil {
		return nil, "", "", err
	}
	sess.User = u
	return sess, bearer, refreshToken, nil
}

func (s *service) List(ctx context.Context, limit int, cursor string) ([]domain.User, string, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ScanPage(ctx, int32(limit), cursor)
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}

func (s *service) Update(ctx context.Context, userID string, req domain.UpdateUserRequest) (*domain.User, error) {
	current, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Resolve the post-update pair before writing anything.
	mobile := current.Mobile
	if req.Mobile != nil {
		mobile = *req.Mobile
	}
	enabled := current.SecondFactorEnabled
	if req.SecondFactorEnabled != nil {
		enabled = *req.SecondFactorEnabled
	}
	if enabled && mobile == "" {
		return nil, fmt.Errorf("mobile number required when SMS verification is enabled: %w", domain.ErrBadRequest)
	}

	updates := map[string]interface{}{}
	if req.Username != nil {
		updates[fieldUsername] = *req.Username
	}
	if req.Email != nil {
		updates[fieldEmail] = *req.Email
	}
	if req.Mobile != nil {
		updates[fieldMobile] = *req.Mobile
	}
	if req.FirstName != nil {
		updates[fieldFirstName] = *req.FirstName
	}
	if req.LastName != nil {
		updates[fieldLastName] = *req.LastName
	}
	if req.SecondFactorEnabled != nil {
		updates[fieldSecondFactorEnabled] = *req.SecondFactorEnabled
	}
	if req.Role != nil {
		updates[fieldRole] = *req.Role
	}
	if req.Enable != nil {
		updates[fieldEnable] = *req.Enable
	}
	if len(updates) == 0 {
		return current, nil
	}
	if err := s.repo.Update(ctx, userID, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID)
}

func (s *service) Delete(ctx context.Context, userID string) error {
	if err := s.repo.SoftDelete(ctx, userID); err != nil {
		return err
	}
	return s.sessionRepo.SoftDeleteByUser(ctx, userID)
}

// ChangePassword re-checks the full credential before rewriting the hash.
// For users with the SMS factor that includes a fresh code: the first call
// (empty code) sends one and reports ErrNoCodeProvided, the follow-up call
// must carry it. Changing the password is exactly the kind of action the
// second factor exists to protect.
func (s *service) ChangePassword(ctx context.Context, userID, sessionID, currentPassword, newPassword, code string) error {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(currentPassword)); err != nil {
		return fmt.Errorf("current password incorrect: %w", domain.ErrUnauthorized)
	}
	if u.SecondFactorEnabled {
		if err := s.requireCode(ctx, u, sessionID, code); err != nil {
			return err
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.Update(ctx, userID, map[string]interface{}{fieldPasswordHash: string(hash)})
}

// requireCode guards sensitive self-service actions with the SMS factor.
// Issuance runs through the same persist-then-count rate limit as logins.
func (s *service) requireCode(ctx context.Context, u *domain.User, sessionID, code string) error {
	if code == "" {
		otc, err := s.codes.Issue(ctx, u, sessionID)
		if err != nil {
			return err
		}
		allowed, err := s.codes.Allowed(ctx, u.UserID)
		if err != nil {
			return err
		}
		if !allowed {
			return domain.ErrRateLimited
		}
		if u.Mobile == "" || s.sms == nil {
			return domain.ErrDeliveryFailed
		}
		if err := s.sms.SendSMS(ctx, u.Mobile, "Your password change code: "+otc.Code); err != nil {
			slog.Warn("SMS delivery failed", "user_id", u.UserID, "err", err)
			return domain.ErrDeliveryFailed
		}
		return domain.ErrNoCodeProvided
	}
	ok, err := s.codes.Verify(ctx, code, u.UserID, sessionID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrWrongCode
	}
	return s.codes.Consume(ctx, code, u.UserID, sessionID)
}
