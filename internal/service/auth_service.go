package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cmsbackend/internal/apperr"
	"cmsbackend/internal/model"
	"cmsbackend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DTOs for Request validation
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
	User      model.User `json:"user"`
}

// Claims are the JWT claims of a platform token
type Claims struct {
	Platform model.Platform `json:"platform"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller of a request
type Principal struct {
	UserID   uuid.UUID
	UserType int
	Platform model.Platform
	Token    string
}

// AuthService issues and verifies platform scoped tokens
type AuthService interface {
	Login(ctx context.Context, platform model.Platform, req LoginRequest) (*TokenResponse, error)
	Logout(ctx context.Context, token string) error
	ParseToken(ctx context.Context, platform model.Platform, token string) (*Principal, error)
	Me(ctx context.Context, userID uuid.UUID) (*model.User, error)
}

// Login lockout defaults
const (
	DefaultLoginRetryLimit   = 3
	DefaultLoginReactiveTime = 2 * time.Minute
)

type authService struct {
	users   repository.UserRepository
	tokens  repository.UserTokenRepository
	secrets map[model.Platform][]byte
	ttl     time.Duration
	now     func() time.Time

	retryLimit   int
	reactiveTime time.Duration
}

// AuthOption configures an AuthService
type AuthOption func(*authService)

// WithLoginLockout refuses logins for reactiveTime once limit consecutive
// attempts failed. A limit <= 0 disables the lockout.
func WithLoginLockout(limit int, reactiveTime time.Duration) AuthOption {
	return func(s *authService) {
		s.retryLimit = limit
		s.reactiveTime = reactiveTime
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) AuthOption {
	return func(s *authService) {
		s.now = now
	}
}

// NewAuthService returns a new instance of AuthService. Each platform signs
// with its own secret so tokens are not interchangeable.
func NewAuthService(users repository.UserRepository, tokens repository.UserTokenRepository, secrets map[model.Platform]string, ttl time.Duration, opts ...AuthOption) AuthService {
	keys := make(map[model.Platform][]byte, len(secrets))
	for p, s := range secrets {
		keys[p] = []byte(s)
	}
	s := &authService{
		users:        users,
		tokens:       tokens,
		secrets:      keys,
		ttl:          ttl,
		now:          time.Now,
		retryLimit:   DefaultLoginRetryLimit,
		reactiveTime: DefaultLoginReactiveTime,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *authService) secret(platform model.Platform) ([]byte, error) {
	key, ok := s.secrets[platform]
	if !ok || len(key) == 0 {
		return nil, fmt.Errorf("no signing secret for platform %q", platform)
	}
	return key, nil
}

func (s *authService) Login(ctx context.Context, platform model.Platform, req LoginRequest) (*TokenResponse, error) {
	user, err := s.users.GetByLogin(ctx, req.Username)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Unauthorized("incorrect username or password")
	}
	if err != nil {
		return nil, err
	}
	now := s.now()
	if s.retryLimit > 0 {
		if until, locked := user.LockedUntil(now); locked {
			return nil, apperr.Unauthorized(fmt.Sprintf("you have exceeded the number of login attempts, try again in %s", until.Sub(now).Round(time.Second)))
		}
	}
	if !user.IsPasswordMatch(req.Password) {
		if err := s.loginFailed(ctx, user, now); err != nil {
			return nil, err
		}
		return nil, apperr.Unauthorized("incorrect username or password")
	}
	if user.LoginRetryLimit != 0 || user.LoginReactiveTime != nil {
		if err := s.users.UpdateLoginState(ctx, user.ID, 0, nil); err != nil {
			return nil, fmt.Errorf("failed to reset login attempts: %w", err)
		}
		user.LoginRetryLimit, user.LoginReactiveTime = 0, nil
	}
	if !user.IsActive || user.IsDeleted {
		return nil, apperr.Unauthorized("you are blocked by admin, please contact admin")
	}
	if !model.CanLogin(user.UserType, platform) {
		return nil, apperr.Unauthorized("you are unable to access this platform")
	}

	key, err := s.secret(platform)
	if err != nil {
		return nil, err
	}
	expiresAt := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Platform: platform,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(key)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	if err := s.tokens.Create(ctx, &model.UserToken{
		UserID:    user.ID,
		Token:     signed,
		Platform:  platform,
		ExpiresAt: expiresAt,
	}); err != nil {
		return nil, fmt.Errorf("failed to store token: %w", err)
	}

	return &TokenResponse{Token: signed, ExpiresAt: expiresAt, User: *user}, nil
}

// loginFailed counts a wrong password and locks the account once the limit
// is reached; the counter restarts with the lock
func (s *authService) loginFailed(ctx context.Context, user *model.User, now time.Time) error {
	if s.retryLimit <= 0 {
		return nil
	}
	attempts := user.LoginRetryLimit + 1
	var reactiveAt *time.Time
	if attempts >= s.retryLimit {
		until := now.Add(s.reactiveTime)
		reactiveAt, attempts = &until, 0
	}
	if err := s.users.UpdateLoginState(ctx, user.ID, attempts, reactiveAt); err != nil {
		return fmt.Errorf("failed to record login attempt: %w", err)
	}
	return nil
}

// Logout revokes the presented token
func (s *authService) Logout(ctx context.Context, token string) error {
	if _, err := s.tokens.Expire(ctx, token); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// ParseToken verifies signature, expiry and platform, then checks the
// token was not revoked and its owner is still active
func (s *authService) ParseToken(ctx context.Context, platform model.Platform, raw string) (*Principal, error) {
	key, err := s.secret(platform)
	if err != nil {
		return nil, err
	}

	claims := &Claims{}
	_, err = jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, apperr.Unauthorized("invalid token")
	}
	if claims.Platform != platform {
		return nil, apperr.Unauthorized("token was issued for another platform")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperr.Unauthorized("invalid token subject")
	}

	if _, err := s.tokens.FindValid(ctx, raw, s.now()); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Unauthorized("token is expired or revoked")
		}
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Unauthorized("user not found")
		}
		return nil, err
	}
	if !user.IsActive || user.IsDeleted {
		return nil, apperr.Unauthorized("user is deactivated")
	}

	return &Principal{UserID: user.ID, UserType: user.UserType, Platform: platform, Token: raw}, nil
}

func (s *authService) Me(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}
