package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/sandeepkv93/fittrack-backend/internal/domain"
	"github.com/sandeepkv93/fittrack-backend/internal/observability"
	"github.com/sandeepkv93/fittrack-backend/internal/repository"
)

const (
	minPasswordLength = 8
	// bcrypt ignores input past 72 bytes.
	maxPasswordLength = 72
	maxUsernameLength = 32
)

type SignupInput struct {
	Email    string
	Username string
	Password string
	IP       string
}

type LoginInput struct {
	Email    string
	Password string
	IP       string
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type AuthService struct {
	accounts repository.AccountRepository
	hasher   PasswordHasher
	tokens   TokenIssuer
	guard    AuthAbuseGuard
}

func NewAuthService(accounts repository.AccountRepository, hasher PasswordHasher, tokens TokenIssuer, guard AuthAbuseGuard) *AuthService {
	return &AuthService{accounts: accounts, hasher: hasher, tokens: tokens, guard: guard}
}

// Signup registers a new account. It does not log the caller in.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (uuid.UUID, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	username := strings.TrimSpace(in.Username)
	if email == "" {
		return uuid.Nil, invalid("email", "is required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return uuid.Nil, invalid("email", "must be a valid email address")
	}
	if username == "" {
		return uuid.Nil, invalid("username", "is required")
	}
	if utf8.RuneCountInString(username) > maxUsernameLength {
		return uuid.Nil, invalid("username", "must be at most %d characters", maxUsernameLength)
	}
	if in.Password == "" {
		return uuid.Nil, invalid("password", "is required")
	}
	if len(in.Password) < minPasswordLength || len(in.Password) > maxPasswordLength {
		return uuid.Nil, invalid("password", "must be between %d and %d bytes", minPasswordLength, maxPasswordLength)
	}

	if cooldown := s.checkGuard(ctx, AuthAbuseScopeSignup, email, in.IP); cooldown > 0 {
		observability.RecordAuthSignup(ctx, "throttled")
		return uuid.Nil, &ThrottledError{RetryAfter: cooldown}
	}

	exists, err := s.accounts.ExistsByEmailOrUsername(ctx, email, username)
	if err != nil {
		observability.RecordAuthSignup(ctx, "error")
		return uuid.Nil, fmt.Errorf("check account uniqueness: %w", err)
	}
	if exists {
		s.registerFailure(ctx, AuthAbuseScopeSignup, email, in.IP)
		observability.RecordAuthSignup(ctx, "duplicate")
		return uuid.Nil, ErrDuplicateCredential
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		observability.RecordAuthSignup(ctx, "error")
		return uuid.Nil, err
	}
	account := &domain.Account{Email: email, Username: username, PasswordHash: hash}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateAccount) {
			s.registerFailure(ctx, AuthAbuseScopeSignup, email, in.IP)
			observability.RecordAuthSignup(ctx, "duplicate")
			return uuid.Nil, ErrDuplicateCredential
		}
		observability.RecordAuthSignup(ctx, "error")
		return uuid.Nil, fmt.Errorf("create account: %w", err)
	}
	observability.RecordAuthSignup(ctx, "success")
	return account.ID, nil
}

// Login verifies credentials and issues a token pair. Unknown emails and wrong
// passwords both yield ErrInvalidCredentials after the same bcrypt work.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*TokenPair, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if cooldown := s.checkGuard(ctx, AuthAbuseScopeLogin, email, in.IP); cooldown > 0 {
		observability.RecordAuthLogin(ctx, "throttled")
		return nil, &ThrottledError{RetryAfter: cooldown}
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrAccountNotFound) {
			observability.RecordAuthLogin(ctx, "error")
			return nil, fmt.Errorf("find account: %w", err)
		}
		s.hasher.VerifyDummy(in.Password)
		s.registerFailure(ctx, AuthAbuseScopeLogin, email, in.IP)
		observability.RecordAuthLogin(ctx, "invalid_credentials")
		return nil, ErrInvalidCredentials
	}
	if !s.hasher.Verify(in.Password, account.PasswordHash) {
		s.registerFailure(ctx, AuthAbuseScopeLogin, email, in.IP)
		observability.RecordAuthLogin(ctx, "invalid_credentials")
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issue(account.ID)
	if err != nil {
		observability.RecordAuthLogin(ctx, "error")
		return nil, err
	}
	if s.guard != nil {
		if err := s.guard.Reset(ctx, AuthAbuseScopeLogin, email, in.IP); err != nil {
			slog.WarnContext(ctx, "auth abuse guard reset failed", "error", err)
		}
	}
	observability.RecordAuthLogin(ctx, "success")
	return pair, nil
}

// Refresh exchanges a valid refresh token for a new pair. Refresh tokens are
// stateless, so a token stays usable until it expires.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		observability.RecordAuthRefresh(ctx, "invalid_token")
		return nil, ErrUnauthorized
	}
	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		observability.RecordAuthRefresh(ctx, "invalid_subject")
		return nil, ErrUnauthorized
	}
	if _, err := s.accounts.FindByID(ctx, accountID); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			observability.RecordAuthRefresh(ctx, "unknown_account")
			return nil, ErrUnauthorized
		}
		observability.RecordAuthRefresh(ctx, "error")
		return nil, fmt.Errorf("find account: %w", err)
	}
	pair, err := s.issue(accountID)
	if err != nil {
		observability.RecordAuthRefresh(ctx, "error")
		return nil, err
	}
	observability.RecordAuthRefresh(ctx, "success")
	return pair, nil
}

func (s *AuthService) Me(ctx context.Context, accountID uuid.UUID) (*domain.Profile, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	p := account.Profile()
	return &p, nil
}

func (s *AuthService) issue(accountID uuid.UUID) (*TokenPair, error) {
	access, err := s.tokens.SignAccessToken(accountID.String())
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.tokens.SignRefreshToken(accountID.String())
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}

func (s *AuthService) checkGuard(ctx context.Context, scope AuthAbuseScope, email, ip string) time.Duration {
	if s.guard == nil {
		return 0
	}
	d, err := s.guard.Check(ctx, scope, email, ip)
	if err != nil {
		slog.WarnContext(ctx, "auth abuse guard check failed, allowing attempt", "error", err)
		return 0
	}
	return d
}

func (s *AuthService) registerFailure(ctx context.Context, scope AuthAbuseScope, email, ip string) {
	if s.guard == nil {
		return
	}
	if _, err := s.guard.RegisterFailure(ctx, scope, email, ip); err != nil {
		slog.WarnContext(ctx, "auth abuse guard register failed", "error", err)
	}
}
