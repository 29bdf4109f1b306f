package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sandeepkv93/fittrack-backend/internal/domain"
	"github.com/sandeepkv93/fittrack-backend/internal/repository"
	"github.com/sandeepkv93/fittrack-backend/internal/security"
)

type inMemoryAccountRepo struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]*domain.Account
	creates  int
	failNext error
}

func newInMemoryAccountRepo() *inMemoryAccountRepo {
	return &inMemoryAccountRepo{byID: map[uuid.UUID]*domain.Account{}}
}

func (r *inMemoryAccountRepo) Create(_ context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext != nil {
		err := r.failNext
		r.failNext = nil
		return err
	}
	for _, existing := range r.byID {
		if existing.Email == a.Email || existing.Username == a.Username {
			return repository.ErrDuplicateAccount
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	cp := *a
	r.byID[a.ID] = &cp
	r.creates++
	return nil
}

func (r *inMemoryAccountRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *inMemoryAccountRepo) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrAccountNotFound
}

func (r *inMemoryAccountRepo) FindByUsername(_ context.Context, username string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrAccountNotFound
}

func (r *inMemoryAccountRepo) ExistsByEmailOrUsername(_ context.Context, email, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.Email == email || a.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func newAuthServiceForTest(t *testing.T, guard AuthAbuseGuard) (*AuthService, *inMemoryAccountRepo, *security.TokenManager) {
	t.Helper()
	hasher, err := security.NewPasswordHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	tokens := security.NewTokenManager("fittrack", "fittrack-api", "abcdefghijklmnopqrstuvwxyz123456", "", 30*time.Minute, 7*24*time.Hour)
	repo := newInMemoryAccountRepo()
	return NewAuthService(repo, hasher, tokens, guard), repo, tokens
}

func TestAuthServiceSignupThenLogin(t *testing.T) {
	ctx := context.Background()
	svc, _, tokens := newAuthServiceForTest(t, nil)

	id, err := svc.Signup(ctx, SignupInput{Email: "  Ana@Example.com ", Username: "ana", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if id == uuid.Nil {
		t.Fatal("expected account id")
	}

	pair, err := svc.Login(ctx, LoginInput{Email: "ana@example.com", Password: "s3cret-pass", IP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if pair.TokenType != "Bearer" || pair.ExpiresIn != int64((30*time.Minute).Seconds()) {
		t.Fatalf("unexpected token pair metadata: %+v", pair)
	}
	claims, err := tokens.ParseAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Subject != id.String() {
		t.Fatalf("expected subject %s, got %s", id, claims.Subject)
	}
}

func TestAuthServiceDuplicateSignupCreatesNoRow(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newAuthServiceForTest(t, nil)

	if _, err := svc.Signup(ctx, SignupInput{Email: "ana@example.com", Username: "ana", Password: "password-1"}); err != nil {
		t.Fatalf("first signup: %v", err)
	}
	tests := []SignupInput{
		{Email: "ANA@example.com", Username: "other", Password: "password-2"},
		{Email: "other@example.com", Username: "ana", Password: "password-2"},
	}
	for _, in := range tests {
		if _, err := svc.Signup(ctx, in); !errors.Is(err, ErrDuplicateCredential) {
			t.Fatalf("expected ErrDuplicateCredential for %+v, got %v", in, err)
		}
	}
	if repo.creates != 1 {
		t.Fatalf("expected exactly one stored account, got %d", repo.creates)
	}
}

func TestAuthServiceSignupMapsUniqueIndexRace(t *testing.T) {
	svc, repo, _ := newAuthServiceForTest(t, nil)
	repo.failNext = repository.ErrDuplicateAccount
	_, err := svc.Signup(context.Background(), SignupInput{Email: "race@example.com", Username: "race", Password: "password-0"})
	if !errors.Is(err, ErrDuplicateCredential) {
		t.Fatalf("expected ErrDuplicateCredential, got %v", err)
	}
}

func TestAuthServiceSignupValidation(t *testing.T) {
	svc, _, _ := newAuthServiceForTest(t, nil)
	tests := []struct {
		name  string
		in    SignupInput
		field string
	}{
		{name: "missing email", in: SignupInput{Username: "a", Password: "password"}, field: "email"},
		{name: "missing username", in: SignupInput{Email: "a@example.com", Password: "password"}, field: "username"},
		{name: "missing password", in: SignupInput{Email: "a@example.com", Username: "a"}, field: "password"},
		{name: "short password", in: SignupInput{Email: "a@example.com", Username: "a", Password: "short"}, field: "password"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Signup(context.Background(), tc.in)
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != tc.field {
				t.Fatalf("expected validation error on %s, got %v", tc.field, err)
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation in chain, got %v", err)
			}
		})
	}
}

func TestAuthServiceWrongPasswordMatchesUnknownEmail(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newAuthServiceForTest(t, nil)
	if _, err := svc.Signup(ctx, SignupInput{Email: "ana@example.com", Username: "ana", Password: "right-password"}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	_, wrongPassword := svc.Login(ctx, LoginInput{Email: "ana@example.com", Password: "wrong-password"})
	_, unknownEmail := svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "right-password"})
	if !errors.Is(wrongPassword, ErrInvalidCredentials) || !errors.Is(unknownEmail, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got wrong=%v unknown=%v", wrongPassword, unknownEmail)
	}
	if wrongPassword.Error() != unknownEmail.Error() {
		t.Fatalf("expected identical errors, got %q and %q", wrongPassword, unknownEmail)
	}
}

func TestAuthServiceLoginCooldownAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	guard := NewLocalAuthAbuseGuard(AuthAbusePolicy{FreeAttempts: 2, BaseDelay: time.Minute, MaxDelay: time.Hour})
	svc, _, _ := newAuthServiceForTest(t, guard)
	if _, err := svc.Signup(ctx, SignupInput{Email: "ana@example.com", Username: "ana", Password: "right-password"}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := svc.Login(ctx, LoginInput{Email: "ana@example.com", Password: "wrong-password", IP: "10.0.0.9"}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected invalid credentials, got %v", i, err)
		}
	}

	_, err := svc.Login(ctx, LoginInput{Email: "ana@example.com", Password: "right-password", IP: "10.0.0.9"})
	var throttled *ThrottledError
	if !errors.As(err, &throttled) || throttled.RetryAfter <= 0 {
		t.Fatalf("expected throttled error with retry-after, got %v", err)
	}
	if !errors.Is(err, ErrThrottled) {
		t.Fatalf("expected ErrThrottled in chain, got %v", err)
	}
}

func TestAuthServiceSignupCooldownAfterRepeatedDuplicates(t *testing.T) {
	ctx := context.Background()
	guard := NewLocalAuthAbuseGuard(AuthAbusePolicy{FreeAttempts: 1, BaseDelay: time.Minute, MaxDelay: time.Hour})
	svc, repo, _ := newAuthServiceForTest(t, guard)
	if _, err := svc.Signup(ctx, SignupInput{Email: "ana@example.com", Username: "ana", Password: "right-password", IP: "10.0.0.5"}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	for i, username := range []string{"ana2", "ana3"} {
		_, err := svc.Signup(ctx, SignupInput{Email: "ana@example.com", Username: username, Password: "right-password", IP: "10.0.0.5"})
		if !errors.Is(err, ErrDuplicateCredential) {
			t.Fatalf("duplicate %d: expected duplicate credential, got %v", i, err)
		}
	}

	_, err := svc.Signup(ctx, SignupInput{Email: "bo@example.com", Username: "bo", Password: "right-password", IP: "10.0.0.5"})
	var throttled *ThrottledError
	if !errors.As(err, &throttled) || throttled.RetryAfter <= 0 || throttled.RetryAfter > time.Minute {
		t.Fatalf("expected signup cooldown for the probing address, got %v", err)
	}
	if repo.creates != 1 {
		t.Fatalf("expected only the first account to be created, got %d", repo.creates)
	}

	if _, err := svc.Signup(ctx, SignupInput{Email: "bo@example.com", Username: "bo", Password: "right-password", IP: "10.0.0.6"}); err != nil {
		t.Fatalf("expected other address to sign up, got %v", err)
	}
	if _, err := svc.Login(ctx, LoginInput{Email: "ana@example.com", Password: "right-password", IP: "10.0.0.5"}); err != nil {
		t.Fatalf("signup cooldown must not block login, got %v", err)
	}
}

func TestAuthServiceRefresh(t *testing.T) {
	ctx := context.Background()
	svc, repo, tokens := newAuthServiceForTest(t, nil)
	id, err := svc.Signup(ctx, SignupInput{Email: "ana@example.com", Username: "ana", Password: "password-0"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	pair, err := svc.Login(ctx, LoginInput{Email: "ana@example.com", Password: "password-0"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	next, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := tokens.ParseAccessToken(next.AccessToken); err != nil {
		t.Fatalf("refreshed access token invalid: %v", err)
	}

	if _, err := svc.Refresh(ctx, pair.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected access token to be refused as refresh token, got %v", err)
	}

	delete(repo.byID, id)
	if _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized for deleted account, got %v", err)
	}
}

func TestAuthServiceMe(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newAuthServiceForTest(t, nil)
	id, err := svc.Signup(ctx, SignupInput{Email: "ana@example.com", Username: "ana", Password: "password-0"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	profile, err := svc.Me(ctx, id)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if profile.ID != id || profile.Email != "ana@example.com" || profile.Username != "ana" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if _, err := svc.Me(ctx, uuid.New()); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized for unknown account, got %v", err)
	}
}

func TestThrottledErrorMessage(t *testing.T) {
	err := &ThrottledError{RetryAfter: 1500 * time.Millisecond}
	if !strings.Contains(err.Error(), "retry after 2s") {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}
