package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/sandeepkv93/fittrack-backend/internal/client/session"
)

var ErrNotLoggedIn = errors.New("not logged in")

// APIError is a non-2xx response decoded from the server's error envelope.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("%s (%d %s)", e.Message, e.Status, e.Code)
}

// Client talks to the fittrack API. Authenticated calls take their bearer
// token from the session store through an oauth2.Transport.
type Client struct {
	baseURL string
	plain   *http.Client
	authed  *http.Client
	store   session.Store
	now     func() time.Time
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.plain = hc }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func New(baseURL string, store session.Store, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		plain:   &http.Client{Timeout: 15 * time.Second},
		store:   store,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	base := c.plain.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c.authed = &http.Client{
		Timeout:   c.plain.Timeout,
		Transport: &oauth2.Transport{Source: &storeTokenSource{client: c}, Base: base},
	}
	return c
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

func (c *Client) Signup(ctx context.Context, email, username, password string) (string, error) {
	var out struct {
		UserID string `json:"userId"`
	}
	body := map[string]string{"email": email, "username": username, "password": password, "confirmPassword": password}
	if err := c.do(ctx, c.plain, http.MethodPost, "/auth/signup", body, &out); err != nil {
		return "", err
	}
	return out.UserID, nil
}

// Login exchanges credentials for a token pair and caches it.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var pair tokenPair
	if err := c.do(ctx, c.plain, http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, &pair); err != nil {
		return err
	}
	return c.save(ctx, email, pair)
}

func (c *Client) Logout(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// ValidateSession reports whether the cached token is still accepted. Any
// non-200 answer from /me clears the cache. Transport failures do not.
func (c *Client) ValidateSession(ctx context.Context) (bool, error) {
	if _, err := c.store.Load(ctx); err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return false, nil
		}
		return false, err
	}
	_, err := c.Me(ctx)
	if err == nil {
		return true, nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) || errors.Is(err, ErrNotLoggedIn) {
		if cerr := c.store.Clear(ctx); cerr != nil {
			return false, cerr
		}
		return false, nil
	}
	return false, err
}

func (c *Client) Me(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := c.do(ctx, c.authed, http.MethodGet, "/me", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) ListPlans(ctx context.Context) ([]Plan, error) {
	var out []Plan
	return out, c.do(ctx, c.authed, http.MethodGet, "/plans", nil, &out)
}

func (c *Client) CreatePlan(ctx context.Context, name string) (*Plan, error) {
	var out Plan
	if err := c.do(ctx, c.authed, http.MethodPost, "/plans", map[string]string{"name": name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListExercises(ctx context.Context) ([]Exercise, error) {
	var out []Exercise
	return out, c.do(ctx, c.authed, http.MethodGet, "/exercises", nil, &out)
}

func (c *Client) CreateExercise(ctx context.Context, name, description, trackingType string) (*Exercise, error) {
	var out Exercise
	body := map[string]string{"name": name, "description": description, "tracking_type": trackingType}
	if err := c.do(ctx, c.authed, http.MethodPost, "/exercises", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) LogExercise(ctx context.Context, exerciseID, routineID string, metrics map[string]any) (*ExerciseLog, error) {
	body := map[string]any{"exercise_id": exerciseID, "metrics": metrics}
	if routineID != "" {
		body["routine_id"] = routineID
	}
	var out ExerciseLog
	if err := c.do(ctx, c.authed, http.MethodPost, "/exercise-logs", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) LogBodyweight(ctx context.Context, value float64, unit, notes string) (*BodyweightLog, error) {
	body := map[string]any{"value": value, "unit": unit}
	if notes != "" {
		body["notes"] = notes
	}
	var out BodyweightLog
	if err := c.do(ctx, c.authed, http.MethodPost, "/bodyweight-logs", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListExerciseLogs(ctx context.Context, page, limit int) (*ExerciseLogPage, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", fmt.Sprint(page))
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	path := "/users/exercise-logs"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out ExerciseLogPage
	if err := c.do(ctx, c.authed, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListBodyweight(ctx context.Context) ([]BodyweightLog, error) {
	var out []BodyweightLog
	return out, c.do(ctx, c.authed, http.MethodGet, "/users/bodyweight-logs", nil, &out)
}

func (c *Client) refresh(ctx context.Context, tok *session.Token) (*session.Token, error) {
	var pair tokenPair
	if err := c.do(ctx, c.plain, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": tok.RefreshToken}, &pair); err != nil {
		return nil, err
	}
	if err := c.save(ctx, tok.Email, pair); err != nil {
		return nil, err
	}
	return c.store.Load(ctx)
}

func (c *Client) save(ctx context.Context, email string, pair tokenPair) error {
	if pair.AccessToken == "" {
		return errors.New("server returned no access token")
	}
	tok := &session.Token{
		Email:        email,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
	}
	if pair.ExpiresIn > 0 {
		tok.ExpiresAt = c.now().Add(time.Duration(pair.ExpiresIn) * time.Second)
	}
	return c.store.Save(ctx, tok)
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := hc.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) && errors.Is(uerr.Err, ErrNotLoggedIn) {
			return ErrNotLoggedIn
		}
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(data, apiErr)
		return apiErr
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// storeTokenSource reads the cached token on every request so a logout in
// another process takes effect immediately. Expired tokens are refreshed
// when a refresh token is available.
type storeTokenSource struct {
	client *Client
}

func (s *storeTokenSource) Token() (*oauth2.Token, error) {
	ctx := context.Background()
	tok, err := s.client.store.Load(ctx)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return nil, ErrNotLoggedIn
		}
		return nil, err
	}
	if tok.Expired(s.client.now()) {
		if tok.RefreshToken == "" {
			return nil, ErrNotLoggedIn
		}
		if tok, err = s.client.refresh(ctx, tok); err != nil {
			return nil, fmt.Errorf("refresh session: %w", err)
		}
	}
	tokenType := tok.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &oauth2.Token{AccessToken: tok.AccessToken, TokenType: tokenType, RefreshToken: tok.RefreshToken, Expiry: tok.ExpiresAt}, nil
}
