package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type Config struct {
	BaseURL     string
	Profile     string
	Duration    time.Duration
	RPS         int
	Concurrency int
	Seed        uint64
	Client      *http.Client
}

type Result struct {
	TotalRequests int            `json:"total_requests"`
	Failures      int            `json:"failures"`
	StatusClasses map[string]int `json:"status_classes"`
	Operations    map[string]int `json:"operations"`
	P50           time.Duration  `json:"p50"`
	P95           time.Duration  `json:"p95"`
}

type operation func(ctx context.Context, w *worker) (int, error)

var profiles = map[string][]string{
	"auth":     {"login", "me"},
	"training": {"list_plans", "create_plan", "list_exercises", "create_exercise"},
	"logs":     {"log_exercise", "log_bodyweight", "list_logs"},
	"mixed":    {"me", "list_plans", "create_plan", "list_exercises", "log_exercise", "log_bodyweight", "list_logs"},
}

func normalizeProfile(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if _, ok := profiles[p]; !ok {
		return "mixed"
	}
	return p
}

func classifyStatusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	default:
		return "other"
	}
}

// Run signs up one account per worker, then issues the profile's requests at
// roughly cfg.RPS until cfg.Duration elapses or ctx is cancelled.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base url is required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.Profile = normalizeProfile(cfg.Profile)
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 10
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 10 * time.Second
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 10 * time.Second}
	}

	rec := newRecorder()
	workers := make([]*worker, cfg.Concurrency)
	for i := range workers {
		w := &worker{cfg: cfg, rec: rec, rng: rand.New(rand.NewPCG(cfg.Seed, uint64(i)))}
		if err := w.bootstrap(ctx, i); err != nil {
			return nil, fmt.Errorf("bootstrap worker %d: %w", i, err)
		}
		workers[i] = w
	}

	runCtx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()
	ticks := make(chan struct{})
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer close(ticks)
		t := time.NewTicker(time.Second / time.Duration(cfg.RPS))
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
				select {
				case ticks <- struct{}{}:
				case <-gctx.Done():
					return nil
				}
			}
		}
	})
	ops := profiles[cfg.Profile]
	for _, w := range workers {
		g.Go(func() error {
			for range ticks {
				name := ops[w.rng.IntN(len(ops))]
				w.do(gctx, name)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rec.result(), nil
}

type worker struct {
	cfg        Config
	rec        *recorder
	rng        *rand.Rand
	email      string
	password   string
	token      string
	exerciseID string
}

func (w *worker) bootstrap(ctx context.Context, idx int) error {
	suffix := fmt.Sprintf("%d%d%04d", time.Now().UnixNano()%1_000_000, idx, w.rng.IntN(10000))
	username := "lg" + suffix
	w.email = username + "@loadgen.local"
	w.password = "loadgen-" + suffix

	status, _, err := w.call(ctx, "signup", http.MethodPost, "/auth/signup", map[string]string{
		"email": w.email, "username": username, "password": w.password,
	}, false)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("signup returned %d", status)
	}
	if err := w.login(ctx); err != nil {
		return err
	}
	status, body, err := w.call(ctx, "create_exercise", http.MethodPost, "/exercises", map[string]string{
		"name": "Squat", "description": "loadgen", "tracking_type": "reps_sets_weight",
	}, true)
	if err != nil {
		return err
	}
	if status != http.StatusCreated {
		return fmt.Errorf("create exercise returned %d", status)
	}
	var ex struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &ex); err != nil {
		return fmt.Errorf("decode exercise: %w", err)
	}
	w.exerciseID = ex.ID
	return nil
}

func (w *worker) login(ctx context.Context) error {
	status, body, err := w.call(ctx, "login", http.MethodPost, "/auth/login", map[string]string{
		"email": w.email, "password": w.password,
	}, false)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("login returned %d", status)
	}
	var pair struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(body, &pair); err != nil {
		return fmt.Errorf("decode login: %w", err)
	}
	w.token = pair.AccessToken
	return nil
}

func (w *worker) do(ctx context.Context, name string) {
	switch name {
	case "login":
		_ = w.login(ctx)
	case "me":
		_, _, _ = w.call(ctx, name, http.MethodGet, "/me", nil, true)
	case "list_plans":
		_, _, _ = w.call(ctx, name, http.MethodGet, "/plans", nil, true)
	case "create_plan":
		_, _, _ = w.call(ctx, name, http.MethodPost, "/plans", map[string]string{"name": fmt.Sprintf("plan-%d", w.rng.IntN(1000))}, true)
	case "list_exercises":
		_, _, _ = w.call(ctx, name, http.MethodGet, "/exercises", nil, true)
	case "create_exercise":
		_, _, _ = w.call(ctx, name, http.MethodPost, "/exercises", map[string]string{
			"name": fmt.Sprintf("ex-%d", w.rng.IntN(1000)), "tracking_type": "time_based",
		}, true)
	case "log_exercise":
		_, _, _ = w.call(ctx, name, http.MethodPost, "/exercise-logs", map[string]any{
			"exercise_id": w.exerciseID,
			"metrics":     map[string]int{"sets": 1 + w.rng.IntN(5), "reps": 1 + w.rng.IntN(12)},
		}, true)
	case "log_bodyweight":
		_, _, _ = w.call(ctx, name, http.MethodPost, "/bodyweight-logs", map[string]any{
			"value": 60 + w.rng.Float64()*40, "unit": "kg",
		}, true)
	case "list_logs":
		_, _, _ = w.call(ctx, name, http.MethodGet, "/users/exercise-logs?limit=20", nil, true)
	}
}

func (w *worker) call(ctx context.Context, op, method, path string, payload any, authed bool) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, w.cfg.BaseURL+path, body)
	if err != nil {
		return 0, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}
	start := time.Now()
	resp, err := w.cfg.Client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			w.rec.observe(op, 0, time.Since(start))
		}
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	w.rec.observe(op, resp.StatusCode, time.Since(start))
	return resp.StatusCode, data, err
}

type recorder struct {
	mu        sync.Mutex
	total     int
	failures  int
	classes   map[string]int
	ops       map[string]int
	latencies []time.Duration
}

func newRecorder() *recorder {
	return &recorder{classes: map[string]int{}, ops: map[string]int{}}
}

func (r *recorder) observe(op string, status int, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total++
	r.ops[op]++
	class := classifyStatusClass(status)
	r.classes[class]++
	if status == 0 || status >= 500 {
		r.failures++
	}
	r.latencies = append(r.latencies, d)
}

func (r *recorder) result() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	lat := append([]time.Duration(nil), r.latencies...)
	sort.Slice(lat, func(i, j int) bool { return lat[i] < lat[j] })
	return &Result{
		TotalRequests: r.total,
		Failures:      r.failures,
		StatusClasses: r.classes,
		Operations:    r.ops,
		P50:           percentile(lat, 0.50),
		P95:           percentile(lat, 0.95),
	}
}

func percentile(sorted []time.Duration, q float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(q * float64(len(sorted)-1))
	return sorted[idx]
}
