package health

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type CheckResult struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

type Checker interface {
	Check(ctx context.Context) CheckResult
}

type CheckerFunc struct {
	Name string
	Fn   func(ctx context.Context) error
}

func (c CheckerFunc) Check(ctx context.Context) CheckResult {
	if err := c.Fn(ctx); err != nil {
		return CheckResult{Name: c.Name, Healthy: false, Error: err.Error()}
	}
	return CheckResult{Name: c.Name, Healthy: true}
}

// DBChecker pings the pool behind db.
func DBChecker(db *gorm.DB) Checker {
	return CheckerFunc{Name: "db", Fn: func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}}
}

func RedisChecker(client redis.UniversalClient) Checker {
	return CheckerFunc{Name: "redis", Fn: func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}}
}

// ProbeRunner runs every checker in parallel, each bounded by timeout. A
// non-zero cacheTTL reuses the last outcome for that long.
type ProbeRunner struct {
	timeout  time.Duration
	cacheTTL time.Duration
	checkers []Checker
	now      func() time.Time

	mu       sync.Mutex
	cachedAt time.Time
	ready    bool
	results  []CheckResult
}

func NewProbeRunner(timeout, cacheTTL time.Duration, checkers ...Checker) *ProbeRunner {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ProbeRunner{timeout: timeout, cacheTTL: cacheTTL, checkers: checkers, now: time.Now}
}

func (p *ProbeRunner) Ready(ctx context.Context) (bool, []CheckResult) {
	if p.cacheTTL > 0 {
		p.mu.Lock()
		if !p.cachedAt.IsZero() && p.now().Sub(p.cachedAt) < p.cacheTTL {
			ready, results := p.ready, append([]CheckResult(nil), p.results...)
			p.mu.Unlock()
			return ready, results
		}
		p.mu.Unlock()
	}

	results := make([]CheckResult, len(p.checkers))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range p.checkers {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, p.timeout)
			defer cancel()
			results[i] = c.Check(cctx)
			return nil
		})
	}
	_ = g.Wait()

	ready := true
	for _, r := range results {
		if !r.Healthy {
			ready = false
			break
		}
	}

	if p.cacheTTL > 0 {
		p.mu.Lock()
		p.cachedAt = p.now()
		p.ready = ready
		p.results = append([]CheckResult(nil), results...)
		p.mu.Unlock()
	}
	return ready, results
}
