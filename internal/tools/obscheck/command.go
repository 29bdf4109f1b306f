package obscheck

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/fittrack-backend/internal/tools/common"
	"github.com/sandeepkv93/fittrack-backend/internal/tools/loadgen"
	"github.com/sandeepkv93/fittrack-backend/internal/tools/ui"
)

const requestsMetric = "fittrack_http_requests_total"

type options struct {
	baseURL     string
	ci          bool
	duration    time.Duration
	rps         int
	concurrency int
	profile     string
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "obscheck", Short: "Verify readiness and request metrics of a running API"}
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "http://localhost:8080", "API base URL")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.PersistentFlags().DurationVar(&opts.duration, "duration", 6*time.Second, "traffic duration")
	cmd.PersistentFlags().IntVar(&opts.rps, "rps", 20, "target requests per second")
	cmd.PersistentFlags().IntVar(&opts.concurrency, "concurrency", 4, "traffic workers")
	cmd.PersistentFlags().StringVar(&opts.profile, "profile", "mixed", "traffic profile: auth, training, logs or mixed")
	cmd.AddCommand(newRunCommand(opts))
	return cmd
}

func newRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Generate traffic and check that it shows up in /metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			httpClient := &http.Client{Timeout: 10 * time.Second}
			c := &checker{
				baseURL: strings.TrimRight(opts.baseURL, "/"),
				client:  httpClient,
				traffic: func(ctx context.Context) (*loadgen.Result, error) {
					return loadgen.Run(ctx, loadgen.Config{
						BaseURL:     opts.baseURL,
						Profile:     opts.profile,
						Duration:    opts.duration,
						RPS:         opts.rps,
						Concurrency: opts.concurrency,
						Seed:        42,
						Client:      httpClient,
					})
				},
			}
			details, err := run(opts, "obscheck run", c.Run)
			if opts.ci {
				common.WriteCIResult(cmd.OutOrStdout(), err == nil, "obscheck run", details, err)
			}
			if err != nil {
				os.Exit(4)
			}
			return nil
		},
	}
}

func run(opts *options, title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	if opts.ci {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
		defer cancel()
		return fn(ctx)
	}
	return ui.Run(title, fn)
}

type checker struct {
	baseURL string
	client  *http.Client
	traffic func(context.Context) (*loadgen.Result, error)
}

// Run checks readiness, then asserts the request counter grew by at least
// the number of requests the traffic generator reported as sent.
func (c *checker) Run(ctx context.Context) ([]string, error) {
	if err := c.checkReady(ctx); err != nil {
		return nil, err
	}
	details := []string{"readiness: ok"}

	before, err := c.scrape(ctx)
	if err != nil {
		return details, err
	}
	res, err := c.traffic(ctx)
	if err != nil {
		return details, fmt.Errorf("generate traffic: %w", err)
	}
	details = append(details, fmt.Sprintf("traffic generated total=%d failures=%d p95=%s", res.TotalRequests, res.Failures, res.P95))
	if res.StatusClasses["5xx"] > 0 {
		return details, fmt.Errorf("traffic produced %d server errors", res.StatusClasses["5xx"])
	}

	after, err := c.scrape(ctx)
	if err != nil {
		return details, err
	}
	delta := after - before
	details = append(details, fmt.Sprintf("%s delta=%.0f", requestsMetric, delta))
	if delta < float64(res.TotalRequests) {
		return details, fmt.Errorf("%s grew by %.0f, expected at least %d", requestsMetric, delta, res.TotalRequests)
	}
	return details, nil
}

func (c *checker) checkReady(ctx context.Context) error {
	body, status, err := c.get(ctx, "/health/ready")
	if err != nil {
		return fmt.Errorf("readiness probe: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("readiness probe returned %d: %s", status, strings.TrimSpace(string(body)))
	}
	return nil
}

func (c *checker) scrape(ctx context.Context) (float64, error) {
	body, status, err := c.get(ctx, "/metrics")
	if err != nil {
		return 0, fmt.Errorf("scrape metrics: %w", err)
	}
	if status != http.StatusOK {
		return 0, fmt.Errorf("scrape metrics returned %d", status)
	}
	sum, found, err := sumCounter(strings.NewReader(string(body)), requestsMetric)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	return sum, nil
}

func (c *checker) get(ctx context.Context, path string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	return body, resp.StatusCode, err
}

// sumCounter adds up every sample of the named metric in Prometheus text
// exposition format.
func sumCounter(r io.Reader, name string) (float64, bool, error) {
	var (
		sum   float64
		found bool
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || !strings.HasPrefix(line, name) {
			continue
		}
		rest := line[len(name):]
		if rest == "" || (rest[0] != '{' && rest[0] != ' ') {
			continue
		}
		if i := strings.LastIndexByte(rest, '}'); i >= 0 {
			rest = rest[i+1:]
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			return 0, false, fmt.Errorf("malformed sample %q", line)
		}
		v, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return 0, false, fmt.Errorf("parse sample %q: %w", line, err)
		}
		sum += v
		found = true
	}
	if err := sc.Err(); err != nil {
		return 0, false, fmt.Errorf("read metrics: %w", err)
	}
	return sum, found, nil
}
