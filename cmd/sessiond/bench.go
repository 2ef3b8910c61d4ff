package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/urfave/cli/v3"
)

func benchCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "seed sessions and measure write/read request latency in process",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "sessions", Value: 10000, Usage: "number of sessions to seed"},
			&cli.IntFlag{Name: "concurrency", Value: 64, Usage: "number of concurrent workers"},
			&cli.IntFlag{Name: "ops", Value: 50000, Usage: "operations per phase (write + read)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			sessions := int(cmd.Int("sessions"))
			concurrency := int(cmd.Int("concurrency"))
			ops := int(cmd.Int("ops"))
			if sessions <= 0 || concurrency <= 0 || ops <= 0 {
				return fmt.Errorf("sessions, concurrency, and ops must be > 0")
			}

			return withApp(ctx, cmd, func(ctx context.Context, cfg appConfig, a *app) error {
				h := a.routes()
				out := cmd.Root().Writer

				fmt.Fprintf(out, "seeding %d sessions...\n", sessions)
				startSeed := time.Now()
				cookies := make([]*http.Cookie, sessions)
				for i := range cookies {
					c, err := seedSession(h, cfg.Session.Cookie.Name, i)
					if err != nil {
						return err
					}
					cookies[i] = c
				}
				fmt.Fprintf(out, "seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

				write := runPhase(ctx, ops, concurrency, 7919, func(r *rand.Rand, i int) bool {
					c := cookies[r.Intn(len(cookies))]
					body := fmt.Sprintf(`{"value":%d,"ttl":"1m"}`, i)
					return do(h, http.MethodPut, "/session/counter", body, c) == http.StatusNoContent
				})
				read := runPhase(ctx, ops, concurrency, 6151, func(r *rand.Rand, _ int) bool {
					c := cookies[r.Intn(len(cookies))]
					return do(h, http.MethodGet, "/session/seed", "", c) == http.StatusOK
				})

				fmt.Fprintln(out, "---- results ----")
				printStats(out, "write", write)
				printStats(out, "read", read)

				snap := a.sessions.MetricsSnapshot()
				fmt.Fprintf(out, "commits: ok=%d failed=%d\n",
					snap.Counters[goSession.MetricCommitSuccess],
					snap.Counters[goSession.MetricCommitFailure],
				)
				return nil
			})
		},
	}
}

func seedSession(h http.Handler, cookieName string, i int) (*http.Cookie, error) {
	req := httptest.NewRequest(http.MethodPut, "/session/seed", bytes.NewBufferString(fmt.Sprintf(`{"value":%d}`, i)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		return nil, fmt.Errorf("seed %d: status %d", i, rec.Code)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName {
			return c, nil
		}
	}
	return nil, fmt.Errorf("seed %d: no session cookie", i)
}

func do(h http.Handler, method, path, body string, cookie *http.Cookie) int {
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func runPhase(ctx context.Context, ops, concurrency int, seed int64, op func(r *rand.Rand, i int) bool) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for ctx.Err() == nil {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				ok := op(r, i)
				d := time.Since(t0)
				if !ok {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, failures: failures}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(w io.Writer, name string, s phaseStats) {
	fmt.Fprintf(w, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
