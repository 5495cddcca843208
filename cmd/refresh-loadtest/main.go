// Command refresh-loadtest drives concurrent refresh rotations against a
// Redis-backed engine and checks that every contested token has exactly one
// winner.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/sessionauth"
)

func main() {
	var (
		chains     = flag.Int("chains", 1000, "number of refresh chains to seed")
		contention = flag.Int("contention", 8, "concurrent refresh calls per token")
		rounds     = flag.Int("rounds", 5, "rotation rounds per chain")
		workers    = flag.Int("concurrency", 128, "chains processed in parallel")
		redisAddr  = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix     = flag.String("prefix", "rt-load", "refresh key prefix")
	)
	flag.Parse()

	if *chains <= 0 || *contention <= 0 || *rounds <= 0 || *workers <= 0 {
		fmt.Fprintln(os.Stderr, "chains, contention, rounds, and concurrency must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := sessionauth.DefaultConfig()
	cfg.JWT.AccessPrivateKey = []byte(strings.Repeat("a", 32))
	cfg.JWT.RefreshPrivateKey = []byte(strings.Repeat("r", 32))
	cfg.Store.RedisPrefix = *prefix
	cfg.Metrics.EnableLatencyHistograms = true

	engine, err := sessionauth.New().
		WithConfig(cfg).
		WithRedis(client).
		WithIdentityProvider(sessionauth.IdentityProviderFunc(lookup)).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	tokens := make([]string, *chains)
	fmt.Printf("seeding %d chains...\n", *chains)
	startSeed := time.Now()
	for i := range tokens {
		pair, err := engine.Issue(ctx, identityFor(fmt.Sprintf("u-%d", i)))
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue failed: %v\n", err)
			os.Exit(1)
		}
		tokens[i] = pair.RefreshToken
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	res := runRotationPhase(ctx, engine, tokens, *rounds, *contention, *workers)

	fmt.Println("---- results ----")
	printStats("refresh", res.stats)
	fmt.Printf("contests=%d single-winner=%d violations=%d unexpected-errors=%d\n",
		res.contests, res.contests-res.violations, res.violations, res.unexpected)

	snap := engine.MetricsSnapshot()
	fmt.Printf("engine: success=%d race_lost=%d revoked=%d store_unavailable=%d\n",
		snap.Counters[sessionauth.MetricRefreshSuccess],
		snap.Counters[sessionauth.MetricRefreshRaceLost],
		snap.Counters[sessionauth.MetricRefreshRevoked],
		snap.Counters[sessionauth.MetricStoreUnavailable],
	)

	if res.violations > 0 || res.unexpected > 0 {
		os.Exit(1)
	}
}

func lookup(_ context.Context, subjectID string) (sessionauth.Identity, error) {
	return identityFor(subjectID), nil
}

func identityFor(subjectID string) sessionauth.Identity {
	return sessionauth.Identity{
		SubjectID: subjectID,
		Email:     subjectID + "@load.test",
		Role:      "user",
	}
}

type rotationResult struct {
	stats      phaseStats
	contests   int64
	violations int64
	unexpected int64
}

// runRotationPhase walks every chain for the given number of rounds. Each
// round fires contention refreshes with the same token at once; the winner's
// token seeds the next round.
func runRotationPhase(ctx context.Context, engine *sessionauth.Engine, tokens []string, rounds, contention, workers int) rotationResult {
	var (
		wg         sync.WaitGroup
		cursor     int64
		contests   int64
		violations int64
		unexpected int64
		latencies  = make([]time.Duration, 0, len(tokens)*rounds*contention)
		mu         sync.Mutex
	)

	start := time.Now()
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= len(tokens) {
					return
				}
				current := tokens[i]
				for r := 0; r < rounds; r++ {
					next, winners, errs, samples := contest(ctx, engine, current, contention)
					atomic.AddInt64(&contests, 1)
					atomic.AddInt64(&unexpected, errs)
					mu.Lock()
					latencies = append(latencies, samples...)
					mu.Unlock()
					if winners != 1 {
						atomic.AddInt64(&violations, 1)
						break
					}
					current = next
				}
			}
		}()
	}
	wg.Wait()

	return rotationResult{
		stats:      computeStats(time.Since(start), latencies, violations+unexpected),
		contests:   contests,
		violations: violations,
		unexpected: unexpected,
	}
}

func contest(ctx context.Context, engine *sessionauth.Engine, token string, n int) (string, int, int64, []time.Duration) {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		next    string
		winners int
		errs    int64
		samples = make([]time.Duration, n)
		gate    = make(chan struct{})
	)
	for k := 0; k < n; k++ {
		wg.Add(1)
		go func(k int) {
			defer wg.Done()
			<-gate
			t0 := time.Now()
			pair, err := engine.Refresh(ctx, token)
			samples[k] = time.Since(t0)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
				next = pair.RefreshToken
			case errors.Is(err, sessionauth.ErrRevokedToken):
			default:
				errs++
			}
		}(k)
	}
	close(gate)
	wg.Wait()
	return next, winners, errs, samples
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
		return phaseStats{total: total}
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

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
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
