package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/storefront"
	"github.com/MrEthical07/storefront/password"
	"github.com/MrEthical07/storefront/session"
	"github.com/MrEthical07/storefront/store/memory"
	"github.com/MrEthical07/storefront/store/redisotp"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const seedPassword = "Load1234!"

type account struct {
	mu      sync.Mutex
	access  string
	refresh string
}

type discardNotifier struct{}

func (discardNotifier) Send(context.Context, storefront.Notification) error { return nil }

func main() {
	var (
		users       = flag.Int("users", 1000, "number of accounts to seed and log in")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "operations per phase (authenticate + refresh)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		revocation  = flag.Bool("revocation", true, "record rotated refresh tokens in redis")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, and ops must be > 0")
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
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := storefront.DefaultConfig()
	cfg.JWT.AccessSecret = bytes.Repeat([]byte{0x5a}, 32)
	cfg.JWT.RefreshSecret = bytes.Repeat([]byte{0xa5}, 32)
	cfg.Password.Algorithm = storefront.HashBcrypt
	cfg.Password.BcryptCost = 4
	cfg.Refresh.RevocationEnabled = *revocation

	store := memory.NewUserStore()
	engine, err := storefront.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserStore(store).
		WithOtpStore(redisotp.New(client, "lt")).
		WithNotifier(discardNotifier{}).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	accounts, err := seed(ctx, engine, store, *users)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}

	authStats := runAuthenticatePhase(ctx, engine, accounts, *ops, *concurrency)
	refreshStats := runRefreshPhase(ctx, engine, accounts, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("authenticate", authStats)
	printStats("refresh", refreshStats)
}

func seed(ctx context.Context, engine *storefront.Engine, store *memory.UserStore, n int) ([]*account, error) {
	hasher, err := password.NewBcrypt(4)
	if err != nil {
		return nil, err
	}
	hash, err := hasher.Hash(seedPassword)
	if err != nil {
		return nil, err
	}

	fmt.Printf("seeding %d accounts...\n", n)
	start := time.Now()
	out := make([]*account, n)
	for i := 0; i < n; i++ {
		identity := storefront.Identity{
			Email:         fmt.Sprintf("load-%d@example.com", i),
			PasswordHash:  hash,
			EmailVerified: true,
			Role:          storefront.RoleUser,
		}
		if err := store.Create(ctx, &identity); err != nil {
			return nil, err
		}
		rec := httptest.NewRecorder()
		if _, err := engine.Login(ctx, rec, storefront.LoginRequest{Email: identity.Email, Password: seedPassword}); err != nil {
			return nil, err
		}
		out[i] = &account{}
		out[i].access, out[i].refresh = tokens(rec)
	}
	fmt.Printf("seeded in %s\n", time.Since(start).Round(time.Millisecond))
	return out, nil
}

func tokens(rec *httptest.ResponseRecorder) (access, refresh string) {
	for _, c := range rec.Result().Cookies() {
		switch c.Name {
		case session.AccessCookie:
			access = c.Value
		case session.RefreshCookie:
			refresh = c.Value
		}
	}
	return access, refresh
}

func runAuthenticatePhase(ctx context.Context, engine *storefront.Engine, accounts []*account, ops, concurrency int) phaseStats {
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
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				acc := accounts[r.Intn(len(accounts))]
				acc.mu.Lock()
				token := acc.access
				acc.mu.Unlock()

				t0 := time.Now()
				_, err := engine.AuthenticateAccess(ctx, token)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func runRefreshPhase(ctx context.Context, engine *storefront.Engine, accounts []*account, ops, concurrency int) phaseStats {
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
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				acc := accounts[r.Intn(len(accounts))]

				acc.mu.Lock()
				rec := httptest.NewRecorder()
				t0 := time.Now()
				_, err := engine.RefreshTokens(ctx, rec, acc.refresh)
				d := time.Since(t0)
				if err == nil {
					acc.access, acc.refresh = tokens(rec)
				} else {
					atomic.AddInt64(&failures, 1)
				}
				acc.mu.Unlock()

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
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
