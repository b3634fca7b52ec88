package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/devserver"
	promexport "github.com/MrEthical07/goSession/metrics/export/prometheus"
	"github.com/MrEthical07/goSession/pipeline"
	"github.com/MrEthical07/goSession/routes"
	"github.com/MrEthical07/goSession/session"
)

type runOptions struct {
	requests    int
	rounds      int
	storage     string
	redisAddr   string
	sqlitePath  string
	reject      string
	resetDelay  time.Duration
	latency     time.Duration
	dumpMetrics bool
	verbose     bool
}

func runCmd() *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run expiry rounds and print a report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&opts.requests, "requests", "n", 200, "concurrent calls per round")
	f.IntVarP(&opts.rounds, "rounds", "r", 3, "sign-in/expire rounds")
	f.StringVar(&opts.storage, "storage", "memory", "durable store: memory, redis or sqlite")
	f.StringVar(&opts.redisAddr, "redis-addr", "", "redis address; empty starts miniredis")
	f.StringVar(&opts.sqlitePath, "sqlite-path", "", "sqlite file; empty uses a temp dir")
	f.StringVar(&opts.reject, "reject", "envelope", "backend 401 style: envelope or status")
	f.DurationVar(&opts.resetDelay, "reset-delay", pipeline.DefaultResetDelay, "expiry guard reset delay")
	f.DurationVar(&opts.latency, "latency", 5*time.Millisecond, "added backend latency per call")
	f.BoolVar(&opts.dumpMetrics, "dump-metrics", false, "print Prometheus metrics after the run")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log client events to stderr")

	return cmd
}

func run(ctx context.Context, out io.Writer, opts runOptions) error {
	if opts.requests <= 0 || opts.rounds <= 0 {
		return errors.New("requests and rounds must be > 0")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if opts.verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	mode := devserver.RejectEnvelope
	switch opts.reject {
	case "envelope":
	case "status":
		mode = devserver.RejectStatus
	default:
		return fmt.Errorf("unknown reject style %q", opts.reject)
	}

	backend, err := devserver.New(devserver.Config{
		TokenKey: []byte("gosession-loadtest-signing-key-0000"),
		Reject:   mode,
		Latency:  opts.latency,
		Logger:   logger,
	}, devserver.User{Username: "load", Password: "Load#1234", Menu: []session.MenuNode{
		{Name: "Dashboard", Path: "/dashboard"},
	}})
	if err != nil {
		return err
	}
	ts := httptest.NewServer(backend)
	defer ts.Close()

	cfg := goSession.DefaultConfig()
	cfg.Pipeline.BaseURL = ts.URL + "/api"
	cfg.Guard.ResetDelay = opts.resetDelay
	cfg.Audit.Enabled = false
	cfg.Logger = logger

	history := routes.NewHistory("/")
	b := goSession.New().
		WithNavigator(history).
		WithNotifier(pipeline.NotifierFunc(func(context.Context, pipeline.Notice) {}))

	cleanup, err := configureStorage(&cfg, b, opts)
	if err != nil {
		return err
	}
	defer cleanup()

	client, err := b.WithConfig(cfg).Build(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	fmt.Fprintf(out, "backend=%s storage=%s reject=%s requests=%d rounds=%d\n",
		ts.URL, cfg.Storage.Backend, opts.reject, opts.requests, opts.rounds)

	var all []time.Duration
	for round := 1; round <= opts.rounds; round++ {
		rs, err := runRound(ctx, client, backend, history, opts.requests)
		if err != nil {
			return fmt.Errorf("round %d: %w", round, err)
		}
		all = append(all, rs.latencies...)
		fmt.Fprintf(out, "round %d: navigations=%d authErrors=%d otherErrors=%d loggedOut=%v\n",
			round, rs.navigations, rs.authErrors, rs.otherErrors, rs.loggedOut)

		if round < opts.rounds {
			time.Sleep(opts.resetDelay + 10*time.Millisecond)
		}
	}

	snap := client.MetricsSnapshot()
	fmt.Fprintln(out, "---- results ----")
	fmt.Fprintf(out, "expiry reactions=%d suppressed=%d logins=%d\n",
		snap.Counters[goSession.MetricSessionExpired],
		snap.Counters[goSession.MetricExpirySuppressed],
		snap.Counters[goSession.MetricLoginSuccess],
	)
	printStats(out, "rejected calls", computeStats(all))

	if opts.dumpMetrics {
		rec := httptest.NewRecorder()
		promexport.NewCollector(client, nil).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		fmt.Fprint(out, rec.Body.String())
	}
	return nil
}

func configureStorage(cfg *goSession.Config, b *goSession.Builder, opts runOptions) (func(), error) {
	switch goSession.StorageBackend(opts.storage) {
	case goSession.StorageMemory:
		cfg.Storage.Backend = goSession.StorageMemory
		return func() {}, nil

	case goSession.StorageRedis:
		cfg.Storage.Backend = goSession.StorageRedis
		addr := opts.redisAddr
		var mr *miniredis.Miniredis
		if addr == "" {
			var err error
			mr, err = miniredis.Run()
			if err != nil {
				return nil, fmt.Errorf("start miniredis: %w", err)
			}
			addr = mr.Addr()
		}
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		b.WithRedis(rdb)
		return func() {
			_ = rdb.Close()
			if mr != nil {
				mr.Close()
			}
		}, nil

	case goSession.StorageSQLite:
		cfg.Storage.Backend = goSession.StorageSQLite
		if opts.sqlitePath != "" {
			cfg.Storage.SQLitePath = opts.sqlitePath
			return func() {}, nil
		}
		dir, err := os.MkdirTemp("", "gosession-loadtest-")
		if err != nil {
			return nil, err
		}
		cfg.Storage.SQLitePath = filepath.Join(dir, "session.db")
		return func() { _ = os.RemoveAll(dir) }, nil

	default:
		return nil, fmt.Errorf("unknown storage %q", opts.storage)
	}
}

type roundStats struct {
	navigations int
	authErrors  int
	otherErrors int
	loggedOut   bool
	latencies   []time.Duration
}

func runRound(ctx context.Context, client *goSession.Client, backend *devserver.Server, history *routes.History, n int) (roundStats, error) {
	before := history.Count("/login")

	if err := client.SignIn(ctx, session.Credentials{Username: "load", Password: "Load#1234"}); err != nil {
		return roundStats{}, err
	}
	backend.RevokeAll()

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		stats = roundStats{latencies: make([]time.Duration, 0, n)}
		start = make(chan struct{})
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			t0 := time.Now()
			_, err := client.Do(ctx, http.MethodGet, "/auth/info", nil)
			d := time.Since(t0)

			mu.Lock()
			defer mu.Unlock()
			stats.latencies = append(stats.latencies, d)
			switch {
			case errors.Is(err, goSession.ErrAuth):
				stats.authErrors++
			case err != nil:
				stats.otherErrors++
			}
		}()
	}
	close(start)
	wg.Wait()

	stats.navigations = history.Count("/login") - before
	stats.loggedOut = !client.Session().LoggedIn()
	return stats, nil
}
