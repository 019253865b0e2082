package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"toolbox/internal/admin"
	authHandler "toolbox/internal/auth/handler"
	"toolbox/internal/auth/revocation"
	authService "toolbox/internal/auth/service"
	"toolbox/internal/auth/token"
	creditHandler "toolbox/internal/credits/handler"
	creditMetrics "toolbox/internal/credits/metrics"
	creditService "toolbox/internal/credits/service"
	creditStore "toolbox/internal/credits/store"
	drawHandler "toolbox/internal/draw/handler"
	drawMetrics "toolbox/internal/draw/metrics"
	drawService "toolbox/internal/draw/service"
	jobHandler "toolbox/internal/jobs/handler"
	jobService "toolbox/internal/jobs/service"
	jobStore "toolbox/internal/jobs/store"
	"toolbox/internal/platform/config"
	"toolbox/internal/platform/httpserver"
	"toolbox/internal/platform/logger"
	"toolbox/internal/platform/metrics"
	"toolbox/internal/platform/postgres"
	"toolbox/internal/platform/redis"
	"toolbox/internal/platform/tracing"
	ratelimit "toolbox/internal/ratelimit/middleware"
	rlModels "toolbox/internal/ratelimit/models"
	"toolbox/internal/ratelimit/store/bucket"
	httptransport "toolbox/internal/transport/http"
	"toolbox/pkg/platform/audit"
	"toolbox/pkg/platform/audit/publisher"
	"toolbox/pkg/platform/audit/sink/guard"
	kafkasink "toolbox/pkg/platform/audit/sink/kafka"
	auditmemory "toolbox/pkg/platform/audit/store/memory"
	auditpostgres "toolbox/pkg/platform/audit/store/postgres"
	"toolbox/pkg/platform/circuit"
	"toolbox/pkg/platform/secrets"
)

const (
	shutdownTimeout = 10 * time.Second
	purgeInterval   = time.Hour
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("toolbox exited with error", "error", err)
		os.Exit(1)
	}
}

// auditStore is what both the publisher and the admin audit listing need.
type auditStore interface {
	audit.Store
	admin.AuditReader
}

type revocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// run wires dependencies and blocks until ctx is cancelled or a component fails.
func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	if cfg.UsesDevSigningKey() {
		log.Warn("using the built-in development JWT signing key; set JWT_SIGNING_KEY in production")
	}

	tp, err := tracing.NewProvider(ctx, tracing.Config{
		ServiceName:  cfg.ServiceName,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
	})
	if err != nil {
		return err
	}
	tracing.Install(tp)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("failed to flush traces", "error", err)
		}
	}()
	if cfg.Tracing.OTLPEndpoint != "" {
		log.Info("exporting traces", "endpoint", cfg.Tracing.OTLPEndpoint)
	}

	var checkers []httptransport.Checker

	var db *sql.DB
	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.Open(ctx, postgres.Config{
			URL:             cfg.Database.URL,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		checkers = append(checkers, &postgres.DB{DB: db})
		log.Info("postgres stores enabled")
	} else {
		log.Info("DATABASE_URL not set, using in-memory stores")
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		checkers = append(checkers, redisClient)
	}

	// Audit pipeline: durable store plus optional Kafka fan-out.
	var events auditStore = auditmemory.NewInMemoryStore()
	if db != nil {
		events = auditpostgres.New(db)
	}
	platformMetrics := metrics.New()
	pubOpts := []publisher.Option{
		publisher.WithLogger(log),
		publisher.WithAsyncBuffer(cfg.Audit.BufferSize),
		publisher.WithDropRecorder(platformMetrics),
	}
	if len(cfg.Audit.KafkaBrokers) > 0 {
		sink, err := kafkasink.New(cfg.Audit.KafkaBrokers, cfg.Audit.Topic)
		if err != nil {
			return err
		}
		defer sink.Close()
		if err := sink.EnsureTopic(ctx); err != nil {
			return fmt.Errorf("provision audit topic: %w", err)
		}
		breaker := circuit.New("audit-kafka")
		pubOpts = append(pubOpts, publisher.WithSinks(guard.New(sink, breaker, guard.WithLogger(log))))
		checkers = append(checkers, sink)
		log.Info("audit events forwarded to kafka", "topic", cfg.Audit.Topic)
	}
	auditPublisher := publisher.NewPublisher(events, pubOpts...)
	defer auditPublisher.Close()

	// Token revocation: Redis when configured, else Postgres, else memory.
	var trl revocationList
	var pgTRL *revocation.PostgresTRL
	switch {
	case redisClient != nil:
		trl = revocation.NewRedisTRL(redisClient.Client)
	case db != nil:
		pgTRL = revocation.NewPostgresTRL(db)
		trl = pgTRL
	default:
		trl = revocation.NewInMemoryTRL()
	}

	var (
		ledger creditService.Store = creditStore.NewInMemoryLedgerStore()
		jobs   jobService.Store    = jobStore.NewInMemoryJobStore()
	)
	if db != nil {
		ledger = creditStore.NewPostgres(db)
		jobs = jobStore.NewPostgres(db)
	}

	credits, err := creditService.New(ledger,
		creditService.WithLogger(log),
		creditService.WithAuditPublisher(auditPublisher),
		creditService.WithMetrics(creditMetrics.New()),
		creditService.WithSignupBonus(cfg.Credits.SignupBonus),
	)
	if err != nil {
		return err
	}
	jobSvc, err := jobService.New(jobs, jobService.WithLogger(log))
	if err != nil {
		return err
	}
	draws, err := drawService.New(credits, jobSvc,
		drawService.WithLogger(log),
		drawService.WithAuditPublisher(auditPublisher),
		drawService.WithMetrics(drawMetrics.New()),
		drawService.WithCreditCost(cfg.Draw.CreditCost),
		drawService.WithMaxAttempts(cfg.Draw.MaxAttempts),
	)
	if err != nil {
		return err
	}

	tokens, err := token.New(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)
	if err != nil {
		return err
	}
	auth, err := authService.New(tokens, trl,
		authService.WithLogger(log),
		authService.WithAuditPublisher(auditPublisher),
		authService.WithDefaultTTL(cfg.Auth.AccessTokenTTL),
	)
	if err != nil {
		return err
	}

	adminHash, err := adminTokenHash(cfg.Admin)
	if err != nil {
		return err
	}
	if adminHash == "" {
		log.Info("admin API disabled; set ADMIN_TOKEN or ADMIN_TOKEN_HASH to enable it")
	}

	limiter := newRateLimiter(cfg.RateLimit, redisClient, platformMetrics, log)

	router := httptransport.NewRouter(httptransport.Dependencies{
		Logger:      log,
		Metrics:     platformMetrics,
		Tokens:      tokens,
		Revocations: trl,
		Checkers:    checkers,
		API: []httptransport.Registrar{
			drawHandler.New(draws, log),
			creditHandler.New(credits, log),
			jobHandler.New(jobSvc, log),
			authHandler.New(auth, log),
		},
		RateLimit:      limiter.RateLimitUser("api"),
		Admin:          admin.New(credits, auth, jobSvc, events, log),
		AdminTokenHash: adminHash,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting toolbox", "addr", cfg.Addr, "service", cfg.ServiceName)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if pgTRL != nil {
		g.Go(func() error {
			purgeRevocations(gctx, pgTRL, log)
			return nil
		})
	}
	return g.Wait()
}

// newRateLimiter counts in Redis when available, falling back to process
// memory while Redis is unhealthy.
func newRateLimiter(cfg config.RateLimitConfig, client *redis.Client, m *metrics.Metrics, log *slog.Logger) *ratelimit.Middleware {
	limit := rlModels.Limit{Requests: cfg.Requests, Window: cfg.Window}
	opts := []ratelimit.Option{
		ratelimit.WithRecorder(m),
		ratelimit.WithDisabled(cfg.Disabled),
	}
	memory := bucket.NewInMemoryBucketStore()
	if client == nil {
		return ratelimit.New(memory, limit, log, opts...)
	}
	opts = append(opts, ratelimit.WithFallback(memory, circuit.New("ratelimit-redis")))
	return ratelimit.New(bucket.NewRedisBucketStore(client.Client), limit, log, opts...)
}

// adminTokenHash prefers a configured bcrypt hash and otherwise hashes the
// plaintext token once at startup. Empty means the admin API is off.
func adminTokenHash(cfg config.AdminConfig) (string, error) {
	if cfg.TokenHash != "" {
		return cfg.TokenHash, nil
	}
	if cfg.Token == "" {
		return "", nil
	}
	hash, err := secrets.Hash(cfg.Token)
	if err != nil {
		return "", fmt.Errorf("hash admin token: %w", err)
	}
	return hash, nil
}

func purgeRevocations(ctx context.Context, trl *revocation.PostgresTRL, log *slog.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := trl.Purge(ctx)
			if err != nil {
				log.WarnContext(ctx, "failed to purge token revocations", "error", err)
				continue
			}
			if n > 0 {
				log.InfoContext(ctx, "purged expired token revocations", "count", n)
			}
		}
	}
}
