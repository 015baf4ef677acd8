package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	jwttoken "referrals/internal/jwt_token"
	"referrals/internal/platform/config"
	"referrals/internal/platform/httpserver"
	"referrals/internal/platform/logger"
	"referrals/internal/platform/metrics"
	"referrals/internal/platform/ratelimit"
	"referrals/internal/referral/cache"
	"referrals/internal/referral/events"
	"referrals/internal/referral/handler"
	refmetrics "referrals/internal/referral/metrics"
	"referrals/internal/referral/service"
	"referrals/pkg/platform/circuit"
	"referrals/pkg/platform/httputil"
	"referrals/pkg/platform/middleware/auth"
	"referrals/pkg/platform/middleware/metadata"
	"referrals/pkg/platform/middleware/request"
	"referrals/pkg/platform/middleware/requesttime"
	svcauth "referrals/pkg/platform/middleware/service"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "referrals: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Server.LogFormat, cfg.Server.LogLevel)

	infra, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer infra.Close()

	svcOpts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(refmetrics.New(prometheus.DefaultRegisterer)),
		service.WithCodeLength(cfg.Referral.CodeLength),
		service.WithMaxGenerationAttempts(cfg.Referral.MaxGenerationAttempts),
		service.WithTxRetries(cfg.Referral.TxRetries, cfg.Referral.TxRetryBackoff),
	}
	if infra.leaderboard != nil {
		breaker := circuit.New("leaderboard-redis", circuit.WithFailureThreshold(5), circuit.WithCooldown(10*time.Second))
		svcOpts = append(svcOpts, service.WithLeaderboardCache(cache.NewGuardedLeaderboard(infra.leaderboard, breaker, log)))
	}
	svc := service.New(infra.store, infra.tx, svcOpts...)

	relay := events.NewRelay(infra.outbox, infra.publisher,
		events.WithRelayLogger(log),
		events.WithPollInterval(cfg.Kafka.PollInterval),
		events.WithBatchSize(cfg.Kafka.BatchSize),
	)

	router := newRouter(cfg, log, svc, infra)
	srv := httpserver.New(cfg.Server.Addr, router, cfg.Server.RequestTimeout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting referrals service", "addr", cfg.Server.Addr, "store", infra.storeKind)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := relay.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("outbox relay: %w", err)
		}
		return nil
	})
	if infra.rateMemory != nil {
		g.Go(func() error {
			sweepRateLimits(gctx, infra.rateMemory, log)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func newRouter(cfg *config.Config, log *slog.Logger, svc *service.Service, infra *infra) http.Handler {
	httpMetrics := metrics.New(prometheus.DefaultRegisterer)
	jwtValidator := jwttoken.NewVerifier(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)

	limiter := ratelimit.New(infra.rateStore, log,
		ratelimit.WithDisabled(cfg.RateLimit.Disabled),
		ratelimit.WithRegisterer(prometheus.DefaultRegisterer),
	)

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(log))
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(log))
	r.Use(httpMetrics.LatencyMiddleware)

	r.Get("/healthz", healthHandler(infra))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(request.Timeout(cfg.Server.RequestTimeout))
		r.Use(request.ContentTypeJSON)
		h := handler.New(svc, log, cfg.Server.LinkBaseURL,
			handler.WithWriteLimit(limiter.Middleware(ratelimit.Rule{
				Name: "code_writes", Limit: cfg.RateLimit.WriteLimit, Window: cfg.RateLimit.WriteWindow,
			})),
			handler.WithRedeemLimit(limiter.Middleware(ratelimit.Rule{
				Name: "redeem", Limit: cfg.RateLimit.RedeemLimit, Window: cfg.RateLimit.RedeemWindow,
			})),
		)
		h.Register(r,
			auth.RequireAuth(jwtValidator, log),
			svcauth.RequireServiceToken(cfg.Server.ServiceToken, log),
		)
	})
	return r
}

func sweepRateLimits(ctx context.Context, store *ratelimit.InMemoryStore, log *slog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Sweep(); n > 0 {
				log.Debug("swept idle rate limit windows", "count", n)
			}
		}
	}
}

func healthHandler(infra *infra) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := infra.Health(ctx)
		status := http.StatusOK
		for _, v := range checks {
			if v != "ok" {
				status = http.StatusServiceUnavailable
			}
		}
		httputil.WriteJSON(w, status, map[string]any{"checks": checks})
	}
}
