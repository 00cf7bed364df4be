package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/coursecraft/internal/config"
	"github.com/abhisek/coursecraft/internal/ratelimit"
	"github.com/abhisek/coursecraft/internal/server"
	"github.com/abhisek/coursecraft/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP generation API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}
		return serve(cmd.Context(), cfg)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
}

func serve(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := newLogger(cfg, os.Stderr)

	shutdownTracing, err := telemetry.Init(ctx, cfg.Telemetry, "coursecraft", version, cfg.Env, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn().Err(err).Msg("tracer shutdown")
		}
	}()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	limiter, closeLimiter, err := newLimiter(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeLimiter()

	orch, err := newOrchestrator(ctx, cfg, st, limiter, log)
	if err != nil {
		return err
	}

	idem, err := server.NewIdempotency(cfg.Server.IdempotencyMaxCost, cfg.Server.IdempotencyTTL)
	if err != nil {
		return err
	}
	defer idem.Close()

	srv := server.New(orch, st.CourseRepo(), idem, server.Options{
		MaxBodyBytes:      cfg.Server.MaxBodyBytes,
		TrustForwardedFor: cfg.Server.TrustForwardedFor,
		Development:       cfg.Development(),
	}, log)
	httpSrv := server.HTTPServer(cfg.Server.Addr, srv.Handler(),
		cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.Server.Addr).Str("env", cfg.Env).Str("rate_limit", cfg.RateLimit.Backend).Msg("listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newLimiter builds the configured limiter backend. The returned function
// releases its resources.
func newLimiter(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ratelimit.Limiter, func(), error) {
	rl := cfg.RateLimit
	switch rl.Backend {
	case config.BackendRedis:
		rdb, err := ratelimit.Dial(ctx, rl.Redis.Addr, rl.Redis.Password, rl.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		return ratelimit.NewRedis(rdb, rl.Config, rl.Redis.Prefix, log), func() { _ = rdb.Close() }, nil
	case config.BackendNone:
		log.Warn().Msg("rate limiting disabled")
		return ratelimit.Unlimited{}, func() {}, nil
	default:
		m := ratelimit.NewMemory(rl.Config)
		stop := m.StartCleanup(rl.CleanupInterval)
		return m, stop, nil
	}
}
