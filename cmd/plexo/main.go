package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/plexo-core/api/controllers"
	"github.com/angelmondragon/plexo-core/api/routes"
	"github.com/angelmondragon/plexo-core/internal/lifecycle"
	"github.com/angelmondragon/plexo-core/internal/session"
	"github.com/angelmondragon/plexo-core/internal/store"
	"github.com/angelmondragon/plexo-core/pkg/config"
	"github.com/angelmondragon/plexo-core/pkg/logger"
	"github.com/angelmondragon/plexo-core/pkg/metrics"
	"github.com/angelmondragon/plexo-core/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "plexo"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "plexo",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	pingers := map[string]controllers.Pinger{"store": nil, "redis": nil}

	// A storage failure downgrades the session to ephemeral mode instead of
	// stopping the bridge.
	var svc *lifecycle.Service
	engine, err := store.Init(ctx, cfg.DB, logg, metrics.NewStoreMetrics(reg))
	if err != nil {
		logg.Error(ctx, "storage unavailable, continuing in ephemeral mode", err)
	} else {
		svc, err = lifecycle.New(lifecycle.Params{
			Engine:        engine,
			Password:      cfg.Password,
			DefaultRating: cfg.Session.DefaultRating,
			Logger:        logg,
		})
		if err != nil {
			logg.Error(ctx, "failed to create lifecycle service", err)
			_ = engine.Close()
			os.Exit(1)
		}
		pingers["store"] = svc
	}

	var identity session.IdentityStore
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "redis unavailable, keeping session identity in memory", err)
		} else {
			identity = redisClient
			pingers["redis"] = redisClient
		}
	}

	sess, err := session.New(session.Params{
		Service:   svc,
		Identity:  identity,
		Config:    cfg.Session,
		RateLimit: cfg.AuthRateLimit,
		Metrics:   metrics.NewSessionMetrics(reg),
		Logger:    logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create session", err)
		os.Exit(1)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logg.Error(context.Background(), "error closing session", err)
		}
	}()

	if err := sess.Start(ctx); err != nil {
		logg.Error(ctx, "failed to restore session", err)
	}

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}

	addr := net.JoinHostPort("127.0.0.1", cfg.App.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, sess, pingers, metricsHandler),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	ctx = logg.WithFields(ctx, map[string]any{"addr": addr, "mode": sess.Mode().String()})
	logg.Info(ctx, "starting plexo bridge")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logg.Error(ctx, "plexo bridge stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "plexo bridge stopped")
}
