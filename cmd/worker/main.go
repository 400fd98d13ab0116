package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/hirebase/internal/config"
	"github.com/geocoder89/hirebase/internal/db"
	"github.com/geocoder89/hirebase/internal/observability"
	"github.com/geocoder89/hirebase/internal/redisclient"
	"github.com/geocoder89/hirebase/internal/repo/postgres"
	"github.com/geocoder89/hirebase/internal/repo/redisstore"
	"github.com/geocoder89/hirebase/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config load failed:", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Env)

	if cfg.StoreDriver == config.StoreDriverMemory {
		log.Error("janitor needs a shared session store; STORE_DRIVER=memory lives inside the api process")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	var (
		purger worker.SessionPurger
		ready  worker.ReadinessDeps
	)

	if cfg.RedisAddr != "" {
		rc := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rc.Close()

		// redis expires sessions by TTL; purging only keeps the loop and metrics alive
		purger = redisstore.NewSessionsRepo(rc.Raw())
		ready = rc
	} else {
		pool, err := db.NewPool(ctx, cfg.DBURL, cfg.DBMaxConns)
		if err != nil {
			log.Error("db connect failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()

		purger = postgres.NewRefreshTokensRepo(pool, prom)
		ready = pool
	}

	j := worker.New(worker.Config{
		Interval:  cfg.JanitorInterval(),
		Retention: cfg.JanitorRetention(),
	}, purger, log, prom)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/", j.HealthHandler(ready))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WorkerHealthPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("worker health server failed", "err", err)
		}
	}()

	log.Info("janitor has started", "interval", cfg.JanitorInterval().String(), "health_port", cfg.WorkerHealthPort)

	if err := j.Run(ctx); err != nil {
		log.Error("janitor stopped with error", "err", err)
	}

	shutdownCtx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	_ = srv.Shutdown(shutdownCtx)

	log.Info("janitor shutdown complete")
}
