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

	"github.com/geocoder89/hirebase/internal/account"
	"github.com/geocoder89/hirebase/internal/auth"
	"github.com/geocoder89/hirebase/internal/config"
	"github.com/geocoder89/hirebase/internal/db"
	"github.com/geocoder89/hirebase/internal/events"
	httpx "github.com/geocoder89/hirebase/internal/http"
	"github.com/geocoder89/hirebase/internal/http/handlers"
	"github.com/geocoder89/hirebase/internal/observability"
	"github.com/geocoder89/hirebase/internal/redisclient"
	"github.com/geocoder89/hirebase/internal/repo/memory"
	"github.com/geocoder89/hirebase/internal/repo/postgres"
	"github.com/geocoder89/hirebase/internal/repo/redisstore"
	"github.com/geocoder89/hirebase/internal/security"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type userStore interface {
	account.UserStore
	Ping(ctx context.Context) error
}

type stores struct {
	users    userStore
	sessions account.SessionStore
	checks   []handlers.HealthCheck
	closers  []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openStores(ctx context.Context, cfg config.Config, log *slog.Logger, prom *observability.Prom) (*stores, error) {
	s := &stores{}

	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn("using in-memory stores; data is lost on restart")

		users := memory.NewUsersRepo()
		s.users = users
		s.sessions = memory.NewSessionsRepo()
		s.checks = append(s.checks, handlers.HealthCheck{Name: "users", Ping: users.Ping})

	default:
		if cfg.DBAutoMigrate {
			if err := db.Migrate(ctx, cfg.DBURL); err != nil {
				return nil, err
			}
			log.Info("migrations applied")
		}

		pool, err := db.NewPool(ctx, cfg.DBURL, cfg.DBMaxConns)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)

		s.users = postgres.NewUsersRepo(pool, prom)
		s.sessions = postgres.NewRefreshTokensRepo(pool, prom)
		s.checks = append(s.checks, handlers.HealthCheck{Name: "db", Ping: pool.Ping})
	}

	if cfg.RedisAddr != "" {
		rc := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := rc.Ping(pingCtx)
		cancel()
		if err != nil {
			_ = rc.Close()
			s.close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}

		s.closers = append(s.closers, func() { _ = rc.Close() })
		s.sessions = redisstore.NewSessionsRepo(rc.Raw())
		s.checks = append(s.checks, handlers.HealthCheck{Name: "redis", Ping: rc.Ping})
		log.Info("refresh sessions stored in redis", "addr", cfg.RedisAddr)
	}

	return s, nil
}

func newPublisher(cfg config.Config, log *slog.Logger) (events.Publisher, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NewLogPublisher(log), func() {}
	}

	kp, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaUserTopic)
	if err != nil {
		log.Warn("kafka publisher disabled", "err", err)
		return events.NewLogPublisher(log), func() {}
	}

	log.Info("publishing user events to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaUserTopic)

	pub := events.NewProtectedPublisher(kp, events.ProtectedPublisherConfig{
		Timeout:          2 * time.Second,
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
		HalfOpenMaxCalls: 1,
	})

	return pub, func() {
		if err := kp.Close(); err != nil {
			log.Warn("kafka writer close failed", "err", err)
		}
	}
}

func main() {
	// Load the config set up
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	ctx := context.Background()

	shutdownTracer, err := observability.InitTracer(ctx, cfg.ServiceName, cfg.AppVersion, cfg.OTELEndpoint)
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(reg)

	st, err := openStores(ctx, cfg, log, prom)
	if err != nil {
		log.Error("store setup failed", "driver", cfg.StoreDriver, "err", err)
		os.Exit(1)
	}
	defer st.close()

	publisher, closePublisher := newPublisher(cfg, log)
	defer closePublisher()

	hasher := security.NewHasher(cfg.BcryptCost)

	seedCtx, cancelSeed := context.WithTimeout(ctx, 10*time.Second)
	created, err := db.EnsureSeedUser(seedCtx, st.users, hasher, db.SeedUser{
		Email:     cfg.SeedUserEmail,
		Password:  cfg.SeedUserPassword,
		FirstName: cfg.SeedUserFirstName,
		LastName:  cfg.SeedUserLastName,
	})
	cancelSeed()
	if err != nil {
		log.Error("seed user failed", "err", err)
		os.Exit(1)
	}
	if created {
		log.Info("seed user created", "email", cfg.SeedUserEmail)
	}

	svc := account.NewService(account.Deps{
		Users:     st.users,
		Sessions:  st.sessions,
		Hasher:    hasher,
		Tokens:    auth.NewCodec(cfg.JWTSecret, cfg.AccessTTL(), cfg.RefreshTTL()),
		Publisher: publisher,
		Log:       log,
	})

	tracingService := ""
	if cfg.OTELEndpoint != "" {
		tracingService = cfg.ServiceName
	}

	router := httpx.NewRouter(httpx.Deps{
		Log:            log,
		Env:            cfg.Env,
		AppName:        cfg.AppName,
		AppVersion:     cfg.AppVersion,
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.AllowedOrigins(),
		MaxBodyBytes:   cfg.MaxBodyBytes,
		Accounts:       svc,
		Checks:         st.checks,
		Prom:           prom,
		Gatherer:       reg,
		TracingService: tracingService,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("server shutting down")
	case err := <-serverErr:
		log.Error("server failed", "err", err)
	}

	shutdownCtx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
	}

	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Warn("tracer shutdown failed", "err", err)
	}

	log.Info("shutdown complete")
}
