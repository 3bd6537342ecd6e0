package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"carelink/internal/audit"
	"carelink/internal/identity/allocator"
	identityhandler "carelink/internal/identity/handler"
	identityservice "carelink/internal/identity/service"
	identitystore "carelink/internal/identity/store"
	"carelink/internal/platform/config"
	"carelink/internal/platform/httpserver"
	"carelink/internal/platform/logger"
	"carelink/internal/platform/metrics"
	"carelink/internal/platform/middleware"
	redisplatform "carelink/internal/platform/redis"
	httptransport "carelink/internal/transport/http"
	verificationhandler "carelink/internal/verification/handler"
	verificationservice "carelink/internal/verification/service"
	verificationstore "carelink/internal/verification/store"
)

// main wires storage, services, and the HTTP surface. Postgres, Redis, and
// Kafka are all optional: without them the process runs fully in memory,
// which is what local development uses.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	if cfg.PostgresDSN != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("failed to open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("postgres ping failed", "error", err)
			os.Exit(1)
		}
	}

	redisClient, err := redisplatform.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// The counter store picks the strongest available backend: Redis INCR,
	// then a Postgres upsert, then in-process memory.
	var counters allocator.CounterStore
	switch {
	case redisClient != nil:
		counters = allocator.NewRedisStore(redisClient.Client)
	case db != nil:
		counters = allocator.NewPostgres(db)
	default:
		counters = allocator.NewInMemoryStore()
	}
	alloc := allocator.New(counters, allocator.WithMaxAttempts(cfg.AllocateMaxAttempts))

	var (
		users      identitystore.UserStore
		children   identitystore.ChildStore
		requests   verificationstore.RequestStore
		profiles   verificationstore.ProfileStore
		auditStore audit.Store
	)
	if db != nil {
		users = identitystore.NewPostgresUserStore(db)
		children = identitystore.NewPostgresChildStore(db)
		requests = verificationstore.NewPostgresRequestStore(db)
		profiles = verificationstore.NewPostgresProfileStore(db)
		auditStore = audit.NewPostgres(db)
	} else {
		users = identitystore.NewInMemoryUserStore()
		children = identitystore.NewInMemoryChildStore()
		requests = verificationstore.NewInMemoryRequestStore()
		profiles = verificationstore.NewInMemoryProfileStore()
		auditStore = audit.NewInMemoryStore()
	}

	publisher := audit.NewPublisher(auditStore, log)
	stream, err := audit.NewStreamPublisher(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err != nil {
		log.Error("failed to set up audit stream", "error", err)
		os.Exit(1)
	}
	defer stream.Close()

	verificationSvc := verificationservice.New(requests, profiles, publisher,
		verificationservice.WithLogger(log),
		verificationservice.WithMetrics(m),
	)
	identitySvc := identityservice.New(users, children, alloc,
		identityservice.WithPendingCounter(verificationSvc),
		identityservice.WithLogger(log),
		identityservice.WithMetrics(m),
		identityservice.WithLinkageMaxAttempts(cfg.LinkageMaxAttempts),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Identity:     identityhandler.New(identitySvc, log),
		Verification: verificationhandler.New(verificationSvc, log),
		Validator:    middleware.NewHMACValidator(cfg.JWTSigningKey),
		Logger:       log,
		Metrics:      m,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting carelink server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := audit.NewWorker(publisher.Stream(), stream, log).Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
