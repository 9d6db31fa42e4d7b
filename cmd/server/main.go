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

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	claimhandler "alapay/internal/claims/handler"
	claimmetrics "alapay/internal/claims/metrics"
	"alapay/internal/claims/notes"
	claimservice "alapay/internal/claims/service"
	claimstore "alapay/internal/claims/store"
	hmometrics "alapay/internal/hmo/metrics"
	hmoservice "alapay/internal/hmo/service"
	hmostore "alapay/internal/hmo/store"
	jwttoken "alapay/internal/jwt_token"
	"alapay/internal/notify"
	"alapay/internal/platform/config"
	"alapay/internal/platform/httpserver"
	"alapay/internal/platform/logger"
	platformredis "alapay/internal/platform/redis"
	httptransport "alapay/internal/transport/http"
)

// main wires the claim engine's dependencies and keeps the server lifecycle
// small. Business logic lives in internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: Postgres when a database is configured, in-memory otherwise
	// (local development and demos).
	var (
		db             *sql.DB
		memberClaims   claimservice.ClaimStore
		providerClaims claimservice.ProviderClaimStore
		noteStore      notes.Store
		hmoDirectory   hmoservice.Directory
		storeTx        claimservice.StoreTx
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("failed to reach database", "error", err)
			os.Exit(1)
		}

		pgNotes := claimstore.NewPostgresNotes(db)
		memberClaims = claimstore.NewPostgresClaims(db, pgNotes)
		providerClaims = claimstore.NewPostgresProviderClaims(db, pgNotes)
		noteStore = pgNotes
		hmoDirectory = hmostore.NewPostgres(db)
		storeTx = newClaimsPostgresTx(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		memberClaims = claimstore.NewInMemoryClaims()
		providerClaims = claimstore.NewInMemoryProviderClaims()
		noteStore = claimstore.NewInMemoryNotes()
		hmoDirectory = hmostore.NewInMemory()
		storeTx = claimservice.NewInMemoryTx()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		hmoDirectory = hmostore.NewAdminSetCache(hmoDirectory, redisClient.Client, cfg.AdminCacheTTL, log)
	}

	gate := hmoservice.NewGate(hmoDirectory, hmoservice.WithMetrics(hmometrics.New()))
	ledger := notes.NewLedger(noteStore)

	g, runCtx := errgroup.WithContext(ctx)

	serviceOpts := []claimservice.Option{
		claimservice.WithTx(storeTx),
		claimservice.WithMetrics(claimmetrics.New()),
		claimservice.WithLogger(log),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := notify.NewKafkaPublisher(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()

		dispatcher := notify.NewDispatcher(publisher, log, 0)
		serviceOpts = append(serviceOpts, claimservice.WithNotifier(dispatcher))
		g.Go(func() error {
			if err := dispatcher.Run(runCtx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	claims := claimservice.NewService(memberClaims, providerClaims, ledger, gate, serviceOpts...)

	validator := jwttoken.NewJWTService(cfg.JWTSigningKey, "alapay", "alapay-backoffice")
	handler := claimhandler.New(claims, log, validator)

	checks := map[string]httptransport.HealthChecker{}
	if redisClient != nil {
		checks["redis"] = redisClient
	}
	if db != nil {
		checks["postgres"] = dbHealth{db}
	}
	router := httptransport.NewRouter(checks, handler)
	srv := httpserver.New(cfg.Addr, router)

	g.Go(func() error {
		log.Info("starting alapay claim engine", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-runCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

type dbHealth struct {
	db *sql.DB
}

func (h dbHealth) Health(ctx context.Context) error {
	return h.db.PingContext(ctx)
}
