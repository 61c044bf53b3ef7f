package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"github.com/ILLUVRSE/trip-planner/internal/archive"
	"github.com/ILLUVRSE/trip-planner/internal/auth"
	"github.com/ILLUVRSE/trip-planner/internal/config"
	"github.com/ILLUVRSE/trip-planner/internal/engine"
	"github.com/ILLUVRSE/trip-planner/internal/events"
	"github.com/ILLUVRSE/trip-planner/internal/httpserver"
	"github.com/ILLUVRSE/trip-planner/internal/pipeline"
	"github.com/ILLUVRSE/trip-planner/internal/providers"
	"github.com/ILLUVRSE/trip-planner/internal/runner"
	"github.com/ILLUVRSE/trip-planner/internal/service"
	"github.com/ILLUVRSE/trip-planner/internal/store"
)

func main() {
	runWorkers := flag.Bool("run-worker", false, "start pipeline workers in this process")
	workers := flag.Int("workers", 0, "number of workers (overrides PLANNER_WORKERS)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[startup] config load: %v", err)
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, closeStore := openStore(ctx, cfg)
	defer closeStore()

	verifier, err := auth.NewVerifier(auth.Config{
		KeysFile:        cfg.JWTKeysFile,
		WriteScope:      cfg.WriteScope,
		AllowDebugToken: cfg.AllowDebugToken,
		DebugToken:      cfg.DebugToken,
		Production:      cfg.Production,
	})
	if err != nil {
		log.Fatalf("[startup] auth init: %v", err)
	}
	if verifier.Open() {
		log.Printf("[startup] no JWT keys configured; POST /plan is unauthenticated")
	}

	publisher := events.Publisher(events.Noop{})
	if cfg.KafkaEnabled() {
		kp, err := events.NewKafkaPublisher(events.KafkaConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic})
		if err != nil {
			log.Fatalf("[startup] kafka init: %v", err)
		}
		publisher = kp
	}
	defer publisher.Close()

	svc := service.New(st, publisher, nil)
	server := httpserver.New(svc, verifier, nil)
	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.Router(),
	}

	g, gctx := errgroup.WithContext(ctx)
	if shouldRunWorkers(*runWorkers) {
		orchestrator := newOrchestrator(ctx, cfg)
		log.Printf("starting %d pipeline workers", cfg.Workers)
		for i := 0; i < cfg.Workers; i++ {
			g.Go(func() error {
				runner.RunWorker(gctx, orchestrator, st, runner.Config{
					PollInterval: cfg.PollInterval,
					Events:       publisher,
				})
				return nil
			})
		}
	}

	go func() {
		log.Printf("trip planner listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	waitForShutdown(cancel, httpServer)
	_ = g.Wait()
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, func()) {
	if cfg.DatabaseURL == "" {
		log.Printf("[startup] no DATABASE_URL; jobs are kept in memory")
		return store.NewMemoryStore(), func() {}
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[startup] db open: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("[startup] db ping: %v", err)
	}
	st := store.NewPGStore(db)
	if err := st.EnsureSchema(ctx); err != nil {
		log.Fatalf("[startup] db schema: %v", err)
	}
	return st, func() { db.Close() }
}

func newOrchestrator(ctx context.Context, cfg config.Config) *pipeline.Orchestrator {
	set, names, err := providers.NewSet(
		providers.Keys{RapidAPI: cfg.RapidAPIKey, Geoapify: cfg.GeoapifyKey},
		providers.ClientConfig{
			Timeout:       cfg.ProviderTimeout,
			Retries:       cfg.ProviderRetries,
			RatePerSecond: cfg.ProviderRPS,
		},
	)
	if err != nil {
		log.Fatalf("[startup] providers init: %v", err)
	}
	log.Printf("[startup] providers: flights=%s hotels=%s activities=%s", names[0], names[1], names[2])

	pcfg := pipeline.Config{Split: cfg.Split, Providers: set}
	if cfg.EngineURL != "" {
		e, err := engine.NewHTTPEngine(engine.HTTPEngineConfig{
			BaseURL: cfg.EngineURL,
			Timeout: cfg.ProviderTimeout,
			Retries: cfg.ProviderRetries,
		})
		if err != nil {
			log.Fatalf("[startup] engine init: %v", err)
		}
		pcfg.Engine = e
	}
	if cfg.S3Bucket != "" {
		a, err := archive.NewS3Archiver(ctx, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			log.Fatalf("[startup] archive init: %v", err)
		}
		pcfg.Archiver = a
	}

	o, err := pipeline.New(pcfg)
	if err != nil {
		log.Fatalf("[startup] pipeline init: %v", err)
	}
	return o
}

func waitForShutdown(cancel context.CancelFunc, srv *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	cancel()
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

func shouldRunWorkers(flagValue bool) bool {
	if flagValue {
		return true
	}
	if v := os.Getenv("PLANNER_RUN_WORKER"); v != "" {
		enabled, err := strconv.ParseBool(v)
		return err == nil && enabled
	}
	return false
}
