package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-escrow-reconciler/internal/booking"
	"github.com/ariefcatur/go-escrow-reconciler/internal/clock"
	"github.com/ariefcatur/go-escrow-reconciler/internal/config"
	"github.com/ariefcatur/go-escrow-reconciler/internal/httpx"
	"github.com/ariefcatur/go-escrow-reconciler/internal/intake"
	kafkax "github.com/ariefcatur/go-escrow-reconciler/internal/kafka"
	"github.com/ariefcatur/go-escrow-reconciler/internal/notify"
	"github.com/ariefcatur/go-escrow-reconciler/internal/obs"
	"github.com/ariefcatur/go-escrow-reconciler/internal/postgres"
	"github.com/ariefcatur/go-escrow-reconciler/internal/reasoning"
	"github.com/ariefcatur/go-escrow-reconciler/internal/reconcile"
	"github.com/ariefcatur/go-escrow-reconciler/internal/redisx"
	"github.com/ariefcatur/go-escrow-reconciler/internal/risk"
	"github.com/ariefcatur/go-escrow-reconciler/internal/scheduler"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing
	if cfg.OTelEnabled {
		shutdown, err := obs.InitTracer(ctx, cfg.ServiceName, cfg.OTelEndpoint, cfg.Env)
		if err != nil {
			log.Printf("tracing disabled: %v", err)
		} else {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	checks := map[string]httpx.Check{}

	// Store
	var store reconcile.Store
	switch cfg.StoreDriver {
	case "memory":
		store = booking.NewMemoryStore()
		log.Println("store: in-memory (data hilang saat restart)")
	default:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PostgresMaxConn)
		if err != nil {
			log.Fatalf("db connect: %v", err)
		}
		defer db.Close()
		if cfg.AutoMigrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				log.Fatalf("db migrate: %v", err)
			}
		}
		store = &booking.Repo{DB: db}
		checks["postgres"] = func(ctx context.Context) error { return postgres.Ping(ctx, db) }
	}

	loopOpts := []reconcile.Option{reconcile.WithWorkers(cfg.Workers)}

	// Redis: lease per record + dedup notifikasi
	notifier := &notify.Notifier{ServiceName: cfg.ServiceName}
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		if err := redisx.Ping(ctx, rdb); err != nil {
			log.Printf("redis %s not reachable yet: %v", cfg.RedisAddr, err)
		}
		loopOpts = append(loopOpts, reconcile.WithLeaser(redisx.NewLeaser(rdb, cfg.ServiceName, cfg.LeaseTTL)))
		notifier.Redis = rdb
		checks["redis"] = func(ctx context.Context) error { return redisx.Ping(ctx, rdb) }
	}

	// Kafka producers: scored & released (dua topic berbeda)
	var events reconcile.Notifier
	brokers := cfg.Brokers()
	if len(brokers) > 0 {
		pScored := kafkax.NewProducer(brokers, booking.TopicBookingScored, 1024)
		pScored.Start(ctx)
		pReleased := kafkax.NewProducer(brokers, booking.TopicEscrowReleased, 1024)
		pReleased.Start(ctx)
		defer func() {
			pScored.Close()
			pReleased.Close()
			pScored.WaitClosed()
			pReleased.WaitClosed()
		}()
		notifier.Scored = pScored
		notifier.Released = pReleased
		events = notifier
	}

	// Risk scorer
	var delegate risk.Delegate
	if cfg.ReasoningURL != "" {
		delegate = reasoning.New(cfg.ReasoningURL, cfg.ReasoningAPIKey)
	}
	scorer, err := risk.New(cfg.RiskStrategy, delegate, risk.WithTimeout(cfg.ReasoningTimeout))
	if err != nil {
		log.Fatalf("risk: %v", err)
	}

	// Loop & passes
	runCtx, stopRuns := context.WithCancel(ctx)
	defer stopRuns()
	loopOpts = append(loopOpts, reconcile.WithLifetime(runCtx))
	loop := reconcile.New(store, clock.System{}, loopOpts...)
	scoring := reconcile.ScoringPass{Scorer: scorer, Notifier: events, FlagFallbackForReview: cfg.FallbackReview}
	release := reconcile.ReleasePass{Notifier: events}

	sched, err := scheduler.New(loop,
		scheduler.Job{Pass: scoring, Interval: cfg.ScoringInterval, RunOnStart: cfg.RunOnStart},
		scheduler.Job{Pass: release, Interval: cfg.ReleaseInterval, RunOnStart: cfg.RunOnStart},
	)
	if err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	sched.Start(ctx)

	// Consumer booking.created -> scoring lebih awal
	consCtx, stopCons := context.WithCancel(ctx)
	defer stopCons()
	if len(brokers) > 0 {
		cons := kafkax.NewConsumer(brokers, cfg.IntakeGroup, booking.TopicBookingCreated, 2)
		nudger := &intake.Nudger{Scheduler: sched}
		go func() {
			log.Printf("intake consumer started: group=%s topic=%s", cfg.IntakeGroup, booking.TopicBookingCreated)
			if err := cons.Start(consCtx, nudger.HandleBookingCreated); err != nil {
				log.Printf("consumer exit: %v", err)
			}
		}()
	}

	// HTTP ops
	router := httpx.NewRouter(checks)
	ph := &httpx.PassesHandler{Loop: loop, Passes: []reconcile.Pass{scoring, release}}
	ph.Register(router)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	stopCons()
	sched.Stop()
	stopRuns()
	sched.Wait() // scan yang sedang jalan selesaikan record-nya dulu
}
