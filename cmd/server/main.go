package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/reeltime/internal/cache"
	"github.com/iliyamo/reeltime/internal/config"
	"github.com/iliyamo/reeltime/internal/database"
	"github.com/iliyamo/reeltime/internal/handler"
	"github.com/iliyamo/reeltime/internal/inventory"
	"github.com/iliyamo/reeltime/internal/lock"
	"github.com/iliyamo/reeltime/internal/logger"
	"github.com/iliyamo/reeltime/internal/metrics"
	"github.com/iliyamo/reeltime/internal/notify"
	"github.com/iliyamo/reeltime/internal/queue"
	"github.com/iliyamo/reeltime/internal/repository"
	"github.com/iliyamo/reeltime/internal/router"
	"github.com/iliyamo/reeltime/internal/scheduler"
	"github.com/iliyamo/reeltime/internal/service"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	log := logger.Init(cfg.Env)
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(database.Options{
		User:            cfg.DBUser,
		Pass:            cfg.DBPass,
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		Name:            cfg.DBName,
		MultiStatements: cfg.AutoMigrate,
	})
	if err != nil {
		log.Fatal("database connect failed", zap.Error(err))
	}
	defer db.Close()
	if cfg.AutoMigrate {
		if err := database.MigrateUp(db); err != nil {
			log.Fatal("migrations failed", zap.Error(err))
		}
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		log.Warn("redis unavailable, running with in-process locks and no caches")
	} else {
		defer rdb.Close()
	}
	cacheCfg := config.LoadCacheConfig()
	var remaining service.RemainingCache = cache.Nop{}
	if rdb != nil && cacheCfg.Enabled {
		remaining = cache.NewSeatCache(rdb, cacheCfg.Prefix, cacheCfg.SeatTTL)
	}

	m := metrics.New()
	publisher := queue.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Queue, log)
	defer publisher.Close()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	reservations := repository.NewReservationRepo(db)
	movies := repository.NewMovieRepo(db)
	halls := repository.NewHallRepo(db)
	details := repository.NewMovieDetailRepo(db)

	policy := inventory.DefaultPolicy()
	policy.CancelCutoff = cfg.Policy.CancelCutoff
	policy.EditCutoff = cfg.Policy.EditCutoff
	policy.Location = cfg.Location()

	locker := lock.New(rdb, lock.Options{
		TTL:        cfg.Lock.TTL,
		Retries:    cfg.Lock.Retries,
		RetryDelay: cfg.Lock.RetryDelay,
	}, log)
	resSvc := service.NewReservationService(service.ReservationDeps{
		Reservations: reservations,
		Details:      details,
		Halls:        halls,
		Locker:       locker,
		Cache:        remaining,
		Publisher:    publisher,
		Metrics:      m,
		Policy:       policy,
		MaxSeats:     cfg.Policy.MaxSeats,
		Log:          log,
	})
	catalogSvc := service.NewCatalogService(movies, halls, details, repository.NewCatalogRepo(db), remaining, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mailer := notify.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
	consumer := queue.NewConsumer(queue.ConsumerOptions{
		URL:         cfg.AMQP.URL,
		Queue:       cfg.AMQP.Queue,
		Prefetch:    cfg.AMQP.Prefetch,
		MaxAttempts: cfg.AMQP.MaxAttempts,
	}, notify.NewDispatcher(mailer, reservations, log), log)
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("notification consumer stopped", zap.Error(err))
		}
	}()

	var sched *scheduler.Scheduler
	if cfg.Remind.Enabled {
		sched, err = scheduler.New(resSvc, scheduler.Options{
			Location:       policy.Location,
			ReminderHour:   cfg.Remind.Hour,
			ReminderMinute: cfg.Remind.Minute,
			ResendEvery:    cfg.Remind.ResendEvery,
			ResendGrace:    cfg.Remind.ResendGrace,
		}, log)
		if err != nil {
			log.Fatal("scheduler setup failed", zap.Error(err))
		}
		sched.Start()
	}

	checks := map[string]handler.Check{"mysql": db.PingContext}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	e := echo.New()
	e.HideBanner = true
	router.Setup(e, router.Deps{
		Auth:         handler.NewAuthHandler(cfg, users, tokens, log),
		Reservations: handler.NewReservationHandler(resSvc),
		Catalog:      handler.NewCatalogHandler(catalogSvc),
		Checks:       checks,
		JWTSecret:    cfg.JWTSecret,
		Cache:        cacheCfg,
		RateLimit:    config.LoadRateLimitConfig(),
		MetricCfg:    cfg.Metric,
		Redis:        rdb,
		Metrics:      m,
		Log:          log,
	})

	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	if sched != nil {
		if err := sched.Stop(); err != nil {
			log.Error("scheduler shutdown", zap.Error(err))
		}
	}
	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		log.Warn("notification consumer did not stop in time")
	}
}

