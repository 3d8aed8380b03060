package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/restaurant-table-reservation/internal/cache"
	"github.com/iliyamo/restaurant-table-reservation/internal/config"
	"github.com/iliyamo/restaurant-table-reservation/internal/database"
	"github.com/iliyamo/restaurant-table-reservation/internal/handler"
	"github.com/iliyamo/restaurant-table-reservation/internal/lock"
	"github.com/iliyamo/restaurant-table-reservation/internal/logger"
	"github.com/iliyamo/restaurant-table-reservation/internal/middleware"
	"github.com/iliyamo/restaurant-table-reservation/internal/policy"
	"github.com/iliyamo/restaurant-table-reservation/internal/queue"
	"github.com/iliyamo/restaurant-table-reservation/internal/repository"
	"github.com/iliyamo/restaurant-table-reservation/internal/router"
	"github.com/iliyamo/restaurant-table-reservation/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real environment wins

	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.DefaultConfig()).Fatal("load config", zap.Error(err))
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		log.Fatal("connect mysql", zap.Error(err))
	}
	defer db.Close()
	if cfg.DB.AutoMigrate {
		if err := database.EnsureSchema(ctx, db); err != nil {
			log.Fatal("apply schema", zap.Error(err))
		}
	}
	if cfg.DB.Seed {
		if err := database.Seed(ctx, db); err != nil {
			log.Fatal("seed tables", zap.Error(err))
		}
	}

	rdb, err := config.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, using in-process cache and locks; rate limiting disabled", zap.Error(err))
	} else {
		defer rdb.Close()
	}

	var store cache.Store = cache.NewMemoryStore()
	if rdb != nil && cfg.DayCache.Store == "redis" {
		store = cache.NewRedisStore(rdb)
	}
	var locker lock.Locker = lock.NewMemory()
	var scripter redis.Scripter // stays nil without redis: the limiter passes requests through
	if rdb != nil {
		locker = lock.NewRedis(rdb, cfg.Reservation.LockTTL, cfg.Reservation.LockWait)
		scripter = rdb
	}

	var publisher service.EventPublisher = queue.NopPublisher{}
	if cfg.Queue.URL != "" {
		p := queue.NewPublisher(cfg.Queue.URL, cfg.Queue.Name, queue.PublisherOptions{}, log)
		defer p.Close()
		publisher = p
		if cfg.Queue.ConsumerEnabled {
			go func() {
				err := queue.StartReservationConsumer(ctx, queue.ConsumerConfig{
					URL:    cfg.Queue.URL,
					Queue:  cfg.Queue.Name,
					LogDir: cfg.Queue.LogDir,
				}, log)
				if err != nil && !errors.Is(err, context.Canceled) {
					log.Error("reservation consumer stopped", zap.Error(err))
				}
			}()
		}
	}

	tables := repository.NewTableRepo(db)
	reservations := repository.NewReservationRepo(db)
	days := cache.NewDayCache(store, reservations, cache.Options{
		Prefix:   cfg.DayCache.Prefix,
		ShortTTL: cfg.DayCache.ShortTTL,
	}, log)
	matcher := service.NewMatcher(tables, days, cfg.Location, log)
	svc := service.NewReservationService(matcher, reservations, days, locker, publisher, service.Options{
		MaxAttempts: cfg.Reservation.MaxAttempts,
	}, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLogger(log), middleware.Recovery(log))

	router.RegisterRoutes(e, handler.NewHealthHandler(healthChecks(db, rdb)))
	router.RegisterReservations(e,
		handler.NewReservationHandler(svc, policy.DefaultHours, cfg.Location, log),
		cfg.JWTSecret,
		middleware.NewBookingLimiter(cfg.RateLimit, scripter, log).Middleware(),
	)

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("timezone", cfg.Location.String()))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
}

func healthChecks(db handler.Pinger, rdb *redis.Client) map[string]handler.Pinger {
	checks := map[string]handler.Pinger{"mysql": db}
	if rdb != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
	return checks
}
