package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cpehesara/StayOps-sub001/internal/app"
	"github.com/cpehesara/StayOps-sub001/internal/cache"
	"github.com/cpehesara/StayOps-sub001/internal/clock"
	"github.com/cpehesara/StayOps-sub001/internal/config"
	"github.com/cpehesara/StayOps-sub001/internal/metrics"
	"github.com/cpehesara/StayOps-sub001/internal/notify"
	"github.com/cpehesara/StayOps-sub001/internal/storage/postgres"
	"github.com/cpehesara/StayOps-sub001/internal/sweeper"
	transporthttp "github.com/cpehesara/StayOps-sub001/internal/transport/http"
	"github.com/cpehesara/StayOps-sub001/migrations"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "stayops-api").Logger()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to db")
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		log.Fatal().Err(err).Msg("db ping")
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		log.Fatal().Err(err).Msg("apply migrations")
	}

	clk := clock.NewSystem()
	m := metrics.New()

	hooks := notify.NewHooks(log, m.Hook)
	var kafkaPub *notify.KafkaPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPub = notify.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		hooks.Register(kafkaPub.Hook)
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka publisher enabled")
	}

	var redisClient *redis.Client
	var selections cache.SelectionStore
	switch cfg.Cache.Backend {
	case "redis":
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(startupCtx).Err(); err != nil {
			log.Fatal().Err(err).Msg("redis ping")
		}
		selections = cache.NewRedisStore(redisClient, cfg.Cache.TTL)
		log.Info().Str("addr", cfg.Redis.Address).Msg("redis selection store enabled")
	default:
		selections = cache.NewMemoryStore(cfg.Cache.TTL, cfg.Cache.MaxEntries, clk)
	}

	holdRepo := postgres.NewHoldRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)
	reservationRepo := postgres.NewReservationRepository(pool)

	limits := app.HoldLimits{
		DefaultTTL:     time.Duration(cfg.Holds.DefaultTTLMinutes) * time.Minute,
		MinTTL:         time.Duration(cfg.Holds.MinTTLMinutes) * time.Minute,
		MaxTTL:         time.Duration(cfg.Holds.MaxTTLMinutes) * time.Minute,
		MaxAbsoluteTTL: time.Duration(cfg.Holds.MaxAbsoluteTTLMinutes) * time.Minute,
	}
	holdSvc := app.NewHoldService(holdRepo, paymentRepo, clk,
		app.WithHoldLimits(limits),
		app.WithHoldHooks(hooks),
		app.WithHoldLogger(log),
	)
	convertSvc := app.NewConvertService(reservationRepo, clk, hooks)
	sweepSvc := app.NewSweepService(holdRepo, clk, app.SweepConfig{
		IncludePaymentPending: cfg.Sweeper.ExpirePaymentPending,
		BatchSize:             cfg.Sweeper.BatchSize,
	}, hooks, log)
	paymentSweepSvc := app.NewPaymentSweepService(paymentRepo, clk, cfg.Sweeper.BatchSize, hooks, log)

	paymentTimeout := time.Duration(cfg.Sweeper.PaymentTimeoutMinutes) * time.Minute

	mux := transporthttp.NewRouter(transporthttp.RouterDeps{
		Holds:                 holdSvc,
		Converter:             convertSvc,
		ExpirySweep:           sweepSvc,
		PaymentSweep:          paymentSweepSvc,
		DefaultPaymentTimeout: paymentTimeout,
		Selections:            selections,
		Metrics:               true,
		Log:                   log,
	})
	handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.Server.CORSOrigins, mux), log)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: handler,
	}

	sweepCtx, stopSweeps := context.WithCancel(context.Background())
	runners := []*sweeper.Runner{
		sweeper.NewRunner("hold-expiry", cfg.Sweeper.ExpiryInterval, sweepSvc.ExpireOverdueHolds, log, m),
		sweeper.NewRunner("payment-timeout", cfg.Sweeper.PaymentInterval, func(ctx context.Context) (int, error) {
			return paymentSweepSvc.TimeoutStalePayments(ctx, paymentTimeout)
		}, log, m),
	}
	if mem, ok := selections.(*cache.MemoryStore); ok {
		runners = append(runners, sweeper.NewRunner("selection-cache", cfg.Cache.TTL, mem.Sweep, log, m))
	}
	for _, r := range runners {
		r.Start(sweepCtx)
	}

	log.Info().Str("port", cfg.Server.Port).Msg("api listening")

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
		}
	case <-stopCtx.Done():
		log.Info().Msg("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("server shutdown error")
	}

	stopSweeps()
	for _, r := range runners {
		r.Wait()
	}
	if kafkaPub != nil {
		if err := kafkaPub.Close(); err != nil {
			log.Error().Err(err).Msg("kafka close")
		}
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	log.Info().Msg("server stopped")
}
