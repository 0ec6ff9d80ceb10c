package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/baharserene/internal/auth"
	"github.com/vasiliy-maslov/baharserene/internal/cart"
	"github.com/vasiliy-maslov/baharserene/internal/catalog"
	"github.com/vasiliy-maslov/baharserene/internal/config"
	"github.com/vasiliy-maslov/baharserene/internal/coupon"
	"github.com/vasiliy-maslov/baharserene/internal/db"
	"github.com/vasiliy-maslov/baharserene/internal/events"
	storefrontHttp "github.com/vasiliy-maslov/baharserene/internal/handler/http"
	"github.com/vasiliy-maslov/baharserene/internal/middleware"
	"github.com/vasiliy-maslov/baharserene/internal/order"
	"github.com/vasiliy-maslov/baharserene/internal/user"
	"github.com/vasiliy-maslov/baharserene/internal/wishlist"
)

func setupLogger(cfg config.AppConfig) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log.Logger = log.With().Str("service", "storefront").Logger()
}

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	setupLogger(cfg.App)

	log.Info().Msg("Storefront starting...")
	if cfg.UsesDefaultSecret() {
		log.Warn().Msg("JWT_SECRET is not set, using the built-in development secret")
	}

	if err := db.ApplyMigrations(cfg.Postgres); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 10*time.Second)
	pg, err := db.New(connectCtx, cfg.Postgres)
	cancelConnect()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pg.Close()

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		pingCtx, cancelPing := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis not reachable yet, rate limiting fails open until it is")
		}
		cancelPing()
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close redis client")
			}
		}()
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic)
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.OrderTopic).Msg("Publishing order events to Kafka")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close event publisher")
		}
	}()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpire)

	catalogRepo := catalog.NewRepository(pg.Pool)
	catalogSvc := catalog.NewService(catalogRepo)
	userSvc := user.NewService(user.NewRepository(pg.Pool))
	wishlistSvc := wishlist.NewService(wishlist.NewRepository(pg.Pool), catalogSvc)
	orderSvc := order.NewService(order.NewRepository(pg.Pool), catalogRepo, coupon.NewRepository(pg.Pool), publisher)

	var cartStorage cart.Storage = cart.NewMemoryStorage()
	if rdb != nil {
		cartStorage = cart.NewRedisStorage(rdb, cfg.Redis.CartTTL)
	}
	cartSvc := cart.NewService(cartStorage, catalogRepo, orderSvc)

	deps := storefrontHttp.Deps{
		Users:      userSvc,
		Products:   catalogSvc,
		Wishlist:   wishlistSvc,
		Carts:      cartSvc,
		Orders:     orderSvc,
		Tokens:     tokens,
		CORSOrigin: cfg.App.CORSOrigin,
	}
	if rdb != nil {
		deps.APILimiter = middleware.NewRateLimiter(rdb, "api", cfg.Redis.APIRateLimit, cfg.Redis.APIRateWindow,
			middleware.WithIdentify(tokens.Identify),
		).Handler
		deps.LoginLimiter = middleware.NewRateLimiter(rdb, "login", cfg.Redis.LoginRateLimit, cfg.Redis.LoginRateWindow,
			middleware.WithMessage("Too many login attempts, please try again later."),
		).Handler
	} else {
		log.Warn().Msg("REDIS_ADDR is empty: carts are kept in memory and rate limiting is off")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      storefrontHttp.NewRouter(deps),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown failed")
	}
	log.Info().Msg("Storefront stopped gracefully")
}
