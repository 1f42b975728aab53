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

	"github.com/miorah/storefront/internal/cache"
	"github.com/miorah/storefront/internal/config"
	"github.com/miorah/storefront/internal/httpapi"
	"github.com/miorah/storefront/internal/poller"
	"github.com/miorah/storefront/internal/repository"
	"github.com/miorah/storefront/internal/service"
	"github.com/miorah/storefront/internal/token"
	"github.com/miorah/storefront/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Service: "storefront",
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb connection failed")
	}
	if err := repository.CreateCartIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("cart index creation failed")
	}
	if err := repository.CreateUserIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("user index creation failed")
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	tokens := token.NewManager(cfg.JWTSecret, token.NewRedisBlacklist(redisClient))
	authService := service.NewAuthService(repository.NewMongoUserRepository(db), tokens, log)
	cartService := service.NewCartService(repository.NewMongoCartRepository(db), cache.NewRedisCache(redisClient), log)

	if len(cfg.KafkaBrokers) > 0 {
		orderPoller := poller.New(cartService, log, cfg.KafkaBrokers...)
		defer orderPoller.Close()
		go orderPoller.Run(ctx)
		log.Info().Strs("brokers", cfg.KafkaBrokers).Msg("order poller running")
	}

	router := httpapi.NewRouter(authService, cartService, tokens, log, cfg.RequestTimeout)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
