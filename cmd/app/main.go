package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/wichananm65/bookstore-backend/internal/config"
	"github.com/wichananm65/bookstore-backend/internal/payment"
)

const eventLogTTL = 72 * time.Hour

func main() {
	decimal.MarshalJSONWithoutQuotes = true

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)

	ctx := context.Background()
	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open stores")
	}
	defer st.close()

	if cfg.Admin.Email != "" {
		if _, err := st.userService().EnsureAdmin(ctx, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			log.Fatal().Err(err).Msg("failed to ensure admin account")
		}
	}

	var events payment.EventLog = payment.NoopEventLog{}
	if cfg.RedisURL != "" {
		redisLog, err := payment.NewRedisEventLog(cfg.RedisURL, eventLogTTL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisLog.Close()
		events = redisLog
	}

	app, payments := newApp(cfg, st, events)

	go func() {
		log.Info().Str("addr", cfg.Addr).Bool("in_memory", cfg.InMemory()).Msg("starting server")
		if err := app.Listen(cfg.Addr); err != nil {
			log.Error().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	payments.Wait()
}

func setupLogger(cfg config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	logger := zerolog.New(os.Stdout)
	if !cfg.Production() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	}
	log.Logger = logger.With().Timestamp().Str("service", "bookstore").Logger()
}
