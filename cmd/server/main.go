package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/crmkit/segmint/internal/api"
	"github.com/crmkit/segmint/internal/config"
	"github.com/crmkit/segmint/internal/logging"
	"github.com/crmkit/segmint/internal/rulegen"
	"github.com/crmkit/segmint/internal/store"
	"github.com/crmkit/segmint/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logger := logging.ForEnv(cfg.AppEnv, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	telemetry.Init()

	ctx := context.Background()
	st, err := store.NewStore(ctx, cfg.StoreType, cfg.DatabaseDSN, cfg.HistoryLimit)
	if err != nil {
		logger.Fatal().Err(err).Str("store", cfg.StoreType).Msg("store")
	}
	defer st.Close()

	gen, err := rulegen.NewGenerator(cfg.Rulegen(logging.Component(logger, "rulegen")))
	if err != nil {
		logger.Fatal().Err(err).Str("provider", cfg.RulegenProvider).Msg("rule generator")
	}
	logger.Info().Str("provider", gen.Name()).Str("store", cfg.StoreType).Str("env", cfg.AppEnv).Msg("starting")

	srvAPI := api.NewServer(api.Options{
		Generator:      gen,
		Store:          st,
		APIKey:         cfg.APIKey,
		APIKeyHash:     cfg.APIKeyHash,
		Strict:         cfg.RulegenStrict,
		RateLimitPerIP: cfg.RateLimitPerIP,
		RequestTimeout: cfg.RulegenTimeout + 5*time.Second,
		Logger:         logger,
	})

	srv := api.NewHTTPServer(cfg.HTTPAddr, srvAPI.Router())
	metricsSrv := api.NewHTTPServer(cfg.MetricsAddr, api.MetricsRouter())

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server")
		}
	}()
	go func() {
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
		if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server")
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctxShut, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShut)
	_ = metricsSrv.Shutdown(ctxShut)
	logger.Info().Msg("stopped")
}
