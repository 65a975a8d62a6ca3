package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/garment-costing/internal/bid"
	"github.com/vasiliy-maslov/garment-costing/internal/config"
	"github.com/vasiliy-maslov/garment-costing/internal/db"
	"github.com/vasiliy-maslov/garment-costing/internal/event"
	costingHttp "github.com/vasiliy-maslov/garment-costing/internal/handler/http"
	"github.com/vasiliy-maslov/garment-costing/internal/order"
	"github.com/vasiliy-maslov/garment-costing/internal/project"
	"github.com/vasiliy-maslov/garment-costing/internal/reference"
	"github.com/vasiliy-maslov/garment-costing/internal/stage"
	"github.com/vasiliy-maslov/garment-costing/internal/user"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "costing-service").Logger()

	log.Info().Msg("Costing service starting...")

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath, ".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		log.Warn().Err(err).Str("log_level", cfg.App.LogLevel).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.IsProduction() {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("service", "costing-service").Logger()
	}
	log.Debug().Str("env", cfg.App.Env).Str("port", cfg.App.Port).Msg("Configuration loaded")

	if err := db.ApplyMigrations(cfg.Postgres); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	dbConn, err := db.New(ctx, cfg.Postgres)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()

	tx := db.NewTransactor(dbConn.Pool)
	events := event.NewLogPublisher()

	stageStore := stage.NewStore()
	calculators := stage.NewCalculators(reference.NewStore(), stageStore, cfg.Pricing)
	users := user.NewRepository()

	orderSvc := order.NewService(dbConn.Pool, tx, order.NewRepository(), users)
	bidSvc := bid.NewService(dbConn.Pool, tx, bid.NewRepository(), stageStore, users, orderSvc, events)
	stageSvc := stage.NewService(dbConn.Pool, tx, stageStore, calculators, bidSvc, events)
	projectSvc := project.NewService(dbConn.Pool, tx, project.NewRepository(), stageStore, calculators, users)

	router := costingHttp.NewRouter(dbConn.Pool,
		costingHttp.NewProjectHandler(projectSvc, stageSvc),
		costingHttp.NewBidHandler(bidSvc),
		costingHttp.NewOrderHandler(orderSvc),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
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
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown failed")
	}
	log.Info().Msg("Server stopped")
}
