package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mcdev12/slotsync/go/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "slotsync.yaml", "path to the screen config file")
	mode := flag.String("mode", "", "screen mode, customer or admin (overrides config)")
	flag.Parse()

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if *mode != "" {
		cfg.Screen.Mode = *mode
		if err := cfg.Validate(); err != nil {
			log.Fatal().Err(err).Msg("invalid mode flag")
		}
	}
	zerolog.SetGlobalLevel(cfg.LogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := setupServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up services")
	}
	defer services.Close()

	server := setupServer(cfg, services)

	log.Info().
		Str("screen", cfg.Screen.Name).
		Str("mode", cfg.Screen.Mode).
		Str("queue_server", cfg.Server.URL).
		Str("addr", server.Addr).
		Msg("starting slotsync screen")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		services.Gateway.Start(gctx)
		return nil
	})
	if services.Publisher != nil {
		g.Go(func() error {
			return services.Publisher.Start(gctx)
		})
	}
	g.Go(func() error {
		return services.Screen.Run(gctx)
	})
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("screen exited with error")
		os.Exit(1)
	}
	log.Info().Msg("screen stopped")
}
