package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"training_log/internal/config"
	"training_log/internal/entry"
	"training_log/internal/ledger"
	"training_log/internal/server"
	"training_log/internal/sheets"

	"github.com/rs/zerolog/log"
)

func main() {
	setupEnvironment()

	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()
	service := initializeService(ctx, cfg)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.NewRouter(service),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Bool("dry_run", cfg.DryRun).Msg("Training log server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown did not complete cleanly")
	}
}

// initializeService wires the sheets adapter, ledger client and entry
// service. A nil return leaves the API running in unconfigured mode so
// the health endpoint can still report the problem.
func initializeService(ctx context.Context, cfg *config.Config) server.Service {
	log.Debug().Msg("Initializing clients")

	sheetsClient, err := sheets.NewClient(ctx, cfg.CredentialsFile, cfg.SpreadsheetID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create sheets client, starting unconfigured")
		return nil
	}

	ledgerClient := ledger.NewClient(sheetsClient, cfg.SheetName)
	service := entry.NewService(ledgerClient, entry.WithDryRun(cfg.DryRun))

	log.Debug().
		Str("sheet", cfg.SheetName).
		Msg("Clients initialized successfully")
	return service
}
