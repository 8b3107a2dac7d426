package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"TestVaultAlerts/internal/app"
	"TestVaultAlerts/internal/config"
	"TestVaultAlerts/internal/logging"
)

func main() {
	settingsPath := flag.String("settings", "", "path to the YAML settings file (default $TESTVAULT_ALERTS_SETTINGS)")
	resetConfig := flag.Bool("reset-config", false, "forget saved credentials, URL and download directory, then ask again (not with -rescan)")
	rescanDir := flag.String("rescan", "", "classify the PDFs already in this folder and list positives, without contacting the portal")
	nonInteractive := flag.Bool("non-interactive", false, "never prompt; fail when a required value is missing")
	flag.Parse()

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load(*settingsPath)
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	application := app.New(cfg, app.Options{
		ResetConfig:    *resetConfig,
		RescanDir:      *rescanDir,
		NonInteractive: *nonInteractive,
	}, logger)

	if err := application.Run(ctx); err != nil {
		logger.Error("run failed", "error", err)
		stop()
		os.Exit(1)
	}
}
