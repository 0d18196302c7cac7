// Package main provides the fbbot job server: an HTTP API that drives
// headless browser sessions through account login, group join, and
// post-with-comment workflows, many accounts at a time.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/winkey1/fbbot/pkg/browser"
	"github.com/winkey1/fbbot/pkg/config"
	"github.com/winkey1/fbbot/pkg/jobs"
	"github.com/winkey1/fbbot/pkg/logging"
	"github.com/winkey1/fbbot/pkg/media"
	"github.com/winkey1/fbbot/pkg/orchestrator"
	"github.com/winkey1/fbbot/pkg/profiles"
	"github.com/winkey1/fbbot/pkg/server"
	"github.com/winkey1/fbbot/pkg/workflows"
)

const version = "0.1.0"

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigFile  string
	EnvFile     string
	ShowVersion bool
}

func main() {
	cliConfig := parseFlags()

	if cliConfig.ShowVersion {
		fmt.Printf("fbbot v%s\n", version)
		return
	}

	loadEnvFile(cliConfig.EnvFile)

	cfg, err := config.Load(cliConfig.ConfigFile)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Create context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down gracefully...")
		cancel()
	}()

	if err := run(ctx, cfg); err != nil {
		cancel()
		log.Fatalf("Application error: %v", err)
	}
}

// parseFlags parses command line flags and environment variables
func parseFlags() *CLIConfig {
	cliConfig := &CLIConfig{}

	flag.StringVar(&cliConfig.ConfigFile, "config", os.Getenv("FBBOT_CONFIG"), "Path to YAML configuration file (or set FBBOT_CONFIG env var)")
	flag.StringVar(&cliConfig.EnvFile, "env", "", "Path to .env file (default: ./.env if present)")
	flag.BoolVar(&cliConfig.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "fbbot - browser automation job server\n\n")
		fmt.Fprintf(os.Stderr, "Usage: fbbot [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  FBBOT_CONFIG          Path to YAML configuration file\n")
		fmt.Fprintf(os.Stderr, "  FBBOT_ADDR            HTTP listen address (host:port)\n")
		fmt.Fprintf(os.Stderr, "  FBBOT_HEADLESS        Run browsers headless (true/false)\n")
		fmt.Fprintf(os.Stderr, "  FBBOT_BASE_URL        Target site base URL\n")
		fmt.Fprintf(os.Stderr, "  FBBOT_PROFILES_ROOT   Directory for persistent browser profiles\n")
		fmt.Fprintf(os.Stderr, "  FBBOT_MAX_CONCURRENCY Upper bound on workers per job\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  fbbot                          # Defaults, listening on :8090\n")
		fmt.Fprintf(os.Stderr, "  fbbot -config fbbot.yaml\n")
		fmt.Fprintf(os.Stderr, "  FBBOT_HEADLESS=false fbbot     # Watch the browsers work\n")
	}

	flag.Parse()
	return cliConfig
}

// loadEnvFile loads environment variables from a .env file. A missing
// default file is fine; an explicitly named one must exist.
func loadEnvFile(path string) {
	if path == "" {
		_ = godotenv.Load()
		return
	}
	if err := godotenv.Load(path); err != nil {
		log.Fatalf("Failed to load env file %s: %v", path, err)
	}
}

// run wires the components and serves until the context is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	mainLog, err := logging.NewLogger("main")
	if err != nil {
		mainLog.Warnf("Failed to initialize main logger, using stderr fallback: %v", err)
	}
	defer mainLog.Close()

	launcher := browser.NewPlaywrightLauncher()
	if err := launcher.Start(); err != nil {
		return fmt.Errorf("failed to start browser driver: %w", err)
	}
	defer func() {
		if stopErr := launcher.Stop(); stopErr != nil {
			mainLog.Errorf("Failed to stop browser driver: %v", stopErr)
		}
	}()

	dir := profiles.NewDirectory(cfg.Profiles.Root)

	engine, err := workflows.NewEngine(cfg, launcher, dir)
	if err != nil {
		return fmt.Errorf("failed to build workflow engine: %w", err)
	}

	registry := jobs.NewRegistry()
	orch := orchestrator.New(cfg, engine, registry, dir)

	processor, err := media.NewProcessor(cfg.Media)
	if err != nil {
		return err
	}

	api := server.New(cfg, orch, processor)
	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: api.Router(),
	}

	serveErr := make(chan error, 1)
	go func() {
		mainLog.Infof("listening on %s (log: %s)", cfg.Server.Addr, mainLog.LogPath())
		fmt.Printf("fbbot listening on %s\n", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	// Cancel jobs and close their browsers before draining the
	// listener, so no worker opens a browser into the shutdown.
	orch.StopAll()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutMs)*time.Millisecond)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown failed: %w", err)
	}
	return <-serveErr
}
