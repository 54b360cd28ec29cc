package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/cardroomlabs/tourneycore/internal/engine"
	"github.com/cardroomlabs/tourneycore/internal/server"
	"github.com/cardroomlabs/tourneycore/internal/store"
)

var CLI struct {
	Config   string `short:"c" long:"config" default:"tourneyd.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" long:"addr" help:"Server address to bind to (overrides config)"`
	DB       string `long:"db" help:"Path to the sqlite database (overrides config)"`
	LogLevel string `short:"l" long:"log-level" help:"Log level (overrides config)"`
}

func main() {
	ctx := kong.Parse(&CLI)

	cfg, err := server.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		ctx.Exit(1)
	}

	// Apply command line overrides
	if CLI.Addr != "" {
		cfg.Server.Address = CLI.Addr
	}
	if CLI.DB != "" {
		cfg.Server.DBPath = CLI.DB
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		ctx.Exit(1)
	}

	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	logger.Info("Starting tournament server",
		"addr", cfg.GetServerAddress(),
		"db", cfg.Server.DBPath,
		"seats", len(cfg.Seats),
		"blindLevels", len(cfg.Blinds))

	db, err := store.Open(cfg.Server.DBPath)
	if err != nil {
		logger.Error("Failed to open database", "error", err)
		ctx.Exit(1)
	}
	defer func() { _ = db.Close() }()

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.SeedBlindLevels(runCtx, cfg.EngineBlinds()); err != nil {
		logger.Error("Failed to seed blind levels", "error", err)
		ctx.Exit(1)
	}

	eng := engine.New(db, logger, nil, cfg.EngineSeats())
	ws := server.NewServer(cfg.GetServerAddress(), logger, eng, cfg.Game, nil, cfg.Server.TurnTimeout)

	g, gCtx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return ws.Start()
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down server...")
		return ws.Stop()
	})

	if err := g.Wait(); err != nil && gCtx.Err() == nil {
		logger.Error("Server failed", "error", err)
		ctx.Exit(1)
	}
}
