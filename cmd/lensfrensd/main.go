package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"lensfrens/go-backend/internal/adapters/rpc"
	"lensfrens/go-backend/internal/composition/lensfrens"
	"lensfrens/go-backend/internal/config"
	"lensfrens/go-backend/internal/platform/privacylog"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	rpcAddr := flag.String("rpc-addr", "", "JSON-RPC listen address (overrides config)")
	configPath := flag.String("config", "", "Path to config.yaml (optional)")
	dataDir := flag.String("data-dir", "", "Directory for wallet and session data (optional)")
	dryRun := flag.Bool("dry-run", false, "keep uploads in memory and sign transactions without sending them")
	debug := flag.Bool("debug", false, "log at debug level")
	flag.Parse()
	if *showVersion {
		fmt.Printf("lensfrensd version=%s commit=%s build_date=%s\n", version, commit, buildDate)
		return
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := privacylog.NewJSONLogger(os.Stderr, level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("config load failed", "error", err.Error())
		os.Exit(1)
	}
	if dir := strings.TrimSpace(*dataDir); dir != "" {
		cfg.DataDir = dir
	}
	if addr := strings.TrimSpace(*rpcAddr); addr != "" {
		cfg.RPC.Addr = addr
	}

	rt, err := lensfrens.Build(ctx, cfg, lensfrens.BuildOptions{Logger: logger, DryRun: *dryRun})
	if err != nil {
		logger.Error("lensfrensd failed to initialize", "error", err.Error())
		os.Exit(1)
	}
	defer rt.Close()
	rt.Start(ctx)

	srv := rpc.NewServer(rt.Controller, rpc.Options{
		Addr:           cfg.RPC.Addr,
		Token:          cfg.RPC.Token,
		AllowedOrigins: cfg.RPC.AllowedOrigins,
		RateLimitRPS:   cfg.RPC.RateLimitRPS,
		RateLimitBurst: cfg.RPC.RateLimitBurst,
		Gatherer:       rt.Registry,
		Logger:         logger.With("component", "rpc"),
	})

	logger.Info("lensfrensd starting", "version", version)
	if err := srv.Run(ctx); err != nil {
		logger.Error("lensfrensd failed", "error", err.Error())
		rt.Close()
		os.Exit(1)
	}
	logger.Info("lensfrensd stopped")
}
