// Package main is the entry point for the oEmbed fixes server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"oembedfixes/config"
	"oembedfixes/internal/app"
	"oembedfixes/internal/logging"
	"oembedfixes/internal/version"
)

func main() {
	versionFlag := flag.Bool("version", false, "Print version information")
	flag.Parse()

	if *versionFlag {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	slog.SetDefault(logging.New(os.Stderr, cfg.Log.Format, cfg.Log.Level))

	// Log the version immediately on startup
	slog.Info("starting oembedfixes",
		"version", version.Version,
		"commit", version.Commit,
		"build_date", version.Date,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	application, err := app.New(ctx, app.Config{AppConfig: cfg})
	cancel()
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	// Handle graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := application.Shutdown(ctx); err != nil {
			slog.Error("application shutdown error", "error", err)
		}
	}()

	addr := ":" + cfg.Server.Port
	if err := application.Start(addr); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
