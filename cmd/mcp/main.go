package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"incluverse/backend/internal/app"
	"incluverse/backend/internal/config"
	"incluverse/backend/internal/mcptools"

	"github.com/mark3labs/mcp-go/server"
	log "github.com/sirupsen/logrus"
)

const version = "0.1.0"

func main() {
	// stdout carries the protocol
	log.SetOutput(os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	cfg.SetupLogging()

	a, err := app.New(cfg, nil)
	if err != nil {
		log.WithError(err).Fatal("failed to build complaint engine")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := a.Service.Load(ctx); err != nil {
		log.WithError(err).Error("complaint collection could not be loaded")
	}
	go func() { _ = a.Service.WatchConnectivity(ctx, a.Signal) }()
	if a.Prober != nil {
		go func() { _ = a.Prober.Run(ctx) }()
	}

	s := mcptools.New(a.Service).NewServer(version)
	if err := server.ServeStdio(s); err != nil {
		log.WithError(err).Fatal("mcp server stopped")
	}
}
