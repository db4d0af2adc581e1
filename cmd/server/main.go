package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gravitas-games/hexfront/internal/config"
	"github.com/gravitas-games/hexfront/internal/server"
	"github.com/gravitas-games/hexfront/pkg/logger"
)

func main() {
	logger.Init()
	log := logger.Component("main")
	log.Info("starting hexfront server")

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/server.yaml"
	}

	cfg, err := config.Load(configPath)
	switch {
	case err == nil:
		log.WithField("path", configPath).Info("configuration loaded")
	case errors.Is(err, os.ErrNotExist):
		log.WithField("path", configPath).Warn("configuration not found, using defaults")
		cfg = config.Default()
	default:
		log.WithError(err).Fatal("failed to load configuration")
	}

	srv, err := server.New(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to create server")
	}

	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := srv.Start(addr); err != nil {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		log.WithError(err).Error("server error")
	case sig := <-sigChan:
		log.WithField("signal", sig.String()).Info("shutting down")
	}

	if err := srv.Shutdown(); err != nil {
		log.WithError(err).Error("error during shutdown")
	}
	log.Info("server stopped")
}
