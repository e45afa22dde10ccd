package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/vishwas-11/nodecall/internal/config"
	"github.com/vishwas-11/nodecall/internal/logging"
	"github.com/vishwas-11/nodecall/internal/server"
	"github.com/vishwas-11/nodecall/internal/signaling"
)

func main() {
	logging.Init(false)

	cfg, err := config.Load(config.Options{})
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	registry := prometheus.NewRegistry()
	metrics := signaling.NewMetrics(registry)

	hub := signaling.NewHub(metrics)
	go hub.Run()

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.NewRouter(hub, registry, cfg.AllowedOrigin),
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("starting signaling server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	hub.Stop()
	log.Info().Msg("server exited")
}
