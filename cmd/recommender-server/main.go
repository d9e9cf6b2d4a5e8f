package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"yashubustudio/recommender/internal/logging"
	"yashubustudio/recommender/internal/server"
	"yashubustudio/recommender/recommender"
)

func main() {
	srvCfg := server.Load()

	cfg, err := recommender.LoadConfig(srvCfg.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "recommender-server: load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	res, err := recommender.LoadResources(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load resources")
	}
	svc, err := recommender.NewService(res, logger)
	if err != nil {
		_ = res.Scorer.Close()
		logger.Fatal().Err(err).Msg("failed to create service")
	}
	defer svc.Close()

	handler := server.NewCartHandler(svc, srvCfg.RequestTimeout, logger)
	e := server.NewRouter(handler, logger)

	go func() {
		addr := fmt.Sprintf(":%s", srvCfg.Port)
		logger.Info().Str("address", addr).Msg("server starting")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), srvCfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}
	logger.Info().Msg("server stopped")
}
