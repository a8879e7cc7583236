package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/Lllllllleong/hospitalbillflow/internal/config"
	"github.com/Lllllllleong/hospitalbillflow/internal/handler"
	"github.com/Lllllllleong/hospitalbillflow/internal/router"
	"github.com/Lllllllleong/hospitalbillflow/internal/services"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server exited.", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()})))
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	extractor, err := services.NewBillExtractorFromConfig(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize bill extractor: %w", err)
	}
	defer extractor.Close()

	r := router.Setup(handler.NewHealthHandler(), handler.NewExtractionHandler(extractor), cfg.CORS.AllowedOrigins)

	slog.Info("Server starting.", "port", cfg.Server.Port)
	if err := r.Run(cfg.Server.Port); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
