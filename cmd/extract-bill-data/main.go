package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/gin-gonic/gin"

	"github.com/Lllllllleong/hospitalbillflow/internal/config"
	"github.com/Lllllllleong/hospitalbillflow/internal/handler"
	"github.com/Lllllllleong/hospitalbillflow/internal/router"
	"github.com/Lllllllleong/hospitalbillflow/internal/services"
)

var (
	engine  *gin.Engine
	once    sync.Once
	initErr error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// "HandleExtractBillData" is the entry point name configured in GCP.
	functions.HTTP("HandleExtractBillData", handleExtractBillData)
}

// main runs the function locally; with FUNCTION_TARGET=HandleExtractBillData it is served at every path.
func main() {
	port := "8080"
	if p := os.Getenv("PORT"); p != "" {
		port = p
	}
	if err := funcframework.Start(port); err != nil {
		slog.Error("funcframework.Start failed", "error", err)
		os.Exit(1)
	}
}

// handleExtractBillData serves the bill extractor routes from inside the function.
func handleExtractBillData(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		var cfg *config.Config
		cfg, initErr = config.Load()
		if initErr != nil {
			return
		}
		gin.SetMode(gin.ReleaseMode)
		var extractor *services.BillExtractorFunction
		extractor, initErr = services.NewBillExtractorFromConfig(context.Background(), cfg)
		if initErr != nil {
			return
		}
		engine = router.Setup(handler.NewHealthHandler(), handler.NewExtractionHandler(extractor), cfg.CORS.AllowedOrigins)
	})
	if initErr != nil {
		slog.Error("Critical: bill extractor initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	engine.ServeHTTP(w, r)
}
