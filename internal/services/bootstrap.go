package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/hospitalbillflow/internal/config"
	"github.com/Lllllllleong/hospitalbillflow/internal/gcp"
)

// NewBillExtractorFromConfig creates the model and storage clients once and
// wires them into a BillExtractorFunction. Call Close when done.
func NewBillExtractorFromConfig(ctx context.Context, cfg *config.Config) (*BillExtractorFunction, error) {
	vertexClient, err := gcp.NewVertexClient(ctx, cfg.Gemini)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}
	closers := []func() error{vertexClient.Close}

	var objects ObjectOpener
	if cfg.GCS.Enabled {
		objectReader, err := gcp.NewObjectReader(ctx)
		if err != nil {
			_ = vertexClient.Close()
			return nil, err
		}
		objects = objectReader
		closers = append(closers, objectReader.Close)
	}

	f := NewBillExtractor(
		NewFetcher(FetcherConfig{Timeout: cfg.Fetch.Timeout, MaxBytes: cfg.Fetch.MaxBytes}, objects),
		NewRasterizer(cfg.Render.DPI),
		NewPageExtractor(vertexClient.BillExtractorModel, cfg.Model.Timeout),
		BillExtractorConfig{
			WorkDir:         cfg.WorkDir,
			KeepTempFiles:   cfg.KeepTempFiles,
			PageConcurrency: cfg.Extraction.PageConcurrency,
			StrictPages:     cfg.Extraction.StrictPages,
		},
	)
	f.closers = closers

	slog.Info("Bill extractor initialized.",
		"model", cfg.Gemini.Model,
		"region", cfg.Gemini.Region,
		"pageConcurrency", cfg.Extraction.PageConcurrency,
		"strictPages", cfg.Extraction.StrictPages,
		"gcsEnabled", cfg.GCS.Enabled,
	)
	return f, nil
}
