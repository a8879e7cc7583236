package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/Lllllllleong/hospitalbillflow/internal/models"
	"golang.org/x/sync/errgroup"
)

// BillExtractorConfig holds the request-level pipeline policy.
type BillExtractorConfig struct {
	// WorkDir is the parent of per-request work directories; empty means os.TempDir().
	WorkDir       string
	KeepTempFiles bool
	// PageConcurrency bounds in-flight model calls per request; 1 is strictly sequential.
	PageConcurrency int
	// StrictPages fails the request on a page extraction error instead of
	// substituting a placeholder page.
	StrictPages bool
}

// BillExtractorFunction drives fetch, rasterize and per-page extraction for one document.
type BillExtractorFunction struct {
	fetcher    *Fetcher
	rasterizer *Rasterizer
	extractor  *PageExtractor
	config     BillExtractorConfig
	closers    []func() error
}

// NewBillExtractor assembles the pipeline from its components.
func NewBillExtractor(fetcher *Fetcher, rasterizer *Rasterizer, extractor *PageExtractor, config BillExtractorConfig) *BillExtractorFunction {
	if config.PageConcurrency < 1 {
		config.PageConcurrency = 1
	}
	return &BillExtractorFunction{
		fetcher:    fetcher,
		rasterizer: rasterizer,
		extractor:  extractor,
		config:     config,
	}
}

// Process runs the whole pipeline and always returns a response. Pipeline
// failures are reported in the failure envelope rather than as an error.
func (f *BillExtractorFunction) Process(ctx context.Context, req *models.ExtractionRequest) *models.ExtractionResponse {
	logCtx := slog.With("document", req.Document)
	logCtx.Info("Starting bill extraction.")

	resp, err := f.process(ctx, logCtx, req)
	if err != nil {
		logCtx.Error("Bill extraction failed.", "error", err)
		return models.NewFailureResponse(err)
	}

	logCtx.Info("Bill extraction complete.",
		"pageCount", len(resp.Data.PagewiseLineItems),
		"totalItemCount", resp.Data.TotalItemCount,
		"totalTokens", resp.TokenUsage.TotalTokens,
	)
	return resp
}

func (f *BillExtractorFunction) process(ctx context.Context, logCtx *slog.Logger, req *models.ExtractionRequest) (*models.ExtractionResponse, error) {
	workDir, err := os.MkdirTemp(f.config.WorkDir, "bill-extractor-*")
	if err != nil {
		return nil, &AggregationError{Err: fmt.Errorf("failed to create work dir: %w", err)}
	}
	if f.config.KeepTempFiles {
		logCtx.Info("Keeping work directory.", "path", workDir)
	} else {
		defer os.RemoveAll(workDir)
	}

	documentPath, err := f.fetcher.Fetch(ctx, req.Document, workDir)
	if err != nil {
		return nil, err
	}

	pages, err := f.rasterizer.Rasterize(documentPath)
	if err != nil {
		return nil, err
	}
	logCtx.Info("Document split into pages.", "pageCount", len(pages))

	results, err := f.extractPages(ctx, pages)
	if err != nil {
		return nil, err
	}

	var usage models.TokenUsage
	data := &models.ExtractionData{PagewiseLineItems: make([]models.PageData, 0, len(results))}
	for _, res := range results {
		page, pageUsage, err := f.resolve(res)
		if err != nil {
			return nil, err
		}
		usage.Add(pageUsage)
		data.TotalItemCount += len(page.BillItems)
		data.PagewiseLineItems = append(data.PagewiseLineItems, page)
	}

	return &models.ExtractionResponse{
		IsSuccess:  true,
		TokenUsage: &usage,
		Data:       data,
	}, nil
}

// extractPages runs the extractor over pages with bounded concurrency. Results
// are stored by index so the output keeps page order.
func (f *BillExtractorFunction) extractPages(ctx context.Context, pages []string) ([]PageResult, error) {
	results := make([]PageResult, len(pages))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(f.config.PageConcurrency)

	for i, imagePath := range pages {
		pageNumber := i + 1
		eg.Go(func() error {
			res := f.extractor.Extract(gctx, imagePath, pageNumber)
			results[i] = res
			if res.Err != nil && !f.maskable(res.Err) {
				return res.Err
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// resolve applies the page failure policy and forces page_no to the page's position.
func (f *BillExtractorFunction) resolve(res PageResult) (models.PageData, models.TokenUsage, error) {
	pageNo := strconv.Itoa(res.PageNumber)
	if res.Err != nil {
		if !f.maskable(res.Err) {
			return models.PageData{}, models.TokenUsage{}, res.Err
		}
		return models.PlaceholderPage(pageNo), models.TokenUsage{}, nil
	}

	page := res.Page
	page.PageNo = pageNo
	if page.BillItems == nil {
		page.BillItems = []models.BillItem{}
	}
	return page, res.Usage, nil
}

func (f *BillExtractorFunction) maskable(err error) bool {
	var extractionErr *ExtractionError
	return !f.config.StrictPages && errors.As(err, &extractionErr)
}

// Close releases the clients the pipeline was built with.
func (f *BillExtractorFunction) Close() error {
	var errs []error
	for _, c := range f.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
