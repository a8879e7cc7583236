package services

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	fitz "github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// DefaultRenderDPI matches the resolution bill images are usually scanned at.
const DefaultRenderDPI = 200

// Rasterizer turns a local document into an ordered list of page images.
type Rasterizer struct {
	dpi float64
}

// NewRasterizer creates a Rasterizer rendering PDF pages at dpi.
func NewRasterizer(dpi float64) *Rasterizer {
	if dpi <= 0 {
		dpi = DefaultRenderDPI
	}
	return &Rasterizer{dpi: dpi}
}

// Rasterize returns one image path per page. PDFs are rendered to
// <path>_page<N>.png next to the source; any other file is returned as is.
func (r *Rasterizer) Rasterize(path string) ([]string, error) {
	if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return []string{path}, nil
	}

	pageCount, err := validatePDF(path)
	if err != nil {
		return nil, &ConversionError{Path: path, Err: err}
	}

	doc, err := fitz.New(path)
	if err != nil {
		return nil, &ConversionError{Path: path, Err: fmt.Errorf("open pdf: %w", err)}
	}
	defer doc.Close()

	if doc.NumPage() != pageCount {
		slog.Warn("Renderer and validator disagree on page count.", "path", path, "validated", pageCount, "rendered", doc.NumPage())
	}

	pages := make([]string, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		png, err := doc.ImagePNG(i, r.dpi)
		if err != nil {
			return nil, &ConversionError{Path: path, Err: fmt.Errorf("render page %d: %w", i+1, err)}
		}
		outPath := fmt.Sprintf("%s_page%d.png", path, i+1)
		if err := os.WriteFile(outPath, png, 0o600); err != nil {
			return nil, &ConversionError{Path: path, Err: fmt.Errorf("write page %d: %w", i+1, err)}
		}
		pages = append(pages, outPath)
	}

	slog.Info("PDF rendered to page images.", "path", path, "pageCount", len(pages), "dpi", r.dpi)
	return pages, nil
}

func validatePDF(path string) (int, error) {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(path, cfg); err != nil {
		return 0, fmt.Errorf("failed to validate PDF: %w", err)
	}
	pageCount, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	if pageCount == 0 {
		return 0, fmt.Errorf("PDF has no pages")
	}
	return pageCount, nil
}
