package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"github.com/Lllllllleong/hospitalbillflow/internal/gcp"
	"github.com/Lllllllleong/hospitalbillflow/internal/models"
)

// Generator is the part of *genai.GenerativeModel the extractor depends on.
type Generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// PageResult is the outcome of extracting one page: either Page and Usage, or Err.
type PageResult struct {
	PageNumber int
	Page       models.PageData
	Usage      models.TokenUsage
	Err        error
}

// PageExtractor sends page images to the model and decodes its answers.
type PageExtractor struct {
	model   Generator
	timeout time.Duration
}

// NewPageExtractor creates a PageExtractor. A zero timeout leaves model calls
// bounded only by the caller's context.
func NewPageExtractor(model Generator, timeout time.Duration) *PageExtractor {
	return &PageExtractor{model: model, timeout: timeout}
}

// Extract runs one model call for the image at imagePath. Failures are logged
// with the page number and returned in PageResult.Err with zero usage.
func (e *PageExtractor) Extract(ctx context.Context, imagePath string, pageNumber int) PageResult {
	logCtx := slog.With("page", pageNumber, "image", filepath.Base(imagePath))

	page, usage, err := e.extract(ctx, imagePath, pageNumber)
	if err != nil {
		logCtx.Error("Extraction failed on page.", "error", err)
		return PageResult{PageNumber: pageNumber, Err: err}
	}

	logCtx.Info("Page extracted.", "items", len(page.BillItems), "inputTokens", usage.InputTokens, "outputTokens", usage.OutputTokens)
	return PageResult{PageNumber: pageNumber, Page: page, Usage: usage}
}

func (e *PageExtractor) extract(ctx context.Context, imagePath string, pageNumber int) (models.PageData, models.TokenUsage, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return models.PageData{}, models.TokenUsage{}, &ExtractionError{PageNumber: pageNumber, Err: fmt.Errorf("read image: %w", err)}
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	resp, err := e.model.GenerateContent(ctx,
		genai.ImageData(imageFormat(imagePath), data),
		genai.Text(gcp.BillExtractorUserPrompt(pageNumber)),
	)
	if err != nil {
		return models.PageData{}, models.TokenUsage{}, &ExtractionError{PageNumber: pageNumber, Err: fmt.Errorf("failed to generate content from gemini: %w", err)}
	}

	text, err := responseText(resp)
	if err != nil {
		return models.PageData{}, models.TokenUsage{}, &ExtractionError{PageNumber: pageNumber, Err: err}
	}

	page, err := DecodePageData(text, pageNumber)
	if err != nil {
		return models.PageData{}, models.TokenUsage{}, err
	}
	return page, usageOf(resp), nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini returned no candidates")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", fmt.Errorf("gemini returned an empty response (finish reason %v)", resp.Candidates[0].FinishReason)
	}
	return b.String(), nil
}

func usageOf(resp *genai.GenerateContentResponse) models.TokenUsage {
	if resp.UsageMetadata == nil {
		return models.TokenUsage{}
	}
	usage := models.TokenUsage{
		InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
		OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
	}
	usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	return usage
}

// imageFormat returns the image subtype genai.ImageData expects.
func imageFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "jpeg"
	default:
		return "png"
	}
}
