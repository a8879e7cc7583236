package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/hospitalbillflow/internal/models"
)

func writeImage(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("image-bytes"), 0o600))
	return path
}

func TestPageExtractor_Extract_Success(t *testing.T) {
	gen := &fakeGenerator{respond: func(int) (*genai.GenerateContentResponse, error) {
		return textResponse(pageJSON(models.PageTypeBillDetail, 2), 1200, 80), nil
	}}
	e := NewPageExtractor(gen, time.Minute)

	res := e.Extract(context.Background(), writeImage(t, "page.png"), 2)

	require.NoError(t, res.Err)
	assert.Equal(t, 2, res.PageNumber)
	assert.Equal(t, models.PageTypeBillDetail, res.Page.PageType)
	assert.Len(t, res.Page.BillItems, 2)
	assert.Equal(t, models.TokenUsage{InputTokens: 1200, OutputTokens: 80, TotalTokens: 1280}, res.Usage)

	require.Len(t, gen.parts, 1)
	require.Len(t, gen.parts[0], 2)
	blob, ok := gen.parts[0][0].(genai.Blob)
	require.True(t, ok)
	assert.Equal(t, "image/png", blob.MIMEType)
	assert.Equal(t, []byte("image-bytes"), blob.Data)
	assert.Contains(t, string(gen.parts[0][1].(genai.Text)), "Page 2")
}

func TestPageExtractor_Extract_JPEGMimeType(t *testing.T) {
	gen := &fakeGenerator{respond: func(int) (*genai.GenerateContentResponse, error) {
		return textResponse(pageJSON(models.PageTypeBillDetail, 0), 10, 5), nil
	}}

	res := NewPageExtractor(gen, 0).Extract(context.Background(), writeImage(t, "scan.jpg"), 1)

	require.NoError(t, res.Err)
	assert.Equal(t, "image/jpeg", gen.parts[0][0].(genai.Blob).MIMEType)
}

func TestPageExtractor_Extract_ModelFailure(t *testing.T) {
	gen := &fakeGenerator{respond: func(int) (*genai.GenerateContentResponse, error) {
		return nil, errors.New("rpc error: code = ResourceExhausted desc = quota exceeded")
	}}

	res := NewPageExtractor(gen, 0).Extract(context.Background(), writeImage(t, "page.png"), 3)

	var extractionErr *ExtractionError
	require.ErrorAs(t, res.Err, &extractionErr)
	assert.Equal(t, 3, extractionErr.PageNumber)
	assert.Contains(t, res.Err.Error(), "quota exceeded")
	assert.Equal(t, models.TokenUsage{}, res.Usage)
}

func TestPageExtractor_Extract_EmptyResponse(t *testing.T) {
	tests := map[string]*genai.GenerateContentResponse{
		"no candidates": {},
		"blank text":    textResponse("   ", 100, 0),
	}
	for name, resp := range tests {
		t.Run(name, func(t *testing.T) {
			gen := &fakeGenerator{respond: func(int) (*genai.GenerateContentResponse, error) { return resp, nil }}

			res := NewPageExtractor(gen, 0).Extract(context.Background(), writeImage(t, "page.png"), 1)

			var extractionErr *ExtractionError
			require.ErrorAs(t, res.Err, &extractionErr)
			assert.Equal(t, models.TokenUsage{}, res.Usage)
		})
	}
}

func TestPageExtractor_Extract_MissingImage(t *testing.T) {
	gen := &fakeGenerator{respond: func(int) (*genai.GenerateContentResponse, error) {
		t.Fatal("model must not be called")
		return nil, nil
	}}

	res := NewPageExtractor(gen, 0).Extract(context.Background(), filepath.Join(t.TempDir(), "gone.png"), 1)

	var extractionErr *ExtractionError
	assert.ErrorAs(t, res.Err, &extractionErr)
}

func TestPageExtractor_Extract_AppliesTimeout(t *testing.T) {
	var deadline time.Time
	gen := &fakeGenerator{}
	gen.respond = func(int) (*genai.GenerateContentResponse, error) {
		return textResponse(pageJSON(models.PageTypeBillDetail, 0), 1, 1), nil
	}
	timed := generatorFunc(func(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
		deadline, _ = ctx.Deadline()
		return gen.GenerateContent(ctx, parts...)
	})

	res := NewPageExtractor(timed, 30*time.Second).Extract(context.Background(), writeImage(t, "page.png"), 1)

	require.NoError(t, res.Err)
	assert.WithinDuration(t, time.Now().Add(30*time.Second), deadline, 5*time.Second)
}

type generatorFunc func(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)

func (f generatorFunc) GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	return f(ctx, parts...)
}
