package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"cloud.google.com/go/vertexai/genai"
	"github.com/stretchr/testify/require"
)

// writeTestPDF writes a minimal PDF with pageCount blank pages and a valid xref table.
func writeTestPDF(t *testing.T, path string, pageCount int) {
	t.Helper()

	var objects []string
	kids := make([]string, pageCount)
	for i := 0; i < pageCount; i++ {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pageCount),
	)
	for i := 0; i < pageCount; i++ {
		objects = append(objects, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 200] /Resources << >> >>")
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xrefOffset)

	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
}

// fakeGenerator stands in for the Gemini model. respond receives the page
// number parsed from the prompt.
type fakeGenerator struct {
	mu      sync.Mutex
	calls   []int
	parts   [][]genai.Part
	respond func(pageNumber int) (*genai.GenerateContentResponse, error)
}

func (g *fakeGenerator) GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	pageNumber := 0
	for _, p := range parts {
		if txt, ok := p.(genai.Text); ok {
			if idx := strings.Index(string(txt), "Page "); idx >= 0 {
				_, _ = fmt.Sscanf(string(txt)[idx:], "Page %d", &pageNumber)
			}
		}
	}

	g.mu.Lock()
	g.calls = append(g.calls, pageNumber)
	g.parts = append(g.parts, parts)
	g.mu.Unlock()

	return g.respond(pageNumber)
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func textResponse(text string, inputTokens, outputTokens int32) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Role:  "model",
					Parts: []genai.Part{genai.Text(text)},
				},
				FinishReason: genai.FinishReasonStop,
			},
		},
		UsageMetadata: &genai.UsageMetadata{
			PromptTokenCount:     inputTokens,
			CandidatesTokenCount: outputTokens,
			TotalTokenCount:      inputTokens + outputTokens,
		},
	}
}

// pageJSON returns a model answer with itemCount items and a deliberately wrong page_no.
func pageJSON(pageType string, itemCount int) string {
	items := make([]string, itemCount)
	for i := range items {
		items[i] = fmt.Sprintf(`{"item_name":"Item %d","item_amount":%d.5,"item_rate":%d.5,"item_quantity":1}`, i+1, i+1, i+1)
	}
	return fmt.Sprintf(`{"page_no":"99","page_type":%q,"bill_items":[%s]}`, pageType, strings.Join(items, ","))
}
