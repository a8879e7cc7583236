package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
	"github.com/Lllllllleong/hospitalbillflow/internal/config"
	"github.com/Lllllllleong/hospitalbillflow/internal/models"
	"google.golang.org/api/option"
)

// --- Bill Extractor Model Prompts ---
const BillExtractorSystemPrompt = "You are a hospital bill parser. You read one page image of a hospital bill and return its line items as JSON that strictly follows the provided schema."

const billExtractorUserPrompt = `Extract detailed bill items from hospital bill image - Page %d.
Output must strictly follow the JSON schema.

Rules:
- Extract ONLY item rows (not totals/subtotals/discount/summary).
- Convert numbers to float.
- If qty missing -> default to 1.0
- "Final Bill" page should return empty bill_items unless new items exist.`

// BillExtractorUserPrompt returns the per-page instruction sent alongside the page image.
func BillExtractorUserPrompt(pageNumber int) string {
	return fmt.Sprintf(billExtractorUserPrompt, pageNumber)
}

// PageDataSchema is the response schema the model output is constrained to.
func PageDataSchema() *genai.Schema {
	item := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"item_name":     {Type: genai.TypeString},
			"item_amount":   {Type: genai.TypeNumber},
			"item_rate":     {Type: genai.TypeNumber},
			"item_quantity": {Type: genai.TypeNumber},
		},
		Required: []string{"item_name", "item_amount", "item_rate"},
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"page_no": {Type: genai.TypeString},
			"page_type": {
				Type:   genai.TypeString,
				Format: "enum",
				Enum:   models.PageTypes,
			},
			"bill_items": {Type: genai.TypeArray, Items: item},
		},
		Required: []string{"page_no", "page_type", "bill_items"},
	}
}

// VertexClient holds the pre-configured generative model for bill extraction.
type VertexClient struct {
	BillExtractorModel *genai.GenerativeModel
	baseClient         *genai.Client
}

// NewVertexClient creates the client once at startup from explicit configuration.
func NewVertexClient(ctx context.Context, cfg config.GeminiConfig) (*VertexClient, error) {
	if cfg.ProjectID == "" || cfg.Region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	var opts []option.ClientOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	baseClient, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Region, opts...)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	model := baseClient.GenerativeModel(cfg.Model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(BillExtractorSystemPrompt)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   PageDataSchema(),
		Temperature:      genai.Ptr[float32](0.0),
	}

	return &VertexClient{
		BillExtractorModel: model,
		baseClient:         baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
