package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Lllllllleong/hospitalbillflow/internal/models"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// DefaultItemQuantity is used when the model leaves item_quantity out.
const DefaultItemQuantity = 1.0

// pageDataJSONSchema mirrors the response schema given to the model. Unknown
// properties are allowed so they can be dropped during decoding.
const pageDataJSONSchema = `{
  "type": "object",
  "required": ["page_type", "bill_items"],
  "properties": {
    "page_no": {"type": ["string", "integer"]},
    "page_type": {"enum": ["Bill Detail", "Final Bill", "Pharmacy"]},
    "bill_items": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["item_name", "item_amount", "item_rate"],
        "properties": {
          "item_name": {"type": "string"},
          "item_amount": {"type": "number"},
          "item_rate": {"type": "number"},
          "item_quantity": {"type": ["number", "null"]}
        }
      }
    }
  }
}`

var pageDataSchema = jsonschema.MustCompileString("page_data.json", pageDataJSONSchema)

type wireBillItem struct {
	ItemName     string   `json:"item_name"`
	ItemAmount   float64  `json:"item_amount"`
	ItemRate     float64  `json:"item_rate"`
	ItemQuantity *float64 `json:"item_quantity"`
}

type wirePageData struct {
	PageType  string         `json:"page_type"`
	BillItems []wireBillItem `json:"bill_items"`
}

// DecodePageData strictly decodes model output into a PageData. Text that is
// not JSON yields a *ParseError; JSON that violates the page schema yields an
// *ExtractionError. page_no is left for the caller to set.
func DecodePageData(text string, pageNumber int) (models.PageData, error) {
	cleaned := trimCodeFence(text)

	var raw any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return models.PageData{}, &ParseError{PageNumber: pageNumber, Err: err}
	}
	if err := pageDataSchema.Validate(raw); err != nil {
		return models.PageData{}, &ExtractionError{PageNumber: pageNumber, Err: fmt.Errorf("json does not match page schema: %w", err)}
	}

	var wire wirePageData
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		return models.PageData{}, &ExtractionError{PageNumber: pageNumber, Err: fmt.Errorf("decode page: %w", err)}
	}

	page := models.PageData{
		PageType:  wire.PageType,
		BillItems: make([]models.BillItem, 0, len(wire.BillItems)),
	}
	for _, item := range wire.BillItems {
		quantity := DefaultItemQuantity
		if item.ItemQuantity != nil {
			quantity = *item.ItemQuantity
		}
		page.BillItems = append(page.BillItems, models.BillItem{
			ItemName:     item.ItemName,
			ItemAmount:   item.ItemAmount,
			ItemRate:     item.ItemRate,
			ItemQuantity: quantity,
		})
	}
	return page, nil
}

func trimCodeFence(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}
