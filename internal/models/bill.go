package models

// Page types the model is allowed to assign to a bill page.
const (
	PageTypeBillDetail = "Bill Detail"
	PageTypeFinalBill  = "Final Bill"
	PageTypePharmacy   = "Pharmacy"
)

// PageTypes lists every accepted page_type value, in schema order.
var PageTypes = []string{PageTypeBillDetail, PageTypeFinalBill, PageTypePharmacy}

// BillItem is a single line entry on a hospital bill.
type BillItem struct {
	ItemName     string  `json:"item_name"`
	ItemAmount   float64 `json:"item_amount"`
	ItemRate     float64 `json:"item_rate"`
	ItemQuantity float64 `json:"item_quantity"`
}

// PageData is the extraction result for one rendered page.
type PageData struct {
	PageNo    string     `json:"page_no"`
	PageType  string     `json:"page_type"`
	BillItems []BillItem `json:"bill_items"`
}

// TokenUsage accounts for model tokens consumed by a request or a single page.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add accumulates other into u and keeps TotalTokens consistent.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens = u.InputTokens + u.OutputTokens
}

// ExtractionRequest is the body of POST /extract-bill-data.
type ExtractionRequest struct {
	Document string `json:"document" binding:"required"`
}

// ExtractionData is the payload of a successful extraction.
type ExtractionData struct {
	PagewiseLineItems []PageData `json:"pagewise_line_items"`
	TotalItemCount    int        `json:"total_item_count"`
}

// ExtractionResponse is returned for every extraction request. On failure only
// IsSuccess, Error and a null Data are serialized.
type ExtractionResponse struct {
	IsSuccess  bool            `json:"is_success"`
	TokenUsage *TokenUsage     `json:"token_usage,omitempty"`
	Error      string          `json:"error,omitempty"`
	Data       *ExtractionData `json:"data"`
}

// NewFailureResponse builds the failure envelope for err.
func NewFailureResponse(err error) *ExtractionResponse {
	return &ExtractionResponse{IsSuccess: false, Error: err.Error(), Data: nil}
}

// PlaceholderPage is the page substituted when extraction fails for pageNo.
func PlaceholderPage(pageNo string) PageData {
	return PageData{
		PageNo:    pageNo,
		PageType:  PageTypeBillDetail,
		BillItems: []BillItem{},
	}
}
