package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Lllllllleong/hospitalbillflow/internal/models"
	"github.com/gin-gonic/gin"
)

// BillExtractor runs the extraction pipeline for one document.
type BillExtractor interface {
	Process(ctx context.Context, req *models.ExtractionRequest) *models.ExtractionResponse
}

// ExtractionHandler serves the bill extraction endpoint.
type ExtractionHandler struct {
	extractor BillExtractor
}

// NewExtractionHandler creates a new ExtractionHandler.
func NewExtractionHandler(extractor BillExtractor) *ExtractionHandler {
	return &ExtractionHandler{extractor: extractor}
}

// Extract handles POST /extract-bill-data. Pipeline failures are reported with
// HTTP 200 and is_success=false; only an unusable request body gets a 422.
func (h *ExtractionHandler) Extract(c *gin.Context) {
	var req models.ExtractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("Could not decode request body", "error", err, "requestId", c.GetString("request_id"))
		c.JSON(http.StatusUnprocessableEntity, models.NewFailureResponse(fmt.Errorf("invalid request body: %w", err)))
		return
	}

	c.JSON(http.StatusOK, h.extractor.Process(c.Request.Context(), &req))
}
