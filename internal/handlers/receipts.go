package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kosarica/receipt-service/internal/receipt"
	"github.com/kosarica/receipt-service/internal/validation"
)

// ============================================================================
// Parse
// ============================================================================

// ParseRequest carries OCR output as plain text or positioned fragments.
// Observations take precedence when both are set.
type ParseRequest struct {
	Text         string                `json:"text,omitempty"`
	Observations []receipt.Observation `json:"observations,omitempty"`
	Retailer     string                `json:"retailer,omitempty"` // optional hint; detected when empty
}

// ParseResponse is the parsed receipt plus consistency figures
type ParseResponse struct {
	*receipt.ScannedReceiptData
	ItemsTotal    int64  `json:"itemsTotal"`              // cents
	TotalMismatch *int64 `json:"totalMismatch,omitempty"` // stated total minus items total, cents
}

// ParseReceipt handles POST /api/v1/receipts/parse
func (h *Handler) ParseReceipt(c *gin.Context) {
	var req ParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if strings.TrimSpace(req.Text) == "" && len(req.Observations) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "text or observations is required"})
		return
	}

	data := h.parse(req.Text, req.Observations, req.Retailer)

	resp := ParseResponse{ScannedReceiptData: data, ItemsTotal: data.ItemsTotal()}
	if mismatch, ok := data.TotalMismatch(); ok {
		resp.TotalMismatch = &mismatch
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) parse(text string, observations []receipt.Observation, retailer string) *receipt.ScannedReceiptData {
	hint := receipt.ParseRetailer(retailer)

	var data *receipt.ScannedReceiptData
	if len(observations) > 0 {
		data = h.parser.ParseObservations(observations, hint)
	} else {
		data = h.parser.ParseText(text, hint)
	}
	h.metrics.RecordReceiptParsed(string(data.Retailer), len(data.Items))
	return data
}

// ============================================================================
// Detect
// ============================================================================

// DetectRequest carries the OCR text to classify
type DetectRequest struct {
	Text string `json:"text" binding:"required"`
}

// DetectResponse names the detected retailer
type DetectResponse struct {
	Retailer    receipt.RetailerType `json:"retailer"`
	DisplayName string               `json:"displayName"`
	Domain      string               `json:"domain,omitempty"`
}

// DetectRetailer handles POST /api/v1/receipts/detect
func (h *Handler) DetectRetailer(c *gin.Context) {
	var req DetectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	r := receipt.DetectRetailer(receipt.TokenizeText(req.Text))
	c.JSON(http.StatusOK, DetectResponse{
		Retailer:    r,
		DisplayName: r.DisplayName(),
		Domain:      r.Domain(),
	})
}

// ============================================================================
// Validate
// ============================================================================

// ValidateRequest lists the items to validate. When Items is empty, Text is
// parsed first and the parsed items are validated.
type ValidateRequest struct {
	Retailer  string            `json:"retailer,omitempty"`
	Items     []validation.Item `json:"items,omitempty" binding:"omitempty,max=200,dive"`
	Text      string            `json:"text,omitempty"`
	Tolerance *float64          `json:"tolerance,omitempty" binding:"omitempty,gt=0,lt=1"`
}

// ValidateReceipt handles POST /api/v1/receipts/validate
func (h *Handler) ValidateReceipt(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if !h.validationAvailable() {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: validation.ErrValidationUnavailable.Error()})
		return
	}

	retailer := receipt.ParseRetailer(req.Retailer)
	items := req.Items
	if len(items) == 0 {
		if strings.TrimSpace(req.Text) == "" {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "items or text is required"})
			return
		}
		data := h.parse(req.Text, nil, req.Retailer)
		retailer = data.Retailer
		items = validation.ItemsFromReceipt(data)
	}

	validator := h.validator
	if req.Tolerance != nil {
		validator = validator.WithTolerance(*req.Tolerance)
	}

	ctx := c.Request.Context()
	if h.validateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.validateTimeout)
		defer cancel()
	}

	summary, err := validator.ValidateReceipt(ctx, items, retailer, nil)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, summary)
	case errors.Is(err, validation.ErrValidationUnavailable):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		h.logger.Warn().Err(err).Int("items", len(items)).Msg("Validation request cancelled")
		c.JSON(http.StatusGatewayTimeout, ErrorResponse{Error: "validation cancelled: " + err.Error()})
	default:
		h.logger.Error().Err(err).Msg("Validation failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}
