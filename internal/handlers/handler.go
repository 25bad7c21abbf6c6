// Package handlers implements the HTTP API for parsing and validating receipts
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kosarica/receipt-service/internal/receipt"
	"github.com/kosarica/receipt-service/internal/validation"
)

// ErrorResponse is returned with every non-2xx status
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handler serves the receipt endpoints
type Handler struct {
	parser    *receipt.Parser
	validator *validation.Validator
	metrics   *validation.MetricsRecorder
	logger    *zerolog.Logger

	// validateTimeout bounds one validation request; zero means only the
	// client's own context applies
	validateTimeout time.Duration
}

// New creates a handler. validator may be nil, in which case validation
// requests answer 503.
func New(parser *receipt.Parser, validator *validation.Validator, logger *zerolog.Logger) *Handler {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if parser == nil {
		parser = receipt.NewParser(logger)
	}
	return &Handler{
		parser:    parser,
		validator: validator,
		metrics:   validation.NewMetricsRecorder(),
		logger:    logger,
	}
}

// WithValidateTimeout bounds each validation request so a slow run answers
// 504 before the server's write deadline cuts the response off
func (h *Handler) WithValidateTimeout(d time.Duration) *Handler {
	if d > 0 {
		h.validateTimeout = d
	}
	return h
}

func (h *Handler) validationAvailable() bool {
	return h.validator != nil && h.validator.Available()
}

// RegisterRoutes mounts the receipt endpoints on group
func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	receipts := group.Group("/receipts")
	{
		receipts.POST("/parse", h.ParseReceipt)
		receipts.POST("/detect", h.DetectRetailer)
		receipts.POST("/validate", h.ValidateReceipt)
	}
}
