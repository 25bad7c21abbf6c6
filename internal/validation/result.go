package validation

import (
	"github.com/kosarica/receipt-service/internal/receipt"
)

// Status classifies a receipt price against the online price
type Status string

const (
	StatusExactMatch            Status = "exact_match"
	StatusWithinTolerance       Status = "within_tolerance"
	StatusReceiptLower          Status = "receipt_lower"
	StatusPossibleOvercharge    Status = "possible_overcharge"
	StatusSignificantOvercharge Status = "significant_overcharge"
	StatusNotFound              Status = "not_found"
	StatusError                 Status = "error"
)

// Statuses lists every status in display order
var Statuses = []Status{
	StatusExactMatch,
	StatusWithinTolerance,
	StatusReceiptLower,
	StatusPossibleOvercharge,
	StatusSignificantOvercharge,
	StatusNotFound,
	StatusError,
}

// DisplayName returns the user-facing label
func (s Status) DisplayName() string {
	switch s {
	case StatusExactMatch:
		return "Exact Match"
	case StatusWithinTolerance:
		return "Within Tolerance"
	case StatusReceiptLower:
		return "Receipt Lower"
	case StatusPossibleOvercharge:
		return "Possible Overcharge"
	case StatusSignificantOvercharge:
		return "Significant Overcharge"
	case StatusNotFound:
		return "Not Found"
	case StatusError:
		return "Could Not Validate"
	default:
		return string(s)
	}
}

// Icon returns an SF Symbol style icon identifier
func (s Status) Icon() string {
	switch s {
	case StatusExactMatch, StatusWithinTolerance:
		return "checkmark.circle.fill"
	case StatusReceiptLower:
		return "arrow.down.circle.fill"
	case StatusPossibleOvercharge:
		return "exclamationmark.triangle.fill"
	case StatusSignificantOvercharge:
		return "xmark.octagon.fill"
	default:
		return "questionmark.circle"
	}
}

// IsFlagged reports whether the status should prompt a user warning
func (s Status) IsFlagged() bool {
	return s == StatusPossibleOvercharge || s == StatusSignificantOvercharge
}

// IsResolved reports whether an online price was found and compared
func (s Status) IsResolved() bool {
	return s != StatusNotFound && s != StatusError && s != ""
}

// Confidence expresses how sure we are the online product is the receipt's product
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// DisplayName returns the user-facing label
func (c Confidence) DisplayName() string {
	switch c {
	case ConfidenceHigh:
		return "High"
	case ConfidenceMedium:
		return "Medium"
	case ConfidenceLow:
		return "Low"
	default:
		return "None"
	}
}

// Method names the lookup strategy that produced the online price
type Method string

const (
	MethodUPCDirect  Method = "upc_direct"
	MethodUPCScrape  Method = "upc_scrape"
	MethodNameSearch Method = "name_search"
	MethodNone       Method = "none"
)

// DisplayName returns the user-facing label
func (m Method) DisplayName() string {
	switch m {
	case MethodUPCDirect:
		return "UPC Direct"
	case MethodUPCScrape:
		return "UPC + Scrape"
	case MethodNameSearch:
		return "Name Search"
	default:
		return "None"
	}
}

// Item is a receipt line to validate
type Item struct {
	Name  string `json:"name" binding:"required"`
	Price int64  `json:"price"` // cents
	Code  string `json:"code,omitempty"`
}

// HasCode reports whether the item carries a product code
func (i Item) HasCode() bool {
	return i.Code != ""
}

// ItemFromScanned converts a parsed receipt item
func ItemFromScanned(s receipt.ScannedItem) Item {
	item := Item{Name: s.Name, Price: s.Price}
	if s.SKU != nil {
		item.Code = *s.SKU
	}
	return item
}

// ItemsFromReceipt converts every parsed item of a receipt, preserving order
func ItemsFromReceipt(data *receipt.ScannedReceiptData) []Item {
	items := make([]Item, 0, len(data.Items))
	for _, s := range data.Items {
		items = append(items, ItemFromScanned(s))
	}
	return items
}

// PriceValidationResult is the outcome of validating one item
type PriceValidationResult struct {
	Item              Item       `json:"item"`
	OnlinePrice       *int64     `json:"onlinePrice,omitempty"` // cents; nil when not found
	PriceDifference   int64      `json:"priceDifference"`       // receipt - online, cents
	PercentDifference float64    `json:"percentDifference"`
	Status            Status     `json:"status"`
	Confidence        Confidence `json:"confidence"`
	Method            Method     `json:"method"`
	Source            string     `json:"source,omitempty"`
	Notes             string     `json:"notes"`
	ProductURL        *string    `json:"productUrl,omitempty"`
}

// ShouldFlag reports whether the result warrants a user-facing warning
func (r PriceValidationResult) ShouldFlag() bool {
	return r.Status.IsFlagged()
}
