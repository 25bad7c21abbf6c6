package receipt

import "strings"

// BoundingBox is the normalized position of an OCR fragment.
// MidY grows upward, so larger values are nearer the top of the image.
type BoundingBox struct {
	MinX   float64 `json:"minX"`
	MidY   float64 `json:"midY"`
	Height float64 `json:"height"`
}

// Observation is a single OCR text fragment with its position
type Observation struct {
	Text string      `json:"text"`
	Box  BoundingBox `json:"boundingBox"`
}

// ScannedItem is one line item extracted from a receipt
type ScannedItem struct {
	Name  string  `json:"name"`
	Price int64   `json:"price"` // cents
	SKU   *string `json:"sku,omitempty"`
}

// HasSKU reports whether the item carries a product code
func (i ScannedItem) HasSKU() bool {
	return i.SKU != nil && *i.SKU != ""
}

// ScannedReceiptData is the result of parsing a receipt.
// Items is never nil; an empty slice means nothing could be extracted.
type ScannedReceiptData struct {
	StoreName   *string       `json:"storeName,omitempty"`
	Retailer    RetailerType  `json:"retailer"`
	Items       []ScannedItem `json:"items"`
	TotalAmount *int64        `json:"totalAmount,omitempty"` // cents, as printed on the receipt
	RawText     string        `json:"rawText"`
}

// ItemsTotal returns the sum of all item prices in cents
func (d *ScannedReceiptData) ItemsTotal() int64 {
	var sum int64
	for _, item := range d.Items {
		sum += item.Price
	}
	return sum
}

// TotalMismatch returns stated total minus item sum (tax, discounts, missed lines).
// Returns false when the receipt had no readable total.
func (d *ScannedReceiptData) TotalMismatch() (int64, bool) {
	if d.TotalAmount == nil {
		return 0, false
	}
	return *d.TotalAmount - d.ItemsTotal(), true
}

func newReceiptData(retailer RetailerType, tokens []string) *ScannedReceiptData {
	return &ScannedReceiptData{
		Retailer: retailer,
		Items:    []ScannedItem{},
		RawText:  strings.Join(tokens, "\n"),
	}
}
