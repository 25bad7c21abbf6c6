package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kosarica/receipt-service/internal/receipt"
)

// receiptInput is OCR output read from a file: plain text, or a JSON array
// of positioned observations when the file has a .json extension
type receiptInput struct {
	Text         string
	Observations []receipt.Observation
}

func readInput(path string, stdin io.Reader) (*receiptInput, error) {
	var content []byte
	var err error
	if path == "-" {
		content, err = io.ReadAll(stdin)
	} else {
		content, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		var obs []receipt.Observation
		if err := json.Unmarshal(content, &obs); err != nil {
			return nil, fmt.Errorf("failed to decode observations from %s: %w", path, err)
		}
		return &receiptInput{Observations: obs}, nil
	}
	return &receiptInput{Text: string(content)}, nil
}

func (in *receiptInput) parse(parser *receipt.Parser, hint receipt.RetailerType) *receipt.ScannedReceiptData {
	if len(in.Observations) > 0 {
		return parser.ParseObservations(in.Observations, hint)
	}
	return parser.ParseText(in.Text, hint)
}

func (in *receiptInput) tokens() []string {
	if len(in.Observations) > 0 {
		return receipt.TokenizeObservations(in.Observations)
	}
	return receipt.TokenizeText(in.Text)
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
