// Package receipt turns OCR output into structured receipt data.
package receipt

import (
	"github.com/rs/zerolog"
)

// Parser dispatches tokens to the strategy registered for the receipt's retailer
type Parser struct {
	registry *Registry
	logger   *zerolog.Logger
}

// NewParser creates a parser with the default strategies
func NewParser(logger *zerolog.Logger) *Parser {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return NewParserWithRegistry(NewDefaultRegistry(logger), logger)
}

// NewParserWithRegistry creates a parser backed by a custom strategy registry
func NewParserWithRegistry(registry *Registry, logger *zerolog.Logger) *Parser {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Parser{registry: registry, logger: logger}
}

// Parse extracts receipt data from line tokens. An empty or RetailerUnknown
// hint runs store detection first. Parse never fails: when nothing can be
// extracted the result simply has no items.
func (p *Parser) Parse(tokens []string, hint RetailerType) *ScannedReceiptData {
	if tokens == nil {
		tokens = []string{}
	}

	retailer := hint
	if retailer == "" || retailer == RetailerUnknown {
		retailer = DetectRetailer(tokens)
	}

	strategy := p.registry.Resolve(retailer)
	data := strategy.Parse(tokens, retailer)

	event := p.logger.Debug().
		Str("retailer", string(retailer)).
		Str("strategy", strategy.Name()).
		Int("tokens", len(tokens)).
		Int("items", len(data.Items))
	if data.TotalAmount != nil {
		event = event.Str("total", FormatCents(*data.TotalAmount))
	}
	event.Msg("Parsed receipt")

	return data
}

// ParseText tokenizes newline separated OCR text and parses it
func (p *Parser) ParseText(text string, hint RetailerType) *ScannedReceiptData {
	return p.Parse(TokenizeText(text), hint)
}

// ParseObservations tokenizes positioned OCR fragments and parses them
func (p *Parser) ParseObservations(observations []Observation, hint RetailerType) *ScannedReceiptData {
	return p.Parse(TokenizeObservations(observations), hint)
}
