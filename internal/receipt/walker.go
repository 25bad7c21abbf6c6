package receipt

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

const (
	// maxPendingNameTokens bounds how many stacked lines can form one item name
	maxPendingNameTokens = 3

	genericMinNameLen = 3
	genericMaxNameLen = 99
	storeMinNameLen   = 3
	storeMaxNameLen   = 150
)

// commonNoisePatterns match lines that never describe a purchased item
var commonNoisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[\s*=\-#_~.]+$`),
	regexp.MustCompile(`(?i)thank\s*you`),
	regexp.MustCompile(`(?i)\bcashier\b`),
	regexp.MustCompile(`(?i)\bstore\s*#`),
	regexp.MustCompile(`(?i)\b(st|op|te|tr|tc|reg)\s*#`),
	regexp.MustCompile(`(?i)\bmanager\b`),
	regexp.MustCompile(`(?i)^(visa|mastercard|amex|discover|debit|credit|cash|ebt|gift\s*card)\b`),
	regexp.MustCompile(`(?i)\b(tend|tendered|change\s+due|balance\s+due|approval|auth\s*code|ref\s*#|terminal)\b`),
	regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`),
	regexp.MustCompile(`(?i)\b\d{1,2}:\d{2}(:\d{2})?\s*(am|pm)?\b`),
	regexp.MustCompile(`\(?\b\d{3}\)?[\s.-]\d{3}[\s.-]\d{4}\b`),
	regexp.MustCompile(`(?i)^\d{1,6}\s+[\w .]+\s(st|street|ave|avenue|rd|road|blvd|dr|drive|hwy|highway|ln|lane|pkwy|way)\.?$`),
	regexp.MustCompile(`(?i)^[a-z .]+,?\s+[a-z]{2}\s+\d{5}(-\d{4})?$`),
	regexp.MustCompile(`(?i)\b(items?\s+sold|item\s*count)\b`),
	regexp.MustCompile(`(?i)(www\.|\.com\b|survey|feedback)`),
	// discount and coupon lines print a trailing minus
	regexp.MustCompile(`\d\.\d{2}-\s*[A-Z]?$`),
	// quantity/weight detail lines: "2 @ 2.79 EA" or "2.96 lb @ 0.99 / lb"
	regexp.MustCompile(`(?i)^\s*\d+\.?\d*\s*(lb|oz|kg|g)?\s*@\s*\$?\d+\.\d{2}\s*(/\s*(lb|oz|kg|g)|each|ea)?\s*$`),
}

// totalExcludeWords mark lines that mention "total" without being the grand total
var totalExcludeWords = []string{"subtotal", "sub total", "tax", "savings", "saved", "items", "discount"}

// walkRules customize the shared token-stream walk for one strategy
type walkRules struct {
	noise      []*regexp.Regexp
	skip       func(token string) bool
	minNameLen int
	maxNameLen int
}

// walkResult is the outcome of one walk over a token stream
type walkResult struct {
	items []ScannedItem
	total *int64
}

// tokenWalker implements the token-stream algorithm shared by all strategies.
// Product names may span several stacked lines, and the product code and
// price are frequently split onto the lines below the name.
type tokenWalker struct {
	rules  walkRules
	logger *zerolog.Logger
}

func newTokenWalker(rules walkRules, logger *zerolog.Logger) *tokenWalker {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &tokenWalker{rules: rules, logger: logger}
}

func (w *tokenWalker) walk(tokens []string) walkResult {
	result := walkResult{items: []ScannedItem{}}

	var pending []string
	var pendingSKU string

	emit := func(parts []string, price int64, sku string) {
		name := cleanItemName(strings.Join(parts, " "))
		if len(name) < w.rules.minNameLen || len(name) > w.rules.maxNameLen {
			w.logger.Debug().
				Str("name", name).
				Int64("price", price).
				Msg("Discarding item outside name length bounds")
			return
		}
		item := ScannedItem{Name: name, Price: price}
		if sku != "" {
			s := sku
			item.SKU = &s
		}
		result.items = append(result.items, item)
	}

	i := 0
	for i < len(tokens) {
		tok := strings.TrimSpace(tokens[i])
		lower := strings.ToLower(tok)

		if tok == "" || w.isNoise(tok) {
			i++
			continue
		}

		if isTotalLine(lower) {
			if cents, ok := ExtractPrice(tok); ok {
				result.total = &cents
				i++
				continue
			}
			if i+1 < len(tokens) {
				if cents, ok := ExtractPrice(tokens[i+1]); ok {
					result.total = &cents
					i += 2
					continue
				}
			}
			i++
			continue
		}

		// tax, subtotal and "total savings" style lines are neither items nor the total
		if strings.Contains(lower, "tax") || strings.Contains(lower, "total") {
			i++
			continue
		}

		if w.rules.skip != nil && w.rules.skip(tok) {
			i++
			continue
		}

		if IsSKU(tok) {
			if i+1 < len(tokens) {
				if cents, ok := ExtractPrice(tokens[i+1]); ok {
					emit(pending, cents, SKUDigits(tok))
					pending, pendingSKU = nil, ""
					i += 2
					continue
				}
			}
			// code printed on its own line, price further down
			pendingSKU = SKUDigits(tok)
			i++
			continue
		}

		if cents, ok := ExtractPrice(tok); ok {
			line := stripTaxFlags(tok)
			sku := pendingSKU
			if code, found := FindItemNumber(line); found {
				sku = code
			}
			parts := pending
			if rest := cleanItemName(RemoveItemNumber(RemovePriceFromLine(line))); len(rest) > 1 {
				parts = append(parts, rest)
			}
			emit(parts, cents, sku)
			pending, pendingSKU = nil, ""
			i++
			continue
		}

		if len(tok) > 1 {
			pending = append(pending, tok)
			if len(pending) > maxPendingNameTokens {
				pending = pending[len(pending)-maxPendingNameTokens:]
			}
		}
		i++
	}

	return result
}

func (w *tokenWalker) isNoise(token string) bool {
	for _, re := range commonNoisePatterns {
		if re.MatchString(token) {
			return true
		}
	}
	for _, re := range w.rules.noise {
		if re.MatchString(token) {
			return true
		}
	}
	return false
}

// isTotalLine reports whether a lowercased token announces the grand total
func isTotalLine(lower string) bool {
	if !strings.Contains(lower, "total") {
		return false
	}
	for _, word := range totalExcludeWords {
		if strings.Contains(lower, word) {
			return false
		}
	}
	return true
}
