package receipt

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// Strategy parses the token stream of one retailer's receipt format
type Strategy interface {
	Name() string
	Parse(tokens []string, retailer RetailerType) *ScannedReceiptData
}

// WalmartStrategy parses Walmart receipts: stacked name, UPC and price lines
type WalmartStrategy struct {
	walker *tokenWalker
}

// NewWalmartStrategy creates a Walmart parsing strategy
func NewWalmartStrategy(logger *zerolog.Logger) *WalmartStrategy {
	return &WalmartStrategy{
		walker: newTokenWalker(walkRules{
			noise: []*regexp.Regexp{
				regexp.MustCompile(`(?i)wal[\s-]?mart`),
				regexp.MustCompile(`(?i)save\s+money`),
				regexp.MustCompile(`(?i)live\s+better`),
				regexp.MustCompile(`(?i)supercenter`),
				regexp.MustCompile(`(?i)low\s+prices`),
				regexp.MustCompile(`(?i)scan\s+with`),
			},
			minNameLen: storeMinNameLen,
			maxNameLen: storeMaxNameLen,
		}, logger),
	}
}

// Name returns the strategy name
func (s *WalmartStrategy) Name() string { return "walmart" }

// Parse extracts items and total from Walmart tokens
func (s *WalmartStrategy) Parse(tokens []string, retailer RetailerType) *ScannedReceiptData {
	data := newReceiptData(RetailerWalmart, tokens)
	data.StoreName = displayName(RetailerWalmart)

	res := s.walker.walk(tokens)
	data.Items = res.items
	data.TotalAmount = res.total
	return data
}

// TargetStrategy parses Target receipts, which interleave department headers
type TargetStrategy struct {
	walker *tokenWalker
}

// NewTargetStrategy creates a Target parsing strategy
func NewTargetStrategy(logger *zerolog.Logger) *TargetStrategy {
	return &TargetStrategy{
		walker: newTokenWalker(walkRules{
			noise: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\btarget\b`),
				regexp.MustCompile(`(?i)expect\s+more`),
				regexp.MustCompile(`(?i)pay\s+less`),
				regexp.MustCompile(`(?i)red\s*card`),
				regexp.MustCompile(`(?i)\bcircle\b`),
				regexp.MustCompile(`(?i)^(grocery|home|electronics|apparel|beauty|health\s*(and|&)\s*beauty|household\s+essentials|kitchen|toys|pets?|baby)$`),
			},
			minNameLen: storeMinNameLen,
			maxNameLen: storeMaxNameLen,
		}, logger),
	}
}

// Name returns the strategy name
func (s *TargetStrategy) Name() string { return "target" }

// Parse extracts items and total from Target tokens
func (s *TargetStrategy) Parse(tokens []string, retailer RetailerType) *ScannedReceiptData {
	data := newReceiptData(RetailerTarget, tokens)
	data.StoreName = displayName(RetailerTarget)

	res := s.walker.walk(tokens)
	data.Items = res.items
	data.TotalAmount = res.total
	return data
}

var membershipNumberRe = regexp.MustCompile(`^[\d\s]+$`)

// CostcoStrategy parses Costco receipts. Short all-digit lines are
// membership or warehouse item numbers and are ignored.
type CostcoStrategy struct {
	walker *tokenWalker
}

// NewCostcoStrategy creates a Costco parsing strategy
func NewCostcoStrategy(logger *zerolog.Logger) *CostcoStrategy {
	return &CostcoStrategy{
		walker: newTokenWalker(walkRules{
			noise: []*regexp.Regexp{
				regexp.MustCompile(`(?i)costco`),
				regexp.MustCompile(`(?i)wholesale`),
				regexp.MustCompile(`(?i)\bmember(ship)?\b`),
				regexp.MustCompile(`(?i)^tpd/`),
			},
			skip:       isMembershipNumber,
			minNameLen: storeMinNameLen,
			maxNameLen: storeMaxNameLen,
		}, logger),
	}
}

// Name returns the strategy name
func (s *CostcoStrategy) Name() string { return "costco" }

// Parse extracts items and total from Costco tokens
func (s *CostcoStrategy) Parse(tokens []string, retailer RetailerType) *ScannedReceiptData {
	data := newReceiptData(RetailerCostco, tokens)
	data.StoreName = displayName(RetailerCostco)

	res := s.walker.walk(tokens)
	data.Items = res.items
	data.TotalAmount = res.total
	return data
}

func isMembershipNumber(token string) bool {
	return len(token) < 10 && membershipNumberRe.MatchString(token)
}

// GenericStrategy parses receipts from retailers without a dedicated strategy
type GenericStrategy struct {
	logger *zerolog.Logger
	// one walker per configured retailer, its keywords as noise
	walkers  map[RetailerType]*tokenWalker
	fallback *tokenWalker
}

// NewGenericStrategy creates the fallback parsing strategy
func NewGenericStrategy(logger *zerolog.Logger) *GenericStrategy {
	s := &GenericStrategy{
		logger:   logger,
		walkers:  make(map[RetailerType]*tokenWalker, len(RetailerConfigs)),
		fallback: newGenericWalker(nil, logger),
	}
	for id, cfg := range RetailerConfigs {
		noise := make([]*regexp.Regexp, 0, len(cfg.Keywords))
		for _, kw := range cfg.Keywords {
			noise = append(noise, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(kw)))
		}
		s.walkers[id] = newGenericWalker(noise, logger)
	}
	return s
}

func newGenericWalker(noise []*regexp.Regexp, logger *zerolog.Logger) *tokenWalker {
	return newTokenWalker(walkRules{
		noise:      noise,
		minNameLen: genericMinNameLen,
		maxNameLen: genericMaxNameLen,
	}, logger)
}

// Name returns the strategy name
func (s *GenericStrategy) Name() string { return "generic" }

// Parse extracts items and total using only the shared noise rules plus the
// retailer's own keywords. For unknown stores the first line is taken as the
// store name.
func (s *GenericStrategy) Parse(tokens []string, retailer RetailerType) *ScannedReceiptData {
	if retailer == "" {
		retailer = RetailerUnknown
	}
	data := newReceiptData(retailer, tokens)

	walker := s.fallback
	body := tokens
	if w, ok := s.walkers[retailer]; ok {
		walker = w
		data.StoreName = displayName(retailer)
	} else if len(tokens) > 0 && looksLikeStoreName(tokens[0]) {
		name := strings.TrimSpace(tokens[0])
		data.StoreName = &name
		body = tokens[1:]
	}

	res := walker.walk(body)
	data.Items = res.items
	data.TotalAmount = res.total
	return data
}

// looksLikeStoreName accepts a short header line that is not itself a price, code or total
func looksLikeStoreName(token string) bool {
	token = strings.TrimSpace(token)
	if token == "" || len(token) >= 50 {
		return false
	}
	if _, ok := ExtractPrice(token); ok {
		return false
	}
	lower := strings.ToLower(token)
	return !IsSKU(token) && !strings.Contains(lower, "total") && !strings.Contains(lower, "tax")
}

func displayName(r RetailerType) *string {
	name := r.DisplayName()
	return &name
}
