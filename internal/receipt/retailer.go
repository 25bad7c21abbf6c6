package receipt

import "strings"

// RetailerType identifies the store a receipt came from
type RetailerType string

const (
	RetailerWalmart       RetailerType = "walmart"
	RetailerTarget        RetailerType = "target"
	RetailerCostco        RetailerType = "costco"
	RetailerKroger        RetailerType = "kroger"
	RetailerSafeway       RetailerType = "safeway"
	RetailerWholeFoods    RetailerType = "wholefoods"
	RetailerAtwoods       RetailerType = "atwoods"
	RetailerTractorSupply RetailerType = "tractorsupply"
	RetailerHomeDepot     RetailerType = "homedepot"
	RetailerLowes         RetailerType = "lowes"
	RetailerUnknown       RetailerType = "unknown"
)

// Retailers contains all supported retailers in detection priority order
var Retailers = []RetailerType{
	RetailerWalmart,
	RetailerTarget,
	RetailerCostco,
	RetailerKroger,
	RetailerSafeway,
	RetailerWholeFoods,
	RetailerAtwoods,
	RetailerTractorSupply,
	RetailerHomeDepot,
	RetailerLowes,
}

// RetailerConfig contains static metadata for a retailer
type RetailerConfig struct {
	ID       RetailerType `json:"id"`
	Name     string       `json:"name"`
	Domain   string       `json:"domain"`
	Icon     string       `json:"icon"`
	Keywords []string     `json:"keywords"` // lowercase substrings used by DetectRetailer
}

// RetailerConfigs contains all retailer configurations
var RetailerConfigs = map[RetailerType]RetailerConfig{
	RetailerWalmart: {
		ID:       RetailerWalmart,
		Name:     "Walmart",
		Domain:   "walmart.com",
		Icon:     "cart.fill",
		Keywords: []string{"walmart", "wal-mart"},
	},
	RetailerTarget: {
		ID:       RetailerTarget,
		Name:     "Target",
		Domain:   "target.com",
		Icon:     "target",
		Keywords: []string{"target"},
	},
	RetailerCostco: {
		ID:       RetailerCostco,
		Name:     "Costco",
		Domain:   "costco.com",
		Icon:     "shippingbox.fill",
		Keywords: []string{"costco"},
	},
	RetailerKroger: {
		ID:       RetailerKroger,
		Name:     "Kroger",
		Domain:   "kroger.com",
		Icon:     "basket.fill",
		Keywords: []string{"kroger"},
	},
	RetailerSafeway: {
		ID:       RetailerSafeway,
		Name:     "Safeway",
		Domain:   "safeway.com",
		Icon:     "basket.fill",
		Keywords: []string{"safeway"},
	},
	RetailerWholeFoods: {
		ID:       RetailerWholeFoods,
		Name:     "Whole Foods",
		Domain:   "wholefoodsmarket.com",
		Icon:     "leaf.fill",
		Keywords: []string{"whole foods"},
	},
	RetailerAtwoods: {
		ID:       RetailerAtwoods,
		Name:     "Atwoods",
		Domain:   "atwoods.com",
		Icon:     "wrench.and.screwdriver.fill",
		Keywords: []string{"atwoods"},
	},
	RetailerTractorSupply: {
		ID:       RetailerTractorSupply,
		Name:     "Tractor Supply",
		Domain:   "tractorsupply.com",
		Icon:     "leaf.arrow.triangle.circlepath",
		Keywords: []string{"tractor supply"},
	},
	RetailerHomeDepot: {
		ID:       RetailerHomeDepot,
		Name:     "Home Depot",
		Domain:   "homedepot.com",
		Icon:     "hammer.fill",
		Keywords: []string{"home depot"},
	},
	RetailerLowes: {
		ID:       RetailerLowes,
		Name:     "Lowe's",
		Domain:   "lowes.com",
		Icon:     "hammer.fill",
		Keywords: []string{"lowes"},
	},
}

// GetRetailerConfig returns the configuration for a retailer
func GetRetailerConfig(r RetailerType) (RetailerConfig, bool) {
	cfg, ok := RetailerConfigs[r]
	return cfg, ok
}

// DisplayName returns the human readable retailer name
func (r RetailerType) DisplayName() string {
	if cfg, ok := GetRetailerConfig(r); ok {
		return cfg.Name
	}
	return "Unknown Store"
}

// Icon returns the icon identifier used by presentation layers
func (r RetailerType) Icon() string {
	if cfg, ok := GetRetailerConfig(r); ok {
		return cfg.Icon
	}
	return "questionmark.circle"
}

// Domain returns the retailer's website domain, or "" for Unknown
func (r RetailerType) Domain() string {
	return RetailerConfigs[r].Domain
}

// IsKnown reports whether r is a supported retailer
func (r RetailerType) IsKnown() bool {
	_, ok := GetRetailerConfig(r)
	return ok
}

// ParseRetailer converts user input ("Whole Foods", "home-depot", "LOWES") to a RetailerType.
// Unrecognized input maps to RetailerUnknown.
func ParseRetailer(s string) RetailerType {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "", "-", "", "_", "", "'", "").Replace(key)
	if key == "" {
		return RetailerUnknown
	}
	for _, r := range Retailers {
		if string(r) == key {
			return r
		}
	}
	return RetailerUnknown
}
