package receipt

import "strings"

// DetectRetailer classifies a receipt by scanning its text for retailer keywords.
// The first retailer (in Retailers order) with a matching keyword wins.
func DetectRetailer(tokens []string) RetailerType {
	text := strings.ToLower(strings.Join(tokens, " "))
	if text == "" {
		return RetailerUnknown
	}

	for _, r := range Retailers {
		for _, keyword := range RetailerConfigs[r].Keywords {
			if strings.Contains(text, keyword) {
				return r
			}
		}
	}

	return RetailerUnknown
}
