package receipt

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	minSKUDigits = 8
	maxSKUDigits = 14
	// minSKUDigitRatio guards against long product names that happen to contain digits
	minSKUDigitRatio = 0.8
)

var (
	// pricePatterns are scanned together; the rightmost capture wins
	pricePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\$\s?(\d+\.\d{2})`),
		regexp.MustCompile(`(\d+\.\d{2})$`),
		regexp.MustCompile(`(?:^|\s)(\d+\.\d{2})(?:\s|$)`),
	}

	priceTextRe    = regexp.MustCompile(`\$\s?\d+\.\d{2}|\b\d+\.\d{2}\b`)
	itemNumberRe   = regexp.MustCompile(`\b\d{8,14}\b`)
	nonDigitRe     = regexp.MustCompile(`[^0-9]`)
	multiSpaceRe   = regexp.MustCompile(`\s+`)
	priceFlagRe    = regexp.MustCompile(`(\d\.\d{2})\s+[A-Z]{1,2}$`)
	codeFlagRe     = regexp.MustCompile(`(\b\d{8,14})\s+[A-Z]\b`)
	nameNoiseChars = ".,;:-_|\\"
)

// ExtractPrice finds a currency amount in a token and returns it in cents.
// When several amounts appear the rightmost one is used.
func ExtractPrice(token string) (int64, bool) {
	bestStart := -1
	bestText := ""

	for _, re := range pricePatterns {
		for _, m := range re.FindAllStringSubmatchIndex(token, -1) {
			if len(m) < 4 || m[2] < 0 {
				continue
			}
			if m[2] > bestStart {
				bestStart = m[2]
				bestText = token[m[2]:m[3]]
			}
		}
	}

	if bestStart < 0 {
		return 0, false
	}

	cents, err := parseCents(bestText)
	if err != nil {
		return 0, false
	}
	return cents, true
}

// parseCents converts "12.99" to 1299 without going through float64
func parseCents(s string) (int64, error) {
	whole, frac, ok := strings.Cut(s, ".")
	if !ok || len(frac) != 2 {
		return 0, strconv.ErrSyntax
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, err
	}
	if w < 0 || f < 0 || w > (math.MaxInt64-99)/100 {
		return 0, strconv.ErrRange
	}
	return w*100 + f, nil
}

// FormatCents formats cents as a decimal string (e.g., 1299 -> "12.99")
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign + strconv.FormatInt(cents/100, 10) + "." + leftPad2(cents%100)
}

func leftPad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}

// IsSKU reports whether a token looks like a product code: 8-14 digits
// making up more than 80% of the token's characters.
func IsSKU(token string) bool {
	if token == "" {
		return false
	}
	digits := nonDigitRe.ReplaceAllString(token, "")
	if len(digits) < minSKUDigits || len(digits) > maxSKUDigits {
		return false
	}
	ratio := float64(len(digits)) / float64(utf8.RuneCountInString(token))
	return ratio > minSKUDigitRatio
}

// SKUDigits returns only the digits of a token recognized by IsSKU
func SKUDigits(token string) string {
	return nonDigitRe.ReplaceAllString(token, "")
}

// RemovePriceFromLine strips currency amounts from a line and returns the trimmed remainder
func RemovePriceFromLine(line string) string {
	return collapseSpaces(priceTextRe.ReplaceAllString(line, " "))
}

// RemoveItemNumber strips 8-14 digit product codes from a line and returns the trimmed remainder
func RemoveItemNumber(line string) string {
	return collapseSpaces(itemNumberRe.ReplaceAllString(line, " "))
}

// FindItemNumber returns the first 8-14 digit product code embedded in a line
func FindItemNumber(line string) (string, bool) {
	code := itemNumberRe.FindString(line)
	return code, code != ""
}

// stripTaxFlags drops the single-letter tax codes printed after prices and item numbers
// ("3.99 N", "007874235186 F") so they do not end up in item names
func stripTaxFlags(line string) string {
	line = priceFlagRe.ReplaceAllString(line, "${1}")
	return codeFlagRe.ReplaceAllString(line, "${1}")
}

// cleanItemName removes leftover punctuation and list markers from a candidate name
func cleanItemName(name string) string {
	name = collapseSpaces(name)
	name = strings.Trim(name, nameNoiseChars+" ")
	for _, prefix := range []string{"@", "#", "*"} {
		name = strings.TrimPrefix(name, prefix)
	}
	return strings.TrimSpace(name)
}

func collapseSpaces(s string) string {
	return strings.TrimSpace(multiSpaceRe.ReplaceAllString(s, " "))
}
