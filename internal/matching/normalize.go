// Package matching normalizes product codes and names so receipt items can
// be compared with online catalog entries.
package matching

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonDigitRe    = regexp.MustCompile(`[^0-9]`)
	placeholderRe = regexp.MustCompile(`^0+$`)
	nonWordRe     = regexp.MustCompile(`[^a-z0-9&%.' ]+`)
)

// receiptAbbreviations expands the truncations receipt printers use for product names
var receiptAbbreviations = map[string]string{
	"gv":    "great value",
	"chkn":  "chicken",
	"brst":  "breast",
	"bnls":  "boneless",
	"sknls": "skinless",
	"gal":   "gallon",
	"qt":    "quart",
	"pt":    "pint",
	"oz":    "ounce",
	"lb":    "pound",
	"lbs":   "pounds",
	"pkg":   "package",
	"btl":   "bottle",
	"bx":    "box",
	"bg":    "bag",
	"ct":    "count",
	"pcs":   "pieces",
	"lrg":   "large",
	"med":   "medium",
	"sml":   "small",
	"frsh":  "fresh",
	"frzn":  "frozen",
	"flr":   "flour",
	"veg":   "vegetable",
	"vegs":  "vegetables",
	"frt":   "fruit",
	"jce":   "juice",
	"mlk":   "milk",
	"chse":  "cheese",
	"brd":   "bread",
	"wht":   "white",
	"brn":   "brown",
	"grn":   "green",
	"yel":   "yellow",
	"blk":   "black",
	"org":   "organic",
	"wtr":   "water",
	"ks":    "kirkland signature",
}

// NormalizeCode reduces a product code to digits and widens UPC-A to EAN-13.
// Returns empty string for empty and placeholder (all zero) codes.
func NormalizeCode(code string) string {
	bc := nonDigitRe.ReplaceAllString(code, "")
	if bc == "" || placeholderRe.MatchString(bc) {
		return ""
	}

	// UPC-A (12 digits) -> EAN-13 (add leading 0)
	if len(bc) == 12 {
		bc = "0" + bc
	}
	return bc
}

// ValidCheckDigit validates the GS1 check digit of a GTIN-8/12/13/14 code
func ValidCheckDigit(code string) bool {
	switch len(code) {
	case 8, 12, 13, 14:
	default:
		return false
	}
	sum := 0
	// weights alternate 3,1,3... starting from the digit left of the check digit
	for i := len(code) - 2; i >= 0; i-- {
		d := int(code[i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		if (len(code)-2-i)%2 == 0 {
			sum += d * 3
		} else {
			sum += d
		}
	}
	checkDigit := (10 - (sum % 10)) % 10
	return int(code[len(code)-1]-'0') == checkDigit
}

// CodesMatch reports whether two product codes identify the same product.
// Leading zeros are ignored, and a receipt code printed without its check
// digit matches the full code when the check digit is valid.
func CodesMatch(a, b string) bool {
	na := strings.TrimLeft(NormalizeCode(a), "0")
	nb := strings.TrimLeft(NormalizeCode(b), "0")
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}

	short, long := na, nb
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(long) != len(short)+1 || !strings.HasPrefix(long, short) {
		return false
	}
	return ValidCheckDigit(padGTIN(long))
}

// padGTIN left-pads a zero-stripped code back to the nearest GTIN length
func padGTIN(code string) string {
	for _, n := range []int{8, 12, 13, 14} {
		if len(code) <= n {
			return strings.Repeat("0", n-len(code)) + code
		}
	}
	return code
}

// RemoveDiacritics strips combining marks ("Jalapeño" -> "Jalapeno")
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeSearchQuery turns a receipt item name into a catalog search query:
// diacritics removed, lowercased, punctuation dropped and printer
// abbreviations expanded word by word.
func NormalizeSearchQuery(name string) string {
	text := strings.ToLower(RemoveDiacritics(name))
	text = nonWordRe.ReplaceAllString(text, " ")

	words := strings.Fields(text)
	for i, w := range words {
		if full, ok := receiptAbbreviations[w]; ok {
			words[i] = full
		}
	}
	return strings.Join(words, " ")
}

// NameSimilarity returns the Jaccard similarity of the word sets of two
// product names after search normalization (0.0 - 1.0)
func NameSimilarity(a, b string) float64 {
	wa := strings.Fields(NormalizeSearchQuery(a))
	wb := strings.Fields(NormalizeSearchQuery(b))
	if len(wa) == 0 || len(wb) == 0 {
		return 0.0
	}

	setA := make(map[string]bool, len(wa))
	for _, w := range wa {
		setA[w] = true
	}
	setB := make(map[string]bool, len(wb))
	for _, w := range wb {
		setB[w] = true
	}

	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}
