package receipt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractPrice(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  int64
		found bool
	}{
		{"dollar sign with item code", "ITEM 12345678901 $4.99", 499, true},
		{"bare amount", "4.99", 499, true},
		{"no price", "no price here", 0, false},
		{"rightmost of two", "$1.00 $2.00", 200, true},
		{"dollar with space", "$ 12.50", 1250, true},
		{"amount followed by tax flag", "GV MILK 3.99 N", 399, true},
		{"large amount", "1234.56", 123456, true},
		{"single decimal", "3.9", 0, false},
		{"integer", "399", 0, false},
		{"empty", "", 0, false},
		{"largest representable", "92233720368547757.99", 9223372036854775799, true},
		{"overflowing amount", "TV 99999999999999999.99", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractPrice(tt.token)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "0.00", FormatCents(0))
	assert.Equal(t, "0.05", FormatCents(5))
	assert.Equal(t, "4.23", FormatCents(423))
	assert.Equal(t, "1234.50", FormatCents(123450))
	assert.Equal(t, "-1.50", FormatCents(-150))
}

func TestIsSKU(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"7 digits", "1234567", false},
		{"8 digits", "12345678", true},
		{"12 digit UPC", "001234567890", true},
		{"14 digits", "12345678901234", true},
		{"15 digits", "123456789012345", false},
		{"10 chars 90 percent digits", "123456789A", true},
		{"10 chars 70 percent digits", "1234567ABC", false},
		{"digits diluted by letters", "12345678ABC", false},
		{"product name with digits", "VITAMIN D3 2000IU 120CT", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSKU(tt.token))
		})
	}
}

func TestSingleLineCleanup(t *testing.T) {
	line := "GREAT VALUE MILK 001234567890 3.99"

	assert.Equal(t, "GREAT VALUE MILK 001234567890", RemovePriceFromLine(line))
	assert.Equal(t, "GREAT VALUE MILK 3.99", RemoveItemNumber(line))

	code, ok := FindItemNumber(line)
	assert.True(t, ok)
	assert.Equal(t, "001234567890", code)

	_, ok = FindItemNumber("BANANAS 0.59")
	assert.False(t, ok)
}

func TestStripTaxFlags(t *testing.T) {
	assert.Equal(t, "GV MILK 3.99", stripTaxFlags("GV MILK 3.99 N"))
	assert.Equal(t, "EGGS 007874235186 2.49", stripTaxFlags("EGGS 007874235186 F 2.49"))
	assert.Equal(t, "VITAMIN C", stripTaxFlags("VITAMIN C"))
}

func TestCleanItemName(t *testing.T) {
	assert.Equal(t, "GREAT VALUE MILK", cleanItemName("  GREAT   VALUE MILK -- "))
	assert.Equal(t, "BREAD", cleanItemName("*BREAD"))
	assert.Equal(t, "", cleanItemName(" .. "))
}
