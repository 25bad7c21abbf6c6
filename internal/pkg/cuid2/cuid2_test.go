package cuid2

import (
	"regexp"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeTimestamp(t *testing.T) {
	tests := []struct {
		name     string
		seconds  int64
		expected string
	}{
		{"zero timestamp", 0, "000000"},
		{"one second", 1, "000001"},
		{"62 seconds", 62, "000010"},
		{"one minute", 60, "00000y"},
		{"one hour", 3600, "0000w4"},
		{"one day", 86400, "000MTY"},
		{"2024-01-01", 1704067200, "1rK5iq"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EncodeTimestamp(tt.seconds))

			decoded, ok := DecodeTimestamp(tt.expected)
			require.True(t, ok)
			assert.Equal(t, tt.seconds, decoded)
		})
	}
}

func TestDecodeTimestamp_Invalid(t *testing.T) {
	_, ok := DecodeTimestamp("abc")
	assert.False(t, ok)
	_, ok = DecodeTimestamp("12345_")
	assert.False(t, ok)
}

func TestRandomString(t *testing.T) {
	for _, n := range []int{1, 10, 24, 100} {
		s := randomString(n)
		assert.Len(t, s, n)
		for _, c := range s {
			assert.True(t, strings.ContainsRune(base62Alphabet, c))
		}
	}
}

func TestGenerate(t *testing.T) {
	t.Run("time sortable by default", func(t *testing.T) {
		id := Generate("val")
		assert.Regexp(t, regexp.MustCompile(`^val_[0-9A-Za-z]{24}$`), id)

		ts, ok := Timestamp(id)
		require.True(t, ok)
		assert.WithinDuration(t, time.Now(), ts, 2*time.Second)
	})

	t.Run("without timestamp", func(t *testing.T) {
		id := Generate("val", WithoutTimestamp())
		assert.Regexp(t, regexp.MustCompile(`^val_[0-9A-Za-z]{24}$`), id)
	})

	t.Run("custom random length", func(t *testing.T) {
		id := Generate("val", WithRandomLength(4))
		assert.Len(t, id, len("val_")+6+4)
	})
}

func TestGenerate_Uniqueness(t *testing.T) {
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		id := Generate("val")
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestGenerate_TimeSortability(t *testing.T) {
	base := time.Unix(1704067200, 0)
	var ids []string
	for i := 0; i < 5; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		ids = append(ids, Generate("val", func(o *options) { o.now = func() time.Time { return at } }))
	}

	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	assert.Equal(t, ids, sorted)
}
