// Package cuid2 generates prefixed, time-sortable random identifiers such as
// "val_1rK5iqAb3cD5eF7gH9iJ1k" for validation runs.
package cuid2

import (
	crypto_rand "crypto/rand"
	"strings"
	"time"
)

// Base62 alphabet: 0-9, A-Z, a-z (62 characters)
const base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const (
	timestampLength     = 6
	sortableRandomLen   = 18
	unsortableRandomLen = 24
)

// EncodeTimestamp encodes a Unix timestamp (seconds) as a 6-character base62 string.
// Produces lexicographically sortable output for timestamps.
//
// Range: 0 to ~56 billion seconds (~1800 years from Unix epoch)
func EncodeTimestamp(timestampSeconds int64) string {
	n := timestampSeconds
	result := make([]byte, timestampLength)
	for i := timestampLength - 1; i >= 0; i-- {
		result[i] = base62Alphabet[n%62]
		n = n / 62
	}
	return string(result)
}

// DecodeTimestamp reverses EncodeTimestamp
func DecodeTimestamp(encoded string) (int64, bool) {
	if len(encoded) != timestampLength {
		return 0, false
	}
	var n int64
	for i := 0; i < len(encoded); i++ {
		idx := strings.IndexByte(base62Alphabet, encoded[i])
		if idx < 0 {
			return 0, false
		}
		n = n*62 + int64(idx)
	}
	return n, true
}

// randomString generates a base62 string using rejection sampling over
// crypto/rand bytes: 6 bits are extracted at a time and values >= 62 are
// dropped to keep the distribution uniform.
func randomString(length int) string {
	// extra bytes account for the ~3% rejection rate
	buf := make([]byte, (length*6)/8+4)
	if _, err := crypto_rand.Read(buf); err != nil {
		panic("failed to read random bytes: " + err.Error())
	}

	var result strings.Builder
	result.Grow(length)
	bitBuffer := uint64(0)
	bitsInBuffer := uint(0)
	byteIndex := 0

	for result.Len() < length {
		for bitsInBuffer < 6 && byteIndex < len(buf) {
			bitBuffer = (bitBuffer << 8) | uint64(buf[byteIndex])
			bitsInBuffer += 8
			byteIndex++
		}

		value := (bitBuffer >> (bitsInBuffer - 6)) & 0x3f
		bitsInBuffer -= 6
		if value < 62 {
			result.WriteByte(base62Alphabet[value])
		}

		if byteIndex >= len(buf) && bitsInBuffer < 6 && result.Len() < length {
			if _, err := crypto_rand.Read(buf); err != nil {
				panic("failed to read random bytes: " + err.Error())
			}
			byteIndex = 0
		}
	}

	return result.String()
}

type options struct {
	unsortable   bool
	randomLength int
	now          func() time.Time
}

// Option customizes Generate
type Option func(*options)

// WithoutTimestamp drops the time-sortable prefix and uses a fully random body
func WithoutTimestamp() Option {
	return func(o *options) { o.unsortable = true }
}

// WithRandomLength sets the length of the random portion
func WithRandomLength(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.randomLength = n
		}
	}
}

// Generate returns "<prefix>_<body>". By default the body starts with a
// 6-character timestamp so IDs sort by creation second.
//
//	Generate("val")                     // "val_1rK5iqAb3cD5eF7gH9iJ1k"
//	Generate("val", WithoutTimestamp()) // "val_8kJ2mN4pQ6rS0tU3vW5xY7zA"
func Generate(prefix string, opts ...Option) string {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	if o.unsortable {
		if o.randomLength == 0 {
			o.randomLength = unsortableRandomLen
		}
		return prefix + "_" + randomString(o.randomLength)
	}

	if o.randomLength == 0 {
		o.randomLength = sortableRandomLen
	}
	return prefix + "_" + EncodeTimestamp(o.now().Unix()) + randomString(o.randomLength)
}

// Timestamp extracts the creation time from a time-sortable ID
func Timestamp(id string) (time.Time, bool) {
	_, body, ok := strings.Cut(id, "_")
	if !ok || len(body) < timestampLength {
		return time.Time{}, false
	}
	secs, ok := DecodeTimestamp(body[:timestampLength])
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(secs, 0), true
}
