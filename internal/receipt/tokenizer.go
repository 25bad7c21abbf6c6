package receipt

import (
	"math"
	"sort"
	"strings"
)

// sameLineRatio is the fraction of fragment height within which two
// fragments' vertical centers are considered the same printed line.
const sameLineRatio = 0.5

// TokenizeText splits raw OCR text into trimmed, non-empty lines
func TokenizeText(text string) []string {
	tokens := make([]string, 0)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		tokens = append(tokens, line)
	}
	return tokens
}

// TokenizeObservations groups positioned OCR fragments into receipt lines.
// Lines are ordered top-to-bottom and fragments within a line left-to-right,
// independent of the order the fragments were supplied in.
func TokenizeObservations(observations []Observation) []string {
	tokens := make([]string, 0)

	frags := make([]Observation, 0, len(observations))
	for _, o := range observations {
		o.Text = strings.TrimSpace(o.Text)
		if o.Text == "" {
			continue
		}
		frags = append(frags, o)
	}
	if len(frags) == 0 {
		return tokens
	}

	sort.SliceStable(frags, func(i, j int) bool {
		if frags[i].Box.MidY != frags[j].Box.MidY {
			return frags[i].Box.MidY > frags[j].Box.MidY
		}
		return frags[i].Box.MinX < frags[j].Box.MinX
	})

	current := []Observation{frags[0]}
	for i := 1; i < len(frags); i++ {
		prev := frags[i-1]
		frag := frags[i]

		threshold := sameLineRatio * math.Min(frag.Box.Height, prev.Box.Height)
		if math.Abs(frag.Box.MidY-prev.Box.MidY) < threshold {
			current = append(current, frag)
			continue
		}

		tokens = append(tokens, joinLine(current))
		current = []Observation{frag}
	}
	tokens = append(tokens, joinLine(current))

	return tokens
}

// joinLine orders one line's fragments left-to-right and joins them
func joinLine(line []Observation) string {
	sort.SliceStable(line, func(i, j int) bool {
		return line[i].Box.MinX < line[j].Box.MinX
	})

	parts := make([]string, len(line))
	for i, o := range line {
		parts[i] = o.Text
	}
	return strings.Join(parts, " ")
}
