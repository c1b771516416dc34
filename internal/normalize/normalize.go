// Package normalize repairs OCR artifacts in raw label lines and filters lines
// that cannot name a drug.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const maxPasses = 4

var (
	// quoting, brackets and separator dots printed around names on envelopes
	punctReplacer = strings.NewReplacer(
		"`", "", "'", "", "\"", "", "“", "", "”", "", "‘", "", "’", "",
		"[", "", "]", "", "<", "", ">", "", "{", "", "}", "",
		"「", "", "」", "", "『", "", "』", "",
		"･", "", "・", "", "·", "", "•", "",
	)
	lookalikeReplacer = strings.NewReplacer("O", "0", "|", "1")

	digitLDigit = regexp.MustCompile(`(\d)l(\d)`)
	tenMgE      = regexp.MustCompile(`정1[에eE][mM]9\b`)
	tenMgI      = regexp.MustCompile(`정1[이iIlL][mM]\b`)
	digitLm     = regexp.MustCompile(`(\d)lm\b`)
	bareM       = regexp.MustCompile(`(\d)m\b`)
)

// Normalize folds a raw OCR line into its canonical comparable form.
// Normalize(Normalize(s)) == Normalize(s) for every s.
func Normalize(raw string) string {
	out := raw
	for i := 0; i < maxPasses; i++ {
		next := pass(out)
		if next == out {
			break
		}
		out = next
	}
	return out
}

func pass(s string) string {
	t := norm.NFKC.String(s)
	t = punctReplacer.Replace(t)
	t = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return -1
		}
		return r
	}, t)
	t = lookalikeReplacer.Replace(t)
	for {
		next := digitLDigit.ReplaceAllString(t, "${1}1${2}")
		if next == t {
			break
		}
		t = next
	}
	t = tenMgE.ReplaceAllString(t, "정10mg")
	t = tenMgI.ReplaceAllString(t, "정10mg")
	t = digitLm.ReplaceAllString(t, "${1}10mg")
	t = bareM.ReplaceAllString(t, "${1}mg")
	return t
}

// All normalizes every line, preserving order.
func All(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = Normalize(l)
	}
	return out
}
