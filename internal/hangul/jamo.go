// Package hangul decomposes Hangul syllables into jamo for phonetic comparison of OCR text.
package hangul

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

const (
	syllableFirst = 0xAC00
	syllableLast  = 0xD7A3
	medialCount   = 21
	finalCount    = 28
)

var (
	initials = []rune("ㄱㄲㄴㄷㄸㄹㅁㅂㅃㅅㅆㅇㅈㅉㅊㅋㅌㅍㅎ")
	medials  = []rune("ㅏㅐㅑㅒㅓㅔㅕㅖㅗㅘㅙㅚㅛㅜㅝㅞㅟㅠㅡㅢㅣ")
	finals   = []rune("\x00ㄱㄲㄳㄴㄵㄶㄷㄹㄺㄻㄼㄽㄾㄿㅀㅁㅂㅄㅅㅆㅇㅈㅊㅋㅌㅍㅎ")
)

// IsSyllable reports whether r is a precomposed Hangul syllable (가..힣).
func IsSyllable(r rune) bool {
	return r >= syllableFirst && r <= syllableLast
}

func split(r rune) (initial, medial, final rune) {
	idx := r - syllableFirst
	return initials[idx/(medialCount*finalCount)],
		medials[(idx%(medialCount*finalCount))/finalCount],
		finals[idx%finalCount]
}

// Decompose expands every syllable into its initial, medial and final jamo.
// Other runes are kept, lower-cased.
func Decompose(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 2)
	for _, r := range s {
		if !IsSyllable(r) {
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		i, m, f := split(r)
		b.WriteRune(i)
		b.WriteRune(m)
		if f != 0 {
			b.WriteRune(f)
		}
	}
	return b.String()
}

// Root is a lossy projection used to collapse spelling variants: final
// consonants are dropped and the ㅐ/ㅔ and ㅒ/ㅖ vowel pairs, which OCR and
// packaging text confuse freely, are merged.
func Root(token string) string {
	var b strings.Builder
	for _, r := range token {
		if !IsSyllable(r) {
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		i, m, _ := split(r)
		switch m {
		case 'ㅐ':
			m = 'ㅔ'
		case 'ㅒ':
			m = 'ㅖ'
		}
		b.WriteRune(i)
		b.WriteRune(m)
	}
	return b.String()
}

// KoreanRuns returns the maximal runs of Hangul syllables in s, in order.
func KoreanRuns(s string) []string {
	var runs []string
	start := -1
	for i, r := range s {
		if IsSyllable(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			runs = append(runs, s[start:i])
			start = -1
		}
	}
	if start >= 0 {
		runs = append(runs, s[start:])
	}
	return runs
}

// HasSyllable reports whether s contains at least one Hangul syllable.
func HasSyllable(s string) bool {
	for _, r := range s {
		if IsSyllable(r) {
			return true
		}
	}
	return false
}

// Similarity is the jamo-level edit similarity 1 - lev/maxLen in [0,1].
// Empty input on either side yields 0.
func Similarity(a, b string) float64 {
	ja, jb := Decompose(a), Decompose(b)
	la, lb := utf8.RuneCountInString(ja), utf8.RuneCountInString(jb)
	if la == 0 || lb == 0 {
		return 0
	}
	longest := la
	if lb > longest {
		longest = lb
	}
	d := matchr.Levenshtein(ja, jb)
	sim := 1 - float64(d)/float64(longest)
	if sim < 0 {
		return 0
	}
	return sim
}
