// Package matcher resolves normalized OCR lines to canonical drug names.
//
// Every (line, entry) pair is scored by four independent signals: hard
// containment, affix-bridged containment, IDF-weighted jamo-root overlap and
// jamo-level edit similarity. The pair score is the maximum of the four.
package matcher

import (
	"sort"

	"github.com/hyperjump/pillbox/internal/lexicon"
	"github.com/hyperjump/pillbox/internal/models"
)

const (
	defaultThreshold    = 0.45
	defaultRelaxed      = 0.40
	defaultStrict       = 0.50
	defaultStrongIDF    = 0.3
	defaultNoiseRatio   = 0.5
	defaultDosageWindow = 2
)

// Matcher scores lines against one lexicon snapshot. It holds no mutable
// state and may be shared across goroutines.
type Matcher struct {
	lex          *lexicon.Lexicon
	threshold    float64
	relaxed      float64
	strict       float64
	strongIDF    float64
	noiseRatio   float64
	dosageWindow int
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithThreshold sets the default acceptance threshold.
func WithThreshold(v float64) Option {
	return func(m *Matcher) {
		if v > 0 {
			m.threshold = v
		}
	}
}

// WithRelaxedThreshold sets the threshold used when shared roots carry a strong IDF boost.
func WithRelaxedThreshold(v float64) Option {
	return func(m *Matcher) {
		if v > 0 {
			m.relaxed = v
		}
	}
}

// WithStrictThreshold sets the threshold used for lines dominated by noise tokens.
func WithStrictThreshold(v float64) Option {
	return func(m *Matcher) {
		if v > 0 {
			m.strict = v
		}
	}
}

// WithDosageWindow sets how many lines before and after a match are scanned for a dosage.
func WithDosageWindow(n int) Option {
	return func(m *Matcher) {
		if n >= 0 {
			m.dosageWindow = n
		}
	}
}

// New returns a matcher over lex. A nil or empty lexicon matches nothing.
func New(lex *lexicon.Lexicon, opts ...Option) *Matcher {
	m := &Matcher{
		lex:          lex,
		threshold:    defaultThreshold,
		relaxed:      defaultRelaxed,
		strict:       defaultStrict,
		strongIDF:    defaultStrongIDF,
		noiseRatio:   defaultNoiseRatio,
		dosageWindow: defaultDosageWindow,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match returns at most one candidate per canonical name, ordered by score
// descending, then line index, then canonical name. Lines must already be normalized.
func (m *Matcher) Match(lines []string) []models.MatchCandidate {
	out := []models.MatchCandidate{}
	if m.lex.Len() == 0 || len(lines) == 0 {
		return out
	}

	best := make(map[string]models.MatchCandidate)
	for idx, line := range lines {
		if line == "" {
			continue
		}
		f := newLineFeatures(line)
		perLine := make(map[string]models.MatchCandidate)
		for _, e := range m.lex.Entries() {
			s := m.score(f, e)
			if s.Value < m.acceptance(f, s) {
				continue
			}
			if cur, ok := perLine[e.Canonical]; ok && cur.Score >= s.Value {
				continue
			}
			perLine[e.Canonical] = models.MatchCandidate{
				Canonical:   e.Canonical,
				DisplayName: e.Canonical,
				Score:       s.Value,
				MatchedLine: line,
				LineIndex:   idx,
			}
		}
		for canonical, c := range perLine {
			if cur, ok := best[canonical]; ok && cur.Score >= c.Score {
				continue
			}
			best[canonical] = c
		}
	}

	for _, c := range best {
		if dose := DosageNear(lines, c.LineIndex, m.dosageWindow); dose != "" {
			c.DisplayName = c.Canonical + " " + dose
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].LineIndex != out[j].LineIndex {
			return out[i].LineIndex < out[j].LineIndex
		}
		return out[i].Canonical < out[j].Canonical
	})
	return out
}

// acceptance picks the threshold for one scored pair. Tightening for noisy
// lines takes precedence over relaxing for rare shared roots.
func (m *Matcher) acceptance(f lineFeatures, s Score) float64 {
	th := m.threshold
	if s.IDFBoost >= m.strongIDF {
		th = m.relaxed
	}
	if f.noiseRatio > m.noiseRatio {
		th = m.strict
	}
	return th
}

// Accepts reports whether line would produce a candidate for e.
func (m *Matcher) Accepts(line string, e *lexicon.Entry) bool {
	f := newLineFeatures(line)
	s := m.score(f, e)
	return s.Value >= m.acceptance(f, s)
}
