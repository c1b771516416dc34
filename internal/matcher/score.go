package matcher

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/pillbox/internal/hangul"
	"github.com/hyperjump/pillbox/internal/lexicon"
)

// Signal names the scoring rule that produced a pair's final score.
type Signal string

const (
	SignalNone        Signal = ""
	SignalContainment Signal = "containment"
	SignalBridged     Signal = "bridged"
	SignalOverlap     Signal = "overlap"
	SignalPhonetic    Signal = "phonetic"
)

// Score is the result of scoring one line against one entry.
type Score struct {
	Value    float64
	Signal   Signal
	IDFBoost float64
	Shared   int
}

func (s *Score) offer(v float64, sig Signal) {
	if v > s.Value {
		s.Value = v
		s.Signal = sig
	}
}

// Unit and structural words that carry no identity on a label.
var noiseWords = map[string]struct{}{
	"mg": {}, "g": {}, "ml": {}, "mcg": {}, "ug": {}, "t": {}, "tab": {}, "cap": {},
	"정": {}, "캡슐": {}, "포": {}, "회": {}, "일": {}, "밀리그램": {}, "정씩": {}, "일분": {}, "회분": {},
}

var lineTokenRe = regexp.MustCompile(`[가-힣]+|[0-9]+|[A-Za-z]+`)

type lineFeatures struct {
	text       string
	tokens     []string
	roots      map[string]struct{}
	noiseRatio float64
}

func isNoiseToken(tok string) bool {
	if _, ok := noiseWords[strings.ToLower(tok)]; ok {
		return true
	}
	for _, r := range tok {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func newLineFeatures(line string) lineFeatures {
	f := lineFeatures{text: line, roots: make(map[string]struct{})}

	all := lineTokenRe.FindAllString(line, -1)
	if len(all) > 0 {
		noisy := 0
		for _, tok := range all {
			if isNoiseToken(tok) {
				noisy++
			}
		}
		f.noiseRatio = float64(noisy) / float64(len(all))
	}

	var korean []string
	for _, run := range hangul.KoreanRuns(line) {
		if utf8.RuneCountInString(run) < 2 || isNoiseToken(run) {
			continue
		}
		korean = append(korean, run)
	}
	for root, surface := range lexicon.Collapse(korean) {
		f.tokens = append(f.tokens, surface)
		f.roots[root] = struct{}{}
	}
	return f
}

// ScoreLine scores a normalized line against e. The value is always in [0,1].
func (m *Matcher) ScoreLine(line string, e *lexicon.Entry) Score {
	return m.score(newLineFeatures(line), e)
}

func (m *Matcher) score(f lineFeatures, e *lexicon.Entry) Score {
	var s Score
	s.offer(containmentScore(f.text, e), SignalContainment)
	s.offer(bridgedScore(f.tokens, e), SignalBridged)

	shared := 0
	maxBoost := 0.0
	for root := range f.roots {
		if _, ok := e.Roots[root]; !ok {
			continue
		}
		shared++
		if b := m.lex.IDFBoost(root); b > maxBoost {
			maxBoost = b
		}
	}
	s.Shared = shared
	s.IDFBoost = maxBoost
	if shared > 0 {
		base := 0.6
		if shared >= 2 {
			base = 0.8
		}
		s.offer(base+(maxBoost-0.4)*0.5, SignalOverlap)
	}

	s.offer(phoneticScore(f, e), SignalPhonetic)
	s.Value = math.Max(0, math.Min(1, s.Value))
	return s
}

func eligibleContained(s string) bool {
	return utf8.RuneCountInString(s) >= 2 && hangul.HasSyllable(s)
}

func coverage(short, long string) float64 {
	ls, ll := utf8.RuneCountInString(short), utf8.RuneCountInString(long)
	if ll == 0 {
		return 0
	}
	return float64(ls) / float64(ll)
}

// containmentScore is 0.95 plus up to 0.05 for how much of the longer side the shorter covers.
func containmentScore(line string, e *lexicon.Entry) float64 {
	best := 0.0
	for _, alias := range e.Normalized {
		if alias == "" {
			continue
		}
		var v float64
		switch {
		case strings.Contains(line, alias) && eligibleContained(alias):
			v = 0.95 + 0.05*coverage(alias, line)
		case strings.Contains(alias, line) && eligibleContained(line):
			v = 0.95 + 0.05*coverage(line, alias)
		}
		if v > best {
			best = v
		}
	}
	return best
}

// bridgedScore handles tokens that differ from an alias base only by a
// dosage-form or release-marker affix.
func bridgedScore(tokens []string, e *lexicon.Entry) float64 {
	best := 0.0
	for _, tok := range tokens {
		for _, base := range e.Bases {
			var v float64
			switch {
			case strings.HasPrefix(tok, base):
				v = 0.95
			case strings.HasPrefix(base, tok):
				v = 0.90 + 0.05*coverage(tok, base)
			}
			if v > best {
				best = v
			}
		}
	}
	return best
}

func phoneticWeight(sim float64) float64 {
	switch {
	case sim >= 0.85:
		return 0.92 * sim
	case sim >= 0.70:
		return 0.80 * sim
	}
	return 0
}

func phoneticScore(f lineFeatures, e *lexicon.Entry) float64 {
	best := 0.0
	for _, alias := range e.Normalized {
		if !hangul.HasSyllable(alias) {
			continue
		}
		if v := phoneticWeight(hangul.Similarity(f.text, alias)); v > best {
			best = v
		}
		for _, tok := range f.tokens {
			if v := phoneticWeight(hangul.Similarity(tok, alias)); v > best {
				best = v
			}
		}
	}
	return best
}
