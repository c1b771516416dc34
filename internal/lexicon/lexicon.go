// Package lexicon holds the immutable drug catalog used by the matcher.
//
// A catalog is line oriented: "canonical | alias | alias ...". Blank lines and
// lines starting with '#' are ignored. Every alias is normalized and decomposed
// into Korean tokens, affix-stripped bases and short prefix n-grams; tokens that
// share a jamo root are collapsed to their longest surface form.
package lexicon

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hyperjump/pillbox/internal/hangul"
	"github.com/hyperjump/pillbox/internal/normalize"
)

const (
	minTokenLen = 2
	minNGram    = 2
	maxNGram    = 4
)

// Dosage-form suffixes and release/coating markers stripped to reach a base name.
// Longer forms come first so "연질캡슐" is removed before "캡슐".
var (
	formSuffixes = []string{
		"연질캡슐", "경질캡슐", "캡슐", "츄어블정", "발포정", "정", "시럽", "현탁액", "액", "과립", "산", "겔", "크림", "연고", "패치",
	}
	markers = []string{
		"필름코팅", "서방", "장용", "연질", "츄어블", "발포", "이알", "속효",
	}
)

// Entry is one catalog line after indexing. Aliases keep their catalog order
// with the canonical name first.
type Entry struct {
	Canonical  string
	Aliases    []string
	Normalized []string
	Bases      []string
	Tokens     map[string]struct{}
	Roots      map[string]struct{}
}

// Lexicon is read-only after Build returns and safe for concurrent use.
type Lexicon struct {
	entries  []*Entry
	df       map[string]int
	source   string
	loadedAt time.Time
}

// Build indexes catalog lines. Lines naming an existing canonical extend its aliases.
func Build(lines []string) *Lexicon {
	lex := &Lexicon{df: make(map[string]int), loadedAt: time.Now()}
	byCanonical := make(map[string]*Entry)
	var order []*Entry

	for _, line := range lines {
		parts := parseLine(line)
		if len(parts) == 0 {
			continue
		}
		e, ok := byCanonical[parts[0]]
		if !ok {
			e = &Entry{Canonical: parts[0]}
			byCanonical[parts[0]] = e
			order = append(order, e)
		}
		for _, alias := range parts {
			if !containsString(e.Aliases, alias) {
				e.Aliases = append(e.Aliases, alias)
			}
		}
	}

	for _, e := range order {
		index(e)
		for root := range e.Roots {
			lex.df[root]++
		}
	}
	lex.entries = order
	return lex
}

func parseLine(line string) []string {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}
	var parts []string
	for _, p := range strings.Split(line, "|") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func index(e *Entry) {
	var tokens []string
	seenBase := make(map[string]struct{})
	for _, alias := range e.Aliases {
		n := normalize.Normalize(alias)
		e.Normalized = append(e.Normalized, n)
		for _, run := range hangul.KoreanRuns(n) {
			if utf8.RuneCountInString(run) < minTokenLen {
				continue
			}
			tokens = append(tokens, run)
			base := StripAffixes(run)
			if utf8.RuneCountInString(base) < minTokenLen {
				continue
			}
			tokens = append(tokens, base)
			tokens = append(tokens, prefixNGrams(base)...)
			if _, ok := seenBase[base]; !ok {
				seenBase[base] = struct{}{}
				e.Bases = append(e.Bases, base)
			}
		}
	}
	e.Tokens = make(map[string]struct{})
	e.Roots = make(map[string]struct{})
	for root, surface := range Collapse(tokens) {
		e.Tokens[surface] = struct{}{}
		e.Roots[root] = struct{}{}
	}
}

// StripAffixes removes dosage-form suffixes and release markers until none
// applies or the remainder would drop below two syllables.
func StripAffixes(token string) string {
	for {
		next := token
		for _, s := range formSuffixes {
			if trimmed := strings.TrimSuffix(next, s); trimmed != next && utf8.RuneCountInString(trimmed) >= minTokenLen {
				next = trimmed
				break
			}
		}
		for _, m := range markers {
			if trimmed := strings.TrimSuffix(next, m); trimmed != next && utf8.RuneCountInString(trimmed) >= minTokenLen {
				next = trimmed
				break
			}
			if trimmed := strings.TrimPrefix(next, m); trimmed != next && utf8.RuneCountInString(trimmed) >= minTokenLen {
				next = trimmed
				break
			}
		}
		if next == token {
			return token
		}
		token = next
	}
}

func prefixNGrams(base string) []string {
	runes := []rune(base)
	var out []string
	for n := minNGram; n <= maxNGram && n < len(runes); n++ {
		out = append(out, string(runes[:n]))
	}
	return out
}

// Collapse groups tokens by jamo root and keeps the longest surface form per
// root; ties go to the lexicographically smallest form.
func Collapse(tokens []string) map[string]string {
	out := make(map[string]string, len(tokens))
	for _, t := range tokens {
		root := hangul.Root(t)
		cur, ok := out[root]
		if !ok || longer(t, cur) {
			out[root] = t
		}
	}
	return out
}

func longer(a, b string) bool {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la != lb {
		return la > lb
	}
	return a < b
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Entries returns the entries in catalog order. Callers must not modify them.
func (l *Lexicon) Entries() []*Entry {
	if l == nil {
		return nil
	}
	return l.entries
}

// Len returns the number of entries.
func (l *Lexicon) Len() int {
	if l == nil {
		return 0
	}
	return len(l.entries)
}

// DocFreq returns the number of entries containing root.
func (l *Lexicon) DocFreq(root string) int {
	if l == nil {
		return 0
	}
	return l.df[root]
}

// IDFBoost is min(0.6, 0.2 + 0.2*log2(N/df + 1)). Unknown roots are treated as df=1.
func (l *Lexicon) IDFBoost(root string) float64 {
	n := l.Len()
	if n == 0 {
		return 0
	}
	df := l.DocFreq(root)
	if df < 1 {
		df = 1
	}
	return math.Min(0.6, 0.2+0.2*math.Log2(float64(n)/float64(df)+1))
}

// Lookup returns the entry with the given canonical name.
func (l *Lexicon) Lookup(canonical string) (*Entry, bool) {
	for _, e := range l.Entries() {
		if e.Canonical == canonical {
			return e, true
		}
	}
	return nil, false
}

// Source is the path the lexicon was loaded from, or "" when built in memory.
func (l *Lexicon) Source() string {
	if l == nil {
		return ""
	}
	return l.source
}

// LoadedAt is when the lexicon was built.
func (l *Lexicon) LoadedAt() time.Time {
	if l == nil {
		return time.Time{}
	}
	return l.loadedAt
}

// Stats summarizes a lexicon for status output.
type Stats struct {
	Entries  int       `json:"entries"`
	Aliases  int       `json:"aliases"`
	Tokens   int       `json:"tokens"`
	Roots    int       `json:"roots"`
	Source   string    `json:"source,omitempty"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Stats computes summary counts.
func (l *Lexicon) Stats() Stats {
	s := Stats{Entries: l.Len()}
	if l == nil {
		return s
	}
	s.Source = l.source
	s.LoadedAt = l.loadedAt
	s.Roots = len(l.df)
	for _, e := range l.entries {
		s.Aliases += len(e.Aliases)
		s.Tokens += len(e.Tokens)
	}
	return s
}

// TopRoots returns the n roots with the highest document frequency, most common first.
func (l *Lexicon) TopRoots(n int) []string {
	if l == nil {
		return nil
	}
	roots := make([]string, 0, len(l.df))
	for r := range l.df {
		roots = append(roots, r)
	}
	sort.Slice(roots, func(i, j int) bool {
		if l.df[roots[i]] != l.df[roots[j]] {
			return l.df[roots[i]] > l.df[roots[j]]
		}
		return roots[i] < roots[j]
	})
	if n > 0 && len(roots) > n {
		roots = roots[:n]
	}
	return roots
}
