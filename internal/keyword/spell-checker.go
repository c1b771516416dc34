package keyword

import (
	"sort"
	"strings"
	"sync"

	"github.com/hyperjump/pillbox/internal/hangul"
)

// Suggestion represents a spelling suggestion with its score.
type Suggestion struct {
	Term       string  `json:"term"`       // The suggested term
	Similarity float64 `json:"similarity"` // Jamo similarity to the original term
	Frequency  int     `json:"frequency"`  // Entries containing the term
	Score      float64 `json:"score"`      // Combined score for ranking
}

// SpellCheckResult contains the result of spell checking a query.
type SpellCheckResult struct {
	OriginalQuery   string       `json:"original_query"`
	CorrectedQuery  string       `json:"corrected_query"`
	Suggestions     []Suggestion `json:"suggestions"`
	HasCorrections  bool         `json:"has_corrections"`
	MisspelledTerms []string     `json:"misspelled_terms"`
}

// SpellChecker suggests lexicon terms for misread query words. Closeness is
// measured on jamo so a single misread vowel or final consonant counts as a
// small edit.
type SpellChecker struct {
	dictionary     TermDictionary
	minSimilarity  float64
	minFreq        int
	maxSuggestions int

	termsCache []string
	termSet    map[string]struct{}
	cacheMu    sync.RWMutex
	cacheValid bool
}

// SpellCheckerOption is a functional option for configuring SpellChecker.
type SpellCheckerOption func(*SpellChecker)

// WithMinSimilarity sets the jamo similarity a term needs to be suggested.
func WithMinSimilarity(v float64) SpellCheckerOption {
	return func(s *SpellChecker) {
		if v > 0 && v <= 1 {
			s.minSimilarity = v
		}
	}
}

// WithMinFrequency sets the minimum entry frequency for suggestions.
func WithMinFrequency(f int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if f >= 0 {
			s.minFreq = f
		}
	}
}

// WithMaxSuggestions sets the maximum number of suggestions to return per term.
func WithMaxSuggestions(n int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if n > 0 {
			s.maxSuggestions = n
		}
	}
}

// NewSpellChecker creates a new SpellChecker with the given dictionary.
func NewSpellChecker(dict TermDictionary, opts ...SpellCheckerOption) *SpellChecker {
	s := &SpellChecker{
		dictionary:     dict,
		minSimilarity:  0.7,
		minFreq:        1,
		maxSuggestions: 5,
		termSet:        make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RefreshCache reloads the term cache from the dictionary. Call it after the
// lexicon changes.
func (s *SpellChecker) RefreshCache() error {
	terms, err := s.dictionary.GetAllTerms()
	if err != nil {
		return err
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	s.termsCache = terms
	s.termSet = make(map[string]struct{}, len(terms))
	for _, t := range terms {
		s.termSet[strings.ToLower(t)] = struct{}{}
	}
	s.cacheValid = true
	return nil
}

// Invalidate forces the next call to reload the term cache.
func (s *SpellChecker) Invalidate() {
	s.cacheMu.Lock()
	s.cacheValid = false
	s.cacheMu.Unlock()
}

func (s *SpellChecker) ensureCache() error {
	s.cacheMu.RLock()
	valid := s.cacheValid
	s.cacheMu.RUnlock()
	if valid {
		return nil
	}
	return s.RefreshCache()
}

// Check checks every query word and suggests replacements for unknown ones.
func (s *SpellChecker) Check(query string) (*SpellCheckResult, error) {
	if err := s.ensureCache(); err != nil {
		return nil, err
	}

	terms := tokenizeQuery(query)
	result := &SpellCheckResult{
		OriginalQuery:   query,
		Suggestions:     make([]Suggestion, 0),
		MisspelledTerms: make([]string, 0),
	}
	corrected := make([]string, 0, len(terms))

	for _, term := range terms {
		s.cacheMu.RLock()
		_, exists := s.termSet[term]
		s.cacheMu.RUnlock()
		if exists {
			corrected = append(corrected, term)
			continue
		}

		suggestions := s.Suggest(term)
		if len(suggestions) == 0 {
			corrected = append(corrected, term)
			continue
		}
		result.HasCorrections = true
		result.MisspelledTerms = append(result.MisspelledTerms, term)
		result.Suggestions = append(result.Suggestions, suggestions...)
		corrected = append(corrected, suggestions[0].Term)
	}

	result.CorrectedQuery = strings.Join(corrected, " ")
	return result, nil
}

// Suggest returns dictionary terms close to term, best first.
func (s *SpellChecker) Suggest(term string) []Suggestion {
	if err := s.ensureCache(); err != nil {
		return nil
	}

	termLower := strings.ToLower(term)
	suggestions := make([]Suggestion, 0)

	s.cacheMu.RLock()
	terms := s.termsCache
	s.cacheMu.RUnlock()

	for _, dictTerm := range terms {
		if strings.ToLower(dictTerm) == termLower {
			continue
		}
		sim := hangul.Similarity(termLower, dictTerm)
		if sim < s.minSimilarity {
			continue
		}
		freq, err := s.dictionary.GetTermFrequency(dictTerm)
		if err != nil || freq < s.minFreq {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			Term:       dictTerm,
			Similarity: sim,
			Frequency:  freq,
			// Similarity dominates; frequency only breaks near ties.
			Score: sim + 0.01*float64(freq),
		})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].Term < suggestions[j].Term
	})
	if len(suggestions) > s.maxSuggestions {
		suggestions = suggestions[:s.maxSuggestions]
	}
	return suggestions
}

// IsMisspelled reports whether term is absent from the dictionary.
func (s *SpellChecker) IsMisspelled(term string) bool {
	if err := s.ensureCache(); err != nil {
		return false
	}
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	_, exists := s.termSet[strings.ToLower(term)]
	return !exists
}

// GetSuggestedQuery returns the best corrected query, or query unchanged.
func (s *SpellChecker) GetSuggestedQuery(query string) string {
	result, err := s.Check(query)
	if err != nil || !result.HasCorrections {
		return query
	}
	return result.CorrectedQuery
}
