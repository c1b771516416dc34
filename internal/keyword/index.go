// Package keyword indexes lexicon aliases for interactive search and
// spelling suggestions.
package keyword

// SearchOptions optional parameters for alias search. Nil means exact term matching.
type SearchOptions struct {
	// Fuzzy enables edit-distance matching for typo tolerance.
	Fuzzy bool
	// Fuzziness is the maximum edit distance in runes (1 or 2). Default is 1.
	Fuzziness int
}

// Result is a single alias search hit.
type Result struct {
	Canonical string   `json:"canonical"`
	Aliases   []string `json:"aliases"`
	Score     float64  `json:"score"`
}

// TermDictionary provides access to the indexed terms for spell checking.
type TermDictionary interface {
	// GetAllTerms returns all unique indexed terms.
	GetAllTerms() ([]string, error)
	// GetTermFrequency returns the number of entries containing the term.
	GetTermFrequency(term string) (int, error)
	// ContainsTerm checks if a term exists in the index.
	ContainsTerm(term string) (bool, error)
}
