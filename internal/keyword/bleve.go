package keyword

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"

	"github.com/hyperjump/pillbox/internal/lexicon"
	"github.com/hyperjump/pillbox/internal/normalize"
)

const (
	fieldCanonical = "canonical"
	fieldAliases   = "aliases"
	fieldTokens    = "tokens"
)

// LexiconIndex is an in-memory Bleve index over lexicon aliases. It is rebuilt
// whenever the lexicon store swaps in a new lexicon.
type LexiconIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	lex    *lexicon.Lexicon
	logger *zap.Logger
}

// IndexOption configures a LexiconIndex.
type IndexOption func(*LexiconIndex)

// WithLogger sets the logger used for rebuild events.
func WithLogger(l *zap.Logger) IndexOption {
	return func(x *LexiconIndex) {
		if l != nil {
			x.logger = l
		}
	}
}

func newMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	// Standard analyzer keeps each Hangul word as one term; no stemming.
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(fieldAliases, textFieldMapping)
	docMapping.AddFieldMappingsAt(fieldTokens, textFieldMapping)
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt(fieldCanonical, keywordFieldMapping)
	im.AddDocumentMapping("entry", docMapping)
	im.DefaultType = "entry"
	im.DefaultMapping = docMapping
	return im
}

func buildIndex(lex *lexicon.Lexicon) (bleve.Index, error) {
	index, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	batch := index.NewBatch()
	for _, e := range lex.Entries() {
		tokens := make([]string, 0, len(e.Tokens))
		for tok := range e.Tokens {
			tokens = append(tokens, tok)
		}
		sort.Strings(tokens)
		doc := map[string]interface{}{
			fieldCanonical: e.Canonical,
			fieldAliases:   strings.Join(append(append([]string{}, e.Aliases...), e.Normalized...), " "),
			fieldTokens:    strings.Join(tokens, " "),
		}
		if err := batch.Index(e.Canonical, doc); err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("failed to index %q: %w", e.Canonical, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("failed to index lexicon: %w", err)
	}
	return index, nil
}

// NewLexiconIndex indexes every entry of lex.
func NewLexiconIndex(lex *lexicon.Lexicon, opts ...IndexOption) (*LexiconIndex, error) {
	x := &LexiconIndex{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(x)
	}
	if err := x.Rebuild(lex); err != nil {
		return nil, err
	}
	return x, nil
}

// Attach keeps the index in step with store: every swap triggers a rebuild.
// A failed rebuild keeps serving the previous index.
func (x *LexiconIndex) Attach(store *lexicon.Store) {
	store.OnSwap(func(lex *lexicon.Lexicon) {
		if err := x.Rebuild(lex); err != nil {
			x.logger.Warn("alias index rebuild failed", zap.Error(err))
			return
		}
		x.logger.Info("alias index rebuilt", zap.Int("entries", lex.Len()))
	})
}

// Rebuild replaces the index contents with lex.
func (x *LexiconIndex) Rebuild(lex *lexicon.Lexicon) error {
	index, err := buildIndex(lex)
	if err != nil {
		return err
	}
	x.mu.Lock()
	old := x.index
	x.index = index
	x.lex = lex
	x.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

// Search returns up to limit entries whose aliases or tokens match query.
// Query terms are split on whitespace and normalized like OCR lines.
func (x *LexiconIndex) Search(query string, limit int, opts *SearchOptions) ([]Result, error) {
	terms := tokenizeQuery(query)
	if len(terms) == 0 {
		return []Result{}, nil
	}
	if limit <= 0 {
		limit = 10
	}
	fuzzy := false
	fuzziness := 1
	if opts != nil {
		fuzzy = opts.Fuzzy
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
	}

	req := bleve.NewSearchRequest(buildQuery(terms, fuzzy, fuzziness))
	req.Size = limit

	x.mu.RLock()
	defer x.mu.RUnlock()
	results, err := x.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]Result, 0, len(results.Hits))
	for _, hit := range results.Hits {
		r := Result{Canonical: hit.ID, Score: hit.Score}
		if e, ok := x.lex.Lookup(hit.ID); ok {
			r.Aliases = e.Aliases
		}
		out = append(out, r)
	}
	return out, nil
}

// tokenizeQuery splits query on whitespace and normalizes each term, dropping empties.
func tokenizeQuery(query string) []string {
	words := strings.Fields(query)
	terms := make([]string, 0, len(words))
	for _, w := range words {
		if t := strings.ToLower(normalize.Normalize(w)); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

// buildQuery ORs every term over the alias and token fields.
func buildQuery(terms []string, fuzzy bool, fuzziness int) blevequery.Query {
	queries := make([]blevequery.Query, 0, len(terms)*2)
	for _, term := range terms {
		for _, field := range []string{fieldAliases, fieldTokens} {
			if fuzzy {
				fq := bleve.NewFuzzyQuery(term)
				fq.SetFuzziness(fuzziness)
				fq.SetField(field)
				queries = append(queries, fq)
				continue
			}
			tq := bleve.NewTermQuery(term)
			tq.SetField(field)
			queries = append(queries, tq)
		}
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// DocCount returns the number of indexed entries.
func (x *LexiconIndex) DocCount() (uint64, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.index.DocCount()
}

// GetAllTerms returns all unique terms from the token dictionary.
func (x *LexiconIndex) GetAllTerms() ([]string, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	dict, err := x.index.FieldDict(fieldTokens)
	if err != nil {
		return nil, fmt.Errorf("failed to read term dictionary: %w", err)
	}
	defer dict.Close()

	terms := make([]string, 0)
	for {
		entry, err := dict.Next()
		if err != nil || entry == nil {
			break
		}
		terms = append(terms, entry.Term)
	}
	return terms, nil
}

// GetTermFrequency returns the number of entries whose tokens contain term.
func (x *LexiconIndex) GetTermFrequency(term string) (int, error) {
	q := bleve.NewTermQuery(term)
	q.SetField(fieldTokens)
	req := bleve.NewSearchRequest(q)
	req.Size = 0

	x.mu.RLock()
	defer x.mu.RUnlock()
	results, err := x.index.Search(req)
	if err != nil {
		return 0, fmt.Errorf("failed to search for term frequency: %w", err)
	}
	return int(results.Total), nil
}

// ContainsTerm checks if a term exists in the token field.
func (x *LexiconIndex) ContainsTerm(term string) (bool, error) {
	freq, err := x.GetTermFrequency(term)
	if err != nil {
		return false, err
	}
	return freq > 0, nil
}

// Close closes the current index.
func (x *LexiconIndex) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.index == nil {
		return nil
	}
	err := x.index.Close()
	x.index = nil
	return err
}
