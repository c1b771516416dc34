package keyword

import (
	"errors"
	"testing"

	"github.com/hyperjump/pillbox/internal/lexicon"
)

func testLexicon() *lexicon.Lexicon {
	return lexicon.Build([]string{
		"타이레놀 | 타이레놀정",
		"게보린 | 게보린정",
		"이지앤6 이브 | 이브A정",
		"부루펜 | 부루펜시럽",
	})
}

func hitCanonicals(results []Result) map[string]bool {
	out := make(map[string]bool, len(results))
	for _, r := range results {
		out[r.Canonical] = true
	}
	return out
}

func TestLexiconIndex_ExactSearch(t *testing.T) {
	idx, err := NewLexiconIndex(testLexicon())
	if err != nil {
		t.Fatalf("NewLexiconIndex: %v", err)
	}
	defer idx.Close()

	n, err := idx.DocCount()
	if err != nil || n != 4 {
		t.Fatalf("DocCount = %d, %v; want 4", n, err)
	}

	results, err := idx.Search("게보린", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 || results[0].Canonical != "게보린" {
		t.Fatalf("expected 게보린 first, got %+v", results)
	}
	if len(results[0].Aliases) != 2 || results[0].Aliases[1] != "게보린정" {
		t.Errorf("aliases not carried: %+v", results[0].Aliases)
	}

	results, err = idx.Search("이브", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !hitCanonicals(results)["이지앤6 이브"] {
		t.Errorf("expected alias word 이브 to find 이지앤6 이브, got %+v", results)
	}
}

func TestLexiconIndex_EmptyQuery(t *testing.T) {
	idx, err := NewLexiconIndex(testLexicon())
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	results, err := idx.Search("   ", 10, nil)
	if err != nil || len(results) != 0 {
		t.Errorf("Search(blank) = %+v, %v", results, err)
	}
}

func TestLexiconIndex_NoMatch(t *testing.T) {
	idx, err := NewLexiconIndex(testLexicon())
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	results, err := idx.Search("아스피린", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected no hits, got %+v", results)
	}
}

func TestLexiconIndex_RebuildOnSwap(t *testing.T) {
	store := lexicon.NewStore(testLexicon())
	idx, err := NewLexiconIndex(store.Current())
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	idx.Attach(store)

	store.Swap(lexicon.Build([]string{"아스피린 | 아스피린장용정"}))

	results, err := idx.Search("아스피린", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Canonical != "아스피린" {
		t.Errorf("expected rebuilt index to find 아스피린, got %+v", results)
	}
	results, _ = idx.Search("게보린", 10, nil)
	if len(results) != 0 {
		t.Errorf("old entries should be gone, got %+v", results)
	}
}

func TestLexiconIndex_TermDictionary(t *testing.T) {
	idx, err := NewLexiconIndex(testLexicon())
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	terms, err := idx.GetAllTerms()
	if err != nil {
		t.Fatal(err)
	}
	if len(terms) == 0 {
		t.Fatal("expected indexed terms")
	}
	ok, err := idx.ContainsTerm("게보린")
	if err != nil || !ok {
		t.Errorf("ContainsTerm(게보린) = %v, %v", ok, err)
	}
	ok, _ = idx.ContainsTerm("없는약")
	if ok {
		t.Error("ContainsTerm(없는약) should be false")
	}
}

// mockTermDictionary is a fixed TermDictionary for testing.
type mockTermDictionary struct {
	terms       map[string]int
	getAllError error
}

func (m *mockTermDictionary) GetAllTerms() ([]string, error) {
	if m.getAllError != nil {
		return nil, m.getAllError
	}
	result := make([]string, 0, len(m.terms))
	for term := range m.terms {
		result = append(result, term)
	}
	return result, nil
}

func (m *mockTermDictionary) GetTermFrequency(term string) (int, error) {
	return m.terms[term], nil
}

func (m *mockTermDictionary) ContainsTerm(term string) (bool, error) {
	_, ok := m.terms[term]
	return ok, nil
}

func TestSpellChecker_Defaults(t *testing.T) {
	sc := NewSpellChecker(&mockTermDictionary{})
	if sc.minSimilarity != 0.7 || sc.minFreq != 1 || sc.maxSuggestions != 5 {
		t.Errorf("unexpected defaults: %+v", sc)
	}
	sc = NewSpellChecker(&mockTermDictionary{}, WithMinSimilarity(0.9), WithMinFrequency(2), WithMaxSuggestions(1))
	if sc.minSimilarity != 0.9 || sc.minFreq != 2 || sc.maxSuggestions != 1 {
		t.Errorf("options not applied: %+v", sc)
	}
}

func TestSpellChecker_SuggestsCloseJamo(t *testing.T) {
	dict := &mockTermDictionary{terms: map[string]int{"타이레놀": 2, "게보린": 1, "부루펜": 1}}
	sc := NewSpellChecker(dict)

	got := sc.Suggest("타이레눌")
	if len(got) == 0 || got[0].Term != "타이레놀" {
		t.Fatalf("Suggest(타이레눌) = %+v", got)
	}
	if got[0].Similarity < 0.85 {
		t.Errorf("similarity = %v, want >= 0.85", got[0].Similarity)
	}

	if got := sc.Suggest("아스피린"); len(got) != 0 {
		t.Errorf("unrelated term should get no suggestions, got %+v", got)
	}
}

func TestSpellChecker_Check(t *testing.T) {
	dict := &mockTermDictionary{terms: map[string]int{"타이레놀": 2, "게보린": 1}}
	sc := NewSpellChecker(dict)

	res, err := sc.Check("게보린 타이레눌")
	if err != nil {
		t.Fatal(err)
	}
	if !res.HasCorrections || res.CorrectedQuery != "게보린 타이레놀" {
		t.Errorf("unexpected result %+v", res)
	}
	if len(res.MisspelledTerms) != 1 || res.MisspelledTerms[0] != "타이레눌" {
		t.Errorf("misspelled = %v", res.MisspelledTerms)
	}
	if sc.GetSuggestedQuery("게보린") != "게보린" {
		t.Error("known query should be unchanged")
	}
	if !sc.IsMisspelled("타이레눌") || sc.IsMisspelled("게보린") {
		t.Error("IsMisspelled mismatch")
	}
}

func TestSpellChecker_DictionaryError(t *testing.T) {
	sc := NewSpellChecker(&mockTermDictionary{getAllError: errors.New("boom")})
	if _, err := sc.Check("x"); err == nil {
		t.Error("expected error")
	}
	if got := sc.Suggest("x"); got != nil {
		t.Errorf("expected nil suggestions, got %+v", got)
	}
}

func TestSpellChecker_Invalidate(t *testing.T) {
	dict := &mockTermDictionary{terms: map[string]int{"게보린": 1}}
	sc := NewSpellChecker(dict)
	if sc.IsMisspelled("게보린") {
		t.Fatal("게보린 should be known")
	}
	dict.terms = map[string]int{"부루펜": 1}
	if sc.IsMisspelled("게보린") {
		t.Error("cache should still hold the old terms")
	}
	sc.Invalidate()
	if !sc.IsMisspelled("게보린") {
		t.Error("invalidated cache should reload the dictionary")
	}
}
