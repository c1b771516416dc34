package matcher

import (
	"fmt"
	"testing"

	"github.com/hyperjump/pillbox/internal/lexicon"
	"github.com/hyperjump/pillbox/internal/models"
	"github.com/hyperjump/pillbox/internal/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// labelCase is one scanned label and the canonical names it must produce.
type labelCase struct {
	name   string
	texts  []string
	expect map[string]string // canonical -> display name
}

func labelCorpus() []labelCase {
	return []labelCase{
		{
			name:   "front of box",
			texts:  []string{"타이레놀정 500mg", "해열진통제", "20정"},
			expect: map[string]string{"타이레놀": "타이레놀 500mg"},
		},
		{
			name:   "dosage on the following line",
			texts:  []string{"게보린", "300mg", "1일 3회"},
			expect: map[string]string{"게보린": "게보린 300mg"},
		},
		{
			name:   "brand embedded in a longer product line",
			texts:  []string{"아스피린프로텍트"},
			expect: map[string]string{"아스피린": "아스피린"},
		},
		{
			name:   "vowel misread",
			texts:  []string{"타이레눌"},
			expect: map[string]string{"타이레놀": "타이레놀"},
		},
		{
			name:  "pharmacy bag with two medicines and receipt noise",
			texts: []string{"조제일자 2024-01-01", "부루펜시럽", "게보린정", "12,000원"},
			expect: map[string]string{
				"부루펜": "부루펜",
				"게보린": "게보린",
			},
		},
	}
}

func matchTexts(m *Matcher, texts []string) []models.MatchCandidate {
	lines, _ := normalize.Clean(models.OCRBatch{Texts: texts}, normalize.DefaultMinConfidence)
	return m.Match(lines)
}

func TestLabelCorpus(t *testing.T) {
	m := New(testLexicon())
	for _, tc := range labelCorpus() {
		t.Run(tc.name, func(t *testing.T) {
			got := matchTexts(m, tc.texts)
			byCanonical := make(map[string]models.MatchCandidate, len(got))
			for _, c := range got {
				byCanonical[c.Canonical] = c
			}
			for canonical, display := range tc.expect {
				c, ok := byCanonical[canonical]
				require.True(t, ok, "missing %s in %+v", canonical, got)
				assert.Equal(t, display, c.DisplayName)
			}
		})
	}
}

func TestLabelCorpus_ReceiptOnly(t *testing.T) {
	m := New(testLexicon())
	got := matchTexts(m, []string{"영수증번호 123-45-67890", "12,000원", "20240101"})
	assert.Empty(t, got)
}

// syntheticLexicon pads the test lexicon with n generated entries.
func syntheticLexicon(n int) *lexicon.Lexicon {
	lines := []string{
		"타이레놀 | 타이레놀정",
		"게보린 | 게보린정",
		"부루펜 | 부루펜시럽",
		"아스피린 | 아스피린장용정",
	}
	for i := 0; i < n; i++ {
		lines = append(lines, fmt.Sprintf("합성약%03d | 합성약%03d정", i, i))
	}
	return lexicon.Build(lines)
}

func BenchmarkMatch(b *testing.B) {
	m := New(syntheticLexicon(500))
	lines := normalize.All([]string{"타이레놀정 500mg", "1일 3회 식후 30분", "게보린", "300mg", "조제약국"})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m.Match(lines)
	}
}

func BenchmarkScoreLine(b *testing.B) {
	lex := syntheticLexicon(0)
	m := New(lex)
	e, _ := lex.Lookup("타이레놀")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m.ScoreLine("타이레눌정500mg", e)
	}
}
