package normalize

import (
	"encoding/json"
	"testing"

	"github.com/hyperjump/pillbox/internal/models"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"strips whitespace", "타이레놀 정 500mg", "타이레놀정500mg"},
		{"strips quotes and brackets", "[타이레놀]『정』", "타이레놀정"},
		{"strips separator dots", "이지앤6·이브", "이지앤6이브"},
		{"letter O to zero", "5OOmg", "500mg"},
		{"pipe to one", "|정", "1정"},
		{"stray l between digits", "5l0mg", "510mg"},
		{"chained stray l", "1l1l1", "11111"},
		{"bare m after digit", "500m", "500mg"},
		{"bare m before hangul", "500m정", "500mg정"},
		{"m followed by letters is kept", "500ml", "500ml"},
		{"ten mg repair with e", "정1em9", "정10mg"},
		{"ten mg repair with i", "정1im", "정10mg"},
		{"lm after digit", "5lm", "510mg"},
		{"fullwidth folded", "ＡＢＣ５", "ABC5"},
		{"milligram symbol folded", "500㎎", "500mg"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"타이레놀 정 500 m", "1l1l1l1", "정1em9", "정1im", "O|O|", "5lm정",
		"“아세트아미노펜” 650㎎", "게보린\t정", "ｌ", "m", "1m1m", "l1l", "5l5lm",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("not idempotent for %q: %q -> %q", in, once, twice)
		}
	}
}

func TestIsNoise(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"20240101", true},
		{"2024-01-01", true},
		{"12000원", true},
		{"12,000원", true},
		{"123-45-67890", true},
		{"영수증번호", true},
		{"조제일자2024", true},
		{"아침", true},
		{"정", true},
		{"", true},
		{"타이레놀정500mg", false},
		{"게보린", false},
		{"3000", false},
	}
	for _, tt := range tests {
		if got := IsNoise(tt.line); got != tt.want {
			t.Errorf("IsNoise(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestClean(t *testing.T) {
	batch := models.OCRBatch{
		Texts:  []string{"타이레놀정 500mg", "20240101", "게보린", "  ", "이브"},
		Scores: []*float64{models.Score(0.95), models.Score(0.99), models.Score(0.3)},
	}
	lines, stats := Clean(batch, DefaultMinConfidence)
	want := []string{"타이레놀정500mg", "이브"}
	if len(lines) != len(want) {
		t.Fatalf("Clean lines = %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
	if stats.Noise != 1 || stats.LowConfidence != 1 || stats.Empty != 1 || stats.Kept != 2 || stats.Input != 5 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestClean_NullScoreKeepsLine(t *testing.T) {
	var batch models.OCRBatch
	if err := json.Unmarshal([]byte(`{"texts":["타이레놀정500mg","게보린","이브"],"scores":[0.9,null,0.2]}`), &batch); err != nil {
		t.Fatal(err)
	}
	if batch.Scores[1] != nil {
		t.Fatalf("null score decoded as %v", *batch.Scores[1])
	}
	lines, stats := Clean(batch, DefaultMinConfidence)
	want := []string{"타이레놀정500mg", "게보린"}
	if len(lines) != len(want) {
		t.Fatalf("Clean lines = %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
	if stats.LowConfidence != 1 {
		t.Errorf("low confidence = %d, want 1", stats.LowConfidence)
	}
}

func TestClean_EmptyBatch(t *testing.T) {
	lines, stats := Clean(models.OCRBatch{}, DefaultMinConfidence)
	if len(lines) != 0 || stats.Kept != 0 {
		t.Errorf("expected nothing, got %v %+v", lines, stats)
	}
}
