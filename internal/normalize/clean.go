package normalize

import "github.com/hyperjump/pillbox/internal/models"

// DefaultMinConfidence is the OCR score below which a line is dropped before noise checks.
const DefaultMinConfidence = 0.50

// CleanStats counts what happened to each input line.
type CleanStats struct {
	Input         int `json:"input"`
	Kept          int `json:"kept"`
	Empty         int `json:"empty"`
	LowConfidence int `json:"low_confidence"`
	Noise         int `json:"noise"`
}

// Clean normalizes a batch and drops empty, low-confidence and noise lines.
// Unscored lines are never dropped for confidence.
func Clean(batch models.OCRBatch, minConfidence float64) ([]string, CleanStats) {
	stats := CleanStats{Input: len(batch.Texts)}
	out := make([]string, 0, len(batch.Texts))
	for _, line := range batch.Lines() {
		t := Normalize(line.Text)
		switch {
		case t == "":
			stats.Empty++
		case line.Confidence != nil && *line.Confidence < minConfidence:
			stats.LowConfidence++
		case IsNoise(t):
			stats.Noise++
		default:
			out = append(out, t)
		}
	}
	stats.Kept = len(out)
	return out, stats
}
