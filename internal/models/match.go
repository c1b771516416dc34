package models

// MatchCandidate is one resolved drug identity for an OCR batch.
// Canonical is the dedup and lookup key; DisplayName may carry a dosage suffix.
type MatchCandidate struct {
	Canonical   string  `json:"canonical"`
	DisplayName string  `json:"display_name"`
	Score       float64 `json:"score"`
	MatchedLine string  `json:"matched_line"`
	LineIndex   int     `json:"line_index"`
}
