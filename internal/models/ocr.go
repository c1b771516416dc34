// Package models defines the data structures shared by the matcher, the usage parser, and the alarm scheduler.
package models

import "fmt"

// OCRLine is a single recognized text region. Confidence is nil when the OCR
// collaborator did not report a score for the line.
type OCRLine struct {
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// OCRBatch is the raw output of the OCR collaborator. Scores may be shorter
// than Texts and may hold nil entries; lines without a score are treated as
// unscored.
type OCRBatch struct {
	Texts  []string   `json:"texts"`
	Scores []*float64 `json:"scores,omitempty"`
}

// Score returns a pointer to v, for building Scores literals.
func Score(v float64) *float64 {
	return &v
}

// Lines pairs every text with its score, when one was supplied.
func (b OCRBatch) Lines() []OCRLine {
	lines := make([]OCRLine, len(b.Texts))
	for i, text := range b.Texts {
		lines[i].Text = text
		if i < len(b.Scores) && b.Scores[i] != nil {
			score := *b.Scores[i]
			lines[i].Confidence = &score
		}
	}
	return lines
}

// Validate rejects scores outside [0,1]. An empty batch is valid and simply
// yields nothing to match.
func (b *OCRBatch) Validate() error {
	for i, s := range b.Scores {
		if s == nil {
			continue
		}
		if *s < 0 || *s > 1 {
			return fmt.Errorf("score %d out of range: %v", i, *s)
		}
	}
	if len(b.Scores) > len(b.Texts) {
		b.Scores = b.Scores[:len(b.Texts)]
	}
	return nil
}
