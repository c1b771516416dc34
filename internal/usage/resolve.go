package usage

import "github.com/hyperjump/pillbox/internal/models"

// Resolved is a usage text reduced to per-bracket ranges plus the single
// values used for scheduling.
type Resolved struct {
	PerDose   int
	Unit      string
	Frequency int
	Timing    models.Timing
	Ranges    models.AgeRanges
}

// Resolve splits usage by age, parses each present bracket and picks single
// values: the adult upper bound, else the child upper bound, else zero. Timing
// falls back to after a meal. A text that names no bracket yields no ranges.
func Resolve(text string) Resolved {
	split := SplitByAge(text)

	var ranges models.AgeRanges
	if split.Child != nil {
		ageMax := ChildMaxAge
		ranges.Child = &models.BracketRange{AgeMin: ChildMinAge, AgeMax: &ageMax, DosingRange: ParseRanges(*split.Child)}
	}
	if split.Adult != nil {
		ranges.Adult = &models.BracketRange{AgeMin: AdultMinAge, DosingRange: ParseRanges(*split.Adult)}
	}

	res := Resolved{Ranges: ranges, Timing: models.TimingAfterMeal}
	for _, b := range []*models.BracketRange{ranges.Adult, ranges.Child} {
		if b == nil {
			continue
		}
		if res.PerDose == 0 && b.Dose.Max != nil && *b.Dose.Max > 0 {
			res.PerDose = *b.Dose.Max
		}
		if res.Unit == "" && b.Dose.Unit != "" {
			res.Unit = b.Dose.Unit
		}
		if res.Frequency == 0 && b.Freq.Max != nil && *b.Freq.Max > 0 {
			res.Frequency = *b.Freq.Max
		}
	}
	switch {
	case ranges.Adult != nil && ranges.Adult.Timing != models.TimingUnknown:
		res.Timing = ranges.Adult.Timing
	case ranges.Child != nil && ranges.Child.Timing != models.TimingUnknown:
		res.Timing = ranges.Child.Timing
	}
	return res
}
