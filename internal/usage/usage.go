// Package usage extracts structured dosing facts from free-text usage
// instructions as returned by the drug-information service.
package usage

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/hyperjump/pillbox/internal/models"
)

// Age brackets used by Korean OTC labelling.
const (
	ChildMinAge = 8
	ChildMaxAge = 14
	AdultMinAge = 15
)

var (
	sentenceSplit = regexp.MustCompile(`[\n.]+`)
	childMarker   = regexp.MustCompile(`(만\s*8세|만\s*15세\s*미만|소아|어린이)`)
	adultMarker   = regexp.MustCompile(`(성인|만\s*15세\s*이상)`)

	// "avoid an empty stomach" is read as after a meal
	avoidEmptyStomach = []*regexp.Regexp{
		regexp.MustCompile(`공복[^가-힣A-Za-z0-9]{0,5}을\s*피하[세요]*|빈\s*속을\s*피하[세요]*`),
		regexp.MustCompile(`공복[^가-힣A-Za-z0-9]{0,5}피하여`),
	}
	durationRe = regexp.MustCompile(`(\d+)\s*일분`)
)

// rule is one pattern in a first-match-wins cascade.
type rule struct {
	re    *regexp.Regexp
	apply func(m []string, r *models.DosingRange)
}

var doseRules = []rule{
	{regexp.MustCompile(`1회\s*(?:에\s*)?(\d+)(?:\s*~\s*(\d+))?\s*(정|캡슐|포|ml|mL)`), applyDose},
	{regexp.MustCompile(`(\d+)(?:\s*~\s*(\d+))?\s*(정|캡슐|포|ml|mL)\s*씩`), applyDose},
}

var freqRules = []rule{
	{regexp.MustCompile(`(?:1일|하루|매일)\s*(\d+)(?:\s*~\s*(\d+))?\s*(?:회|번)`), applyFreq},
	{regexp.MustCompile(`(\d+)(?:\s*~\s*(\d+))?\s*(?:회|번)\s*(?:복용|투여)`), applyFreq},
}

var timingRules = []struct {
	re     *regexp.Regexp
	timing models.Timing
}{
	{regexp.MustCompile(`식후`), models.TimingAfterMeal},
	{regexp.MustCompile(`식전`), models.TimingBeforeMeal},
	{regexp.MustCompile(`식간`), models.TimingBetweenMeals},
	{regexp.MustCompile(`취침\s*전`), models.TimingBedtime},
	{regexp.MustCompile(`공복`), models.TimingEmptyStomach},
}

// AgeText holds the sentences of a usage text that mention each age bracket.
// A sentence may land in both buckets or in neither.
type AgeText struct {
	Child *string
	Adult *string
}

// SplitByAge splits text on newlines and periods and buckets sentences by
// their age markers. Empty buckets are nil.
func SplitByAge(text string) AgeText {
	var child, adult []string
	for _, s := range sentenceSplit.Split(text, -1) {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if childMarker.MatchString(s) {
			child = append(child, s)
		}
		if adultMarker.MatchString(s) {
			adult = append(adult, s)
		}
	}
	return AgeText{Child: joined(child), Adult: joined(adult)}
}

func joined(parts []string) *string {
	if len(parts) == 0 {
		return nil
	}
	s := strings.Join(parts, " ")
	return &s
}

// ParseRanges extracts dose, frequency and timing from one usage text. Each
// field is filled by the first matching rule; absent patterns leave it unset.
func ParseRanges(text string) models.DosingRange {
	r := models.DosingRange{Timing: models.TimingUnknown}
	if strings.TrimSpace(text) == "" {
		return r
	}
	for _, re := range avoidEmptyStomach {
		text = re.ReplaceAllString(text, "식후")
	}
	firstMatch(doseRules, text, &r)
	firstMatch(freqRules, text, &r)
	for _, tr := range timingRules {
		if tr.re.MatchString(text) {
			r.Timing = tr.timing
			break
		}
	}
	return r
}

func firstMatch(rules []rule, text string, r *models.DosingRange) {
	for _, ru := range rules {
		if m := ru.re.FindStringSubmatch(text); m != nil {
			ru.apply(m, r)
			return
		}
	}
}

func bounds(lo, hi string) (*int, *int) {
	a, err := strconv.Atoi(lo)
	if err != nil {
		return nil, nil
	}
	b := a
	if hi != "" {
		if v, err := strconv.Atoi(hi); err == nil {
			b = v
		}
	}
	if b < a {
		a, b = b, a
	}
	return &a, &b
}

func applyDose(m []string, r *models.DosingRange) {
	r.Dose.Min, r.Dose.Max = bounds(m[1], m[2])
	r.Dose.Unit = m[3]
	if r.Dose.Unit == "mL" {
		r.Dose.Unit = "ml"
	}
}

func applyFreq(m []string, r *models.DosingRange) {
	r.Freq.Min, r.Freq.Max = bounds(m[1], m[2])
}

// Duration returns the prescribed number of days ("N일분") found in the
// OCR lines, or 0.
func Duration(lines []string) int {
	for _, l := range lines {
		if m := durationRe.FindStringSubmatch(l); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n
			}
		}
	}
	return 0
}
