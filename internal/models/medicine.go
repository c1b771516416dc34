package models

// Timing is the meal-relative administration code.
type Timing string

const (
	TimingAfterMeal    Timing = "after_meal"
	TimingBeforeMeal   Timing = "before_meal"
	TimingBetweenMeals Timing = "between_meals"
	TimingBedtime      Timing = "bedtime"
	TimingEmptyStomach Timing = "empty_stomach"
	TimingUnknown      Timing = "unknown"
)

var timingLabels = map[Timing]string{
	TimingAfterMeal:    "식후",
	TimingBeforeMeal:   "식전",
	TimingBetweenMeals: "식간",
	TimingBedtime:      "취침 전",
	TimingEmptyStomach: "공복",
}

// Label returns the Korean label printed on envelopes and alarms, or "" for unknown timing.
func (t Timing) Label() string {
	return timingLabels[t]
}

// ParseTiming accepts either a timing code or its Korean label.
func ParseTiming(s string) Timing {
	if _, ok := timingLabels[Timing(s)]; ok {
		return Timing(s)
	}
	for t, label := range timingLabels {
		if s == label {
			return t
		}
	}
	if s == "취침전" {
		return TimingBedtime
	}
	return TimingUnknown
}

// DoseRange is the per-dose amount envelope. Nil bounds mean the pattern was absent.
type DoseRange struct {
	Min  *int   `json:"min"`
	Max  *int   `json:"max"`
	Unit string `json:"unit"`
}

// FreqRange is the daily frequency envelope.
type FreqRange struct {
	Min *int `json:"min"`
	Max *int `json:"max"`
}

// DosingRange holds the facts extracted from one usage text.
type DosingRange struct {
	Dose   DoseRange `json:"dose_range"`
	Freq   FreqRange `json:"freq_range"`
	Timing Timing    `json:"timing"`
}

// BracketRange is a DosingRange tagged with its age bracket. AgeMax is nil for open-ended brackets.
type BracketRange struct {
	AgeMin int  `json:"age_min"`
	AgeMax *int `json:"age_max"`
	DosingRange
}

// AgeRanges holds per-bracket ranges. Brackets absent from the usage text are nil.
type AgeRanges struct {
	Child *BracketRange `json:"child,omitempty"`
	Adult *BracketRange `json:"adult,omitempty"`
}

// MedicineRecord is the normalized dosing record for one resolved candidate.
type MedicineRecord struct {
	Name           string    `json:"name"`
	PerDose        int       `json:"per_dose"`
	Unit           string    `json:"unit"`
	Frequency      int       `json:"frequency"`
	Timing         Timing    `json:"timing"`
	DurationDays   int       `json:"duration_days"`
	Ranges         AgeRanges `json:"ranges"`
	Classification string    `json:"classification"`
	Info           *DrugInfo `json:"info,omitempty"`
}

// DrugInfo is the payload returned by the drug-information collaborator.
type DrugInfo struct {
	Name           string `json:"name"`
	Company        string `json:"company"`
	Classification string `json:"classification"`
	Ingredients    string `json:"ingredients"`
	Efficacy       string `json:"efficacy"`
	Usage          string `json:"usage"`
	Caution        string `json:"caution"`
	Storage        string `json:"storage"`
}

// ParseResult is the outcome of parsing one OCR batch.
type ParseResult struct {
	Medicines  []MedicineRecord `json:"medicines"`
	Candidates []MatchCandidate `json:"candidates"`
}
