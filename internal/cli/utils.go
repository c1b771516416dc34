// Package cli renders pillbox results for the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/hyperjump/pillbox/internal/keyword"
	"github.com/hyperjump/pillbox/internal/lexicon"
	"github.com/hyperjump/pillbox/internal/models"
	"github.com/hyperjump/pillbox/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

// ParseReport is the full result of the parse command.
type ParseReport struct {
	Medicines  []models.MedicineRecord `json:"medicines"`
	Candidates []models.MatchCandidate `json:"candidates"`
	Alarms     []models.AlarmEvent     `json:"alarms"`
}

// SearchReport is the result of a lexicon search.
type SearchReport struct {
	Query      string                    `json:"query"`
	Results    []keyword.Result          `json:"results"`
	SpellCheck *keyword.SpellCheckResult `json:"spell_check,omitempty"`
}

// StatsReport describes the loaded lexicon.
type StatsReport struct {
	lexicon.Stats
	TopRoots []string `json:"top_roots"`
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// WriteCandidates writes match candidates to w in the given format.
func WriteCandidates(w io.Writer, candidates []models.MatchCandidate, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, candidates)
	}
	if len(candidates) == 0 {
		fmt.Fprintln(w, "No candidates.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCORE\tCANONICAL\tDISPLAY\tLINE")
	for _, c := range candidates {
		fmt.Fprintf(tw, "%.3f\t%s\t%s\t%d: %s\n", c.Score, c.Canonical, c.DisplayName, c.LineIndex, c.MatchedLine)
	}
	return tw.Flush()
}

// WriteParseReport writes medicines, candidates and alarms to w.
func WriteParseReport(w io.Writer, report *ParseReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	fmt.Fprintf(w, "\nMedicines (%d)\n", len(report.Medicines))
	for _, m := range report.Medicines {
		writeMedicine(w, m)
	}
	fmt.Fprintf(w, "\nCandidates (%d)\n", len(report.Candidates))
	if err := WriteCandidates(w, report.Candidates, OutputText); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nAlarms (%d)\n", len(report.Alarms))
	return WriteAlarms(w, report.Alarms, OutputText)
}

func writeMedicine(w io.Writer, m models.MedicineRecord) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "%s [%s]\n", m.Name, m.Classification)
	if m.Frequency > 0 {
		fmt.Fprintf(w, "  %d%s x %d/day", m.PerDose, m.Unit, m.Frequency)
		if label := m.Timing.Label(); label != "" {
			fmt.Fprintf(w, ", %s", label)
		}
		fmt.Fprintln(w)
	}
	if m.DurationDays > 0 {
		fmt.Fprintf(w, "  %d days\n", m.DurationDays)
	}
	if m.Info != nil {
		if m.Info.Company != "" {
			fmt.Fprintf(w, "  company: %s\n", m.Info.Company)
		}
		if m.Info.Efficacy != "" {
			fmt.Fprintf(w, "  efficacy: %s\n", utils.Truncate(m.Info.Efficacy, 80))
		}
	}
}

// WriteAlarms writes alarm events to w.
func WriteAlarms(w io.Writer, alarms []models.AlarmEvent, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, alarms)
	}
	if len(alarms) == 0 {
		fmt.Fprintln(w, "No alarms.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, a := range alarms {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", a.Time, a.Condition, a.Medicine, a.PerDose)
	}
	return tw.Flush()
}

// WriteSearchResults writes lexicon search hits to w.
func WriteSearchResults(w io.Writer, report *SearchReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	if report.SpellCheck != nil && report.SpellCheck.HasCorrections {
		fmt.Fprintf(w, "Did you mean: %s\n", report.SpellCheck.CorrectedQuery)
	}
	fmt.Fprintf(w, "Found %d entries for %q\n", len(report.Results), report.Query)
	for i, r := range report.Results {
		fmt.Fprintf(w, "%2d. %s (%.3f)  %s\n", i+1, r.Canonical, r.Score, strings.Join(r.Aliases, ", "))
	}
	return nil
}

// WriteStats writes lexicon statistics to w.
func WriteStats(w io.Writer, report *StatsReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	fmt.Fprintf(w, "source:  %s\n", report.Source)
	fmt.Fprintf(w, "entries: %d\n", report.Entries)
	fmt.Fprintf(w, "aliases: %d\n", report.Aliases)
	fmt.Fprintf(w, "tokens:  %d\n", report.Tokens)
	fmt.Fprintf(w, "roots:   %d\n", report.Roots)
	if len(report.TopRoots) > 0 {
		fmt.Fprintf(w, "common roots: %s\n", strings.Join(report.TopRoots, ", "))
	}
	return nil
}
