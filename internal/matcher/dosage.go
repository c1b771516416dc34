package matcher

import (
	"regexp"
	"strings"
)

var dosageRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(mg|g|ml|%|밀리그램)`)

// DosageNear returns the first "<number><unit>" found in lines[idx-window .. idx+window],
// scanning top to bottom, with 밀리그램 rewritten to mg. It returns "" when none is found.
func DosageNear(lines []string, idx, window int) string {
	start := idx - window
	if start < 0 {
		start = 0
	}
	end := idx + window + 1
	if end > len(lines) {
		end = len(lines)
	}
	for i := start; i < end; i++ {
		m := dosageRe.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		return m[1] + strings.Replace(m[2], "밀리그램", "mg", 1)
	}
	return ""
}
